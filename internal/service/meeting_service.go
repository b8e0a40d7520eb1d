package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/hireloop/interview-api/internal/dto"
	"github.com/hireloop/interview-api/internal/models"
	"github.com/hireloop/interview-api/internal/observability"
	"github.com/hireloop/interview-api/internal/repository"
)

// TokenIssuer mints a single-use invitation response token bound to a meeting.
type TokenIssuer interface {
	IssueToken(ctx context.Context, meetingID uint) (string, error)
}

// MeetingService owns the meeting state machine.
type MeetingService interface {
	Schedule(ctx context.Context, payload dto.MeetingScheduleRequest, actor Actor) (dto.MeetingResponse, error)
	Start(ctx context.Context, meetingID uint, actor Actor) (dto.MeetingResponse, error)
	Cancel(ctx context.Context, meetingID uint, actor Actor) (dto.MeetingResponse, error)
	Finish(ctx context.Context, meetingID uint, actor Actor) (dto.MeetingResponse, error)
	Get(ctx context.Context, meetingID uint) (dto.MeetingResponse, error)
	List(ctx context.Context, filter dto.MeetingFilter) ([]dto.MeetingResponse, error)
	Resolve(ctx context.Context, meetingID uint) (models.Meeting, error)
}

type meetingService struct {
	meetings     repository.MeetingRepository
	rounds       repository.RoundRepository
	applications repository.ApplicationRepository
	tokens       TokenIssuer
	notifier     Notifier
	audit        AuditRecorder
	validator    *validator.Validate
	logger       zerolog.Logger
	tracer       trace.Tracer
	locks        *keyedMutex
	now          func() time.Time
}

// NewMeetingService constructs the meeting lifecycle manager.
func NewMeetingService(meetings repository.MeetingRepository, rounds repository.RoundRepository, applications repository.ApplicationRepository, tokens TokenIssuer, notifier Notifier, audit AuditRecorder, validate *validator.Validate, logger zerolog.Logger) MeetingService {
	return &meetingService{
		meetings:     meetings,
		rounds:       rounds,
		applications: applications,
		tokens:       tokens,
		notifier:     notifier,
		audit:        audit,
		validator:    validate,
		logger:       logger.With().Str("component", "meeting_service").Logger(),
		tracer:       otel.Tracer("github.com/hireloop/interview-api/internal/service/meeting"),
		locks:        newKeyedMutex(),
		now:          time.Now,
	}
}

func (s *meetingService) Schedule(ctx context.Context, payload dto.MeetingScheduleRequest, actor Actor) (dto.MeetingResponse, error) {
	ctx, span := s.tracer.Start(ctx, "meeting.schedule", trace.WithAttributes(
		attribute.Int64("meeting.job_application_id", int64(payload.JobApplicationID)),
		attribute.Int64("meeting.interview_round_id", int64(payload.InterviewRoundID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.MeetingResponse{}, err
	}

	// Concurrent schedules for the same pair must not both pass the
	// blocking-meeting lookup; the partial unique index on the table is the
	// backstop for multi-node races.
	unlock := s.locks.Lock(schedulePairKey(payload.JobApplicationID, payload.InterviewRoundID))
	defer unlock()

	application, err := s.applications.GetByID(ctx, payload.JobApplicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MeetingResponse{}, ErrApplicationNotFound
		}
		return dto.MeetingResponse{}, err
	}

	if application.IsTerminal() {
		span.SetStatus(codes.Error, "candidate_not_eligible")
		return dto.MeetingResponse{}, ErrCandidateNotEligible
	}

	round, err := s.rounds.GetByID(ctx, payload.InterviewRoundID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MeetingResponse{}, ErrRoundNotFound
		}
		return dto.MeetingResponse{}, err
	}

	if round.JobPostingID != application.JobPostingID {
		return dto.MeetingResponse{}, ErrRoundNotFound
	}

	// A reject leaves the predecessor pending for audit; the replacement
	// supersedes it here and inherits the rejection count so the ceiling
	// spans the whole (application, round) attempt history.
	carriedRejections := 0
	superseding := false
	existing, err := s.meetings.FindBlocking(ctx, payload.JobApplicationID, payload.InterviewRoundID)
	switch {
	case err == nil:
		if existing.InvitationStatus != models.InvitationRescheduleRequested {
			span.SetStatus(codes.Error, "duplicate_meeting")
			return dto.MeetingResponse{}, ErrDuplicateMeeting
		}
		superseding = true
		carriedRejections = existing.RejectionCount
		existing.Status = models.MeetingStatusRescheduled
		if err := s.meetings.Update(ctx, &existing); err != nil {
			return dto.MeetingResponse{}, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return dto.MeetingResponse{}, err
	}

	// A replacement for a reschedule request is legal while the application
	// sits in interviewing; a fresh meeting still needs an eligible status.
	if !superseding && !application.IsRoundEligible() {
		span.SetStatus(codes.Error, "candidate_not_eligible")
		return dto.MeetingResponse{}, ErrCandidateNotEligible
	}

	meeting := models.Meeting{
		RoomName:         s.deriveRoomName(round.JobPostingID, round.RoundNumber),
		JobApplicationID: payload.JobApplicationID,
		InterviewRoundID: payload.InterviewRoundID,
		CandidateUserID:  payload.CandidateUserID,
		ScheduledByID:    actor.ID,
		Status:           models.MeetingStatusPending,
		ScheduledAt:      payload.ScheduledAt,
		Notes:            strings.TrimSpace(payload.Notes),
		InvitationStatus: models.InvitationSent,
		RejectionCount:   carriedRejections,
	}

	// Placeholder keeps the unique token column satisfied until the
	// invitation protocol binds the real one below.
	meeting.ResponseToken = uuid.NewString()

	if err := s.meetings.Create(ctx, &meeting); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "meeting_create_failed")
		return dto.MeetingResponse{}, err
	}

	token, err := s.tokens.IssueToken(ctx, meeting.ID)
	if err != nil {
		span.RecordError(err)
		// Void the half-created meeting so the (application, round) pair
		// stays schedulable; a pending row without a real token would
		// block it with no way to respond.
		meeting.Status = models.MeetingStatusCancelled
		if voidErr := s.meetings.Update(ctx, &meeting); voidErr != nil {
			s.logger.Error().Err(voidErr).Uint("meeting_id", meeting.ID).Msg("failed to void meeting after token issue failure")
		}
		return dto.MeetingResponse{}, fmt.Errorf("issue invitation token: %w", err)
	}
	meeting.ResponseToken = token

	if _, err := s.applications.SetStatus(ctx, application.ID, models.ApplicationStatusInterviewing); err != nil {
		s.logger.Warn().Err(err).Uint("application_id", application.ID).Msg("failed to flip application to interviewing")
	}

	if s.notifier != nil {
		s.notifier.InvitationIssued(ctx, meeting, token)
	}

	observability.MeetingTransitions().WithLabelValues(models.MeetingStatusPending).Inc()

	s.recordAudit(ctx, actor, "meeting.scheduled", meeting.ID, map[string]interface{}{
		"job_application_id": meeting.JobApplicationID,
		"interview_round_id": meeting.InterviewRoundID,
		"room_name":          meeting.RoomName,
		"carried_rejections": carriedRejections,
	})

	created, err := s.meetings.GetByID(ctx, meeting.ID)
	if err != nil {
		return dto.NewMeetingResponse(meeting), nil
	}

	return dto.NewMeetingResponse(created), nil
}

// Start transitions pending → running. Idempotent when already running:
// near-simultaneous join signals collapse into one transition. The
// scheduling HR user holds moderator rights on the call; that grant rides
// on this transition rather than being separate state.
func (s *meetingService) Start(ctx context.Context, meetingID uint, actor Actor) (dto.MeetingResponse, error) {
	unlock := s.locks.Lock(meetingID)
	defer unlock()

	ctx, span := s.tracer.Start(ctx, "meeting.start", trace.WithAttributes(
		attribute.Int64("meeting.id", int64(meetingID)),
	))
	defer span.End()

	meeting, err := s.getMeeting(ctx, meetingID)
	if err != nil {
		return dto.MeetingResponse{}, err
	}

	switch meeting.Status {
	case models.MeetingStatusRunning:
		return dto.NewMeetingResponse(meeting), nil
	case models.MeetingStatusPending:
	default:
		span.SetStatus(codes.Error, "invalid_transition")
		return dto.MeetingResponse{}, fmt.Errorf("%w: start from %s", ErrInvalidTransition, meeting.Status)
	}

	meeting.Status = models.MeetingStatusRunning
	if err := s.meetings.Update(ctx, &meeting); err != nil {
		span.RecordError(err)
		return dto.MeetingResponse{}, err
	}

	observability.MeetingTransitions().WithLabelValues(models.MeetingStatusRunning).Inc()

	s.recordAudit(ctx, actor, "meeting.started", meeting.ID, map[string]interface{}{
		"room_name": meeting.RoomName,
	})

	return dto.NewMeetingResponse(meeting), nil
}

func (s *meetingService) Cancel(ctx context.Context, meetingID uint, actor Actor) (dto.MeetingResponse, error) {
	unlock := s.locks.Lock(meetingID)
	defer unlock()

	ctx, span := s.tracer.Start(ctx, "meeting.cancel", trace.WithAttributes(
		attribute.Int64("meeting.id", int64(meetingID)),
	))
	defer span.End()

	meeting, err := s.getMeeting(ctx, meetingID)
	if err != nil {
		return dto.MeetingResponse{}, err
	}

	if meeting.Status != models.MeetingStatusPending {
		span.SetStatus(codes.Error, "invalid_transition")
		return dto.MeetingResponse{}, fmt.Errorf("%w: cancel from %s", ErrInvalidTransition, meeting.Status)
	}

	meeting.Status = models.MeetingStatusCancelled
	if err := s.meetings.Update(ctx, &meeting); err != nil {
		span.RecordError(err)
		return dto.MeetingResponse{}, err
	}

	observability.MeetingTransitions().WithLabelValues(models.MeetingStatusCancelled).Inc()

	s.recordAudit(ctx, actor, "meeting.cancelled", meeting.ID, nil)

	return dto.NewMeetingResponse(meeting), nil
}

// Finish transitions running → done and flips the owning application to
// interview_completed. The status write is idempotent, so a replayed leave
// signal after the transition surfaces as an invalid transition instead of
// a second application flip.
func (s *meetingService) Finish(ctx context.Context, meetingID uint, actor Actor) (dto.MeetingResponse, error) {
	unlock := s.locks.Lock(meetingID)
	defer unlock()

	ctx, span := s.tracer.Start(ctx, "meeting.finish", trace.WithAttributes(
		attribute.Int64("meeting.id", int64(meetingID)),
	))
	defer span.End()

	meeting, err := s.getMeeting(ctx, meetingID)
	if err != nil {
		return dto.MeetingResponse{}, err
	}

	if meeting.Status != models.MeetingStatusRunning {
		span.SetStatus(codes.Error, "invalid_transition")
		return dto.MeetingResponse{}, fmt.Errorf("%w: finish from %s", ErrInvalidTransition, meeting.Status)
	}

	meeting.Status = models.MeetingStatusDone
	if err := s.meetings.Update(ctx, &meeting); err != nil {
		span.RecordError(err)
		return dto.MeetingResponse{}, err
	}

	if _, err := s.applications.SetStatus(ctx, meeting.JobApplicationID, models.ApplicationStatusInterviewCompleted); err != nil {
		s.logger.Warn().Err(err).Uint("application_id", meeting.JobApplicationID).Msg("failed to flip application to interview_completed")
	}

	observability.MeetingTransitions().WithLabelValues(models.MeetingStatusDone).Inc()

	s.recordAudit(ctx, actor, "meeting.finished", meeting.ID, map[string]interface{}{
		"job_application_id": meeting.JobApplicationID,
	})

	return dto.NewMeetingResponse(meeting), nil
}

func (s *meetingService) Get(ctx context.Context, meetingID uint) (dto.MeetingResponse, error) {
	meeting, err := s.getMeeting(ctx, meetingID)
	if err != nil {
		return dto.MeetingResponse{}, err
	}

	return dto.NewMeetingResponse(meeting), nil
}

func (s *meetingService) List(ctx context.Context, filter dto.MeetingFilter) ([]dto.MeetingResponse, error) {
	meetings, err := s.meetings.List(ctx, repository.MeetingFilter{
		JobApplicationID: filter.JobApplicationID,
		InterviewRoundID: filter.InterviewRoundID,
		CandidateUserID:  filter.CandidateUserID,
		Status:           filter.Status,
	})
	if err != nil {
		return nil, err
	}

	responses := make([]dto.MeetingResponse, 0, len(meetings))
	for _, meeting := range meetings {
		responses = append(responses, dto.NewMeetingResponse(meeting))
	}

	return responses, nil
}

// Resolve returns the raw meeting row for collaborators that need more than
// the API projection, such as the call gateway's moderator check.
func (s *meetingService) Resolve(ctx context.Context, meetingID uint) (models.Meeting, error) {
	return s.getMeeting(ctx, meetingID)
}

func (s *meetingService) getMeeting(ctx context.Context, id uint) (models.Meeting, error) {
	meeting, err := s.meetings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Meeting{}, ErrMeetingNotFound
		}
		return models.Meeting{}, err
	}

	return meeting, nil
}

// schedulePairKey folds an (application, round) pair into one lock key.
// Keys land above the meeting-ID range, so pair locks and the per-meeting
// transition locks sharing the keyed mutex never collide.
func schedulePairKey(applicationID, roundID uint) uint {
	return applicationID<<32 | roundID
}

// deriveRoomName builds a globally unique room handle. The timestamp plus
// random suffix keeps concurrent scheduling on the same round collision free.
func (s *meetingService) deriveRoomName(jobPostingID uint, roundNumber int) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("room-%d-%d-%d-%s", jobPostingID, roundNumber, s.now().UnixNano(), suffix)
}

func (s *meetingService) recordAudit(ctx context.Context, actor Actor, action string, meetingID uint, metadata map[string]interface{}) {
	if s.audit == nil {
		return
	}

	id := meetingID
	_, _ = s.audit.Record(ctx, AuditEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "meeting",
		EntityID:   &id,
		Metadata:   metadata,
	})
}
