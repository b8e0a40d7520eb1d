package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
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

const (
	// ActionAccept confirms the proposed slot.
	ActionAccept = "ACCEPT"
	// ActionReject asks for a reschedule, or cancels at the ceiling.
	ActionReject = "REJECT"

	tokenCacheTTL = 30 * 24 * time.Hour
)

// InvitationService implements the candidate response protocol.
type InvitationService interface {
	TokenIssuer
	Verify(ctx context.Context, token string) (dto.InvitationView, error)
	Respond(ctx context.Context, payload dto.InvitationRespondRequest) (dto.InvitationRespondResponse, error)
}

type invitationService struct {
	meetings     repository.MeetingRepository
	applications repository.ApplicationRepository
	notifier     Notifier
	audit        AuditRecorder
	redis        *redis.Client
	cachePrefix  string
	validator    *validator.Validate
	logger       zerolog.Logger
	tracer       trace.Tracer
	locks        *keyedMutex
}

// NewInvitationService constructs the invitation protocol service.
func NewInvitationService(meetings repository.MeetingRepository, applications repository.ApplicationRepository, notifier Notifier, audit AuditRecorder, redisClient *redis.Client, validate *validator.Validate, logger zerolog.Logger) InvitationService {
	return &invitationService{
		meetings:     meetings,
		applications: applications,
		notifier:     notifier,
		audit:        audit,
		redis:        redisClient,
		cachePrefix:  "invite:token",
		validator:    validate,
		logger:       logger.With().Str("component", "invitation_service").Logger(),
		tracer:       otel.Tracer("github.com/hireloop/interview-api/internal/service/invitation"),
		locks:        newKeyedMutex(),
	}
}

// IssueToken mints a fresh opaque token and binds it to the meeting,
// replacing any previous one.
func (s *invitationService) IssueToken(ctx context.Context, meetingID uint) (string, error) {
	meeting, err := s.meetings.GetByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrMeetingNotFound
		}
		return "", err
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	meeting.ResponseToken = token
	if err := s.meetings.Update(ctx, &meeting); err != nil {
		return "", err
	}

	s.cacheToken(ctx, token, meetingID)

	return token, nil
}

// Verify resolves a token to its meeting and current invitation state for
// the public response page. Unknown tokens fail; tokens of meetings whose
// invitation already reached a terminal state still resolve so a stale page
// can show the authoritative outcome.
func (s *invitationService) Verify(ctx context.Context, token string) (dto.InvitationView, error) {
	ctx, span := s.tracer.Start(ctx, "invitation.verify")
	defer span.End()

	meeting, err := s.resolve(ctx, token)
	if err != nil {
		span.SetStatus(codes.Error, "invalid_token")
		return dto.InvitationView{}, err
	}

	return dto.InvitationView{
		Meeting:          dto.NewMeetingResponse(meeting),
		InvitationStatus: meeting.InvitationStatus,
		RejectionCount:   meeting.RejectionCount,
	}, nil
}

func (s *invitationService) Respond(ctx context.Context, payload dto.InvitationRespondRequest) (dto.InvitationRespondResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.InvitationRespondResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "invitation.respond", trace.WithAttributes(
		attribute.String("invitation.action", payload.Action),
	))
	defer span.End()

	meeting, err := s.resolve(ctx, payload.Token)
	if err != nil {
		span.SetStatus(codes.Error, "invalid_token")
		return dto.InvitationRespondResponse{}, err
	}

	unlock := s.locks.Lock(meeting.ID)
	defer unlock()

	// Re-read under the lock so two concurrent responses cannot both
	// observe SENT.
	meeting, err = s.meetings.GetByID(ctx, meeting.ID)
	if err != nil {
		return dto.InvitationRespondResponse{}, err
	}

	// Idempotent guard: a stale page re-submitting is a no-op, not an error.
	if meeting.InvitationStatus != models.InvitationSent {
		span.SetAttributes(attribute.Bool("invitation.idempotent", true))
		return s.echo(meeting, false), nil
	}

	switch payload.Action {
	case ActionAccept:
		meeting.InvitationStatus = models.InvitationConfirmed
		if err := s.meetings.Update(ctx, &meeting); err != nil {
			span.RecordError(err)
			return dto.InvitationRespondResponse{}, err
		}

		observability.InvitationResponses().WithLabelValues("accept").Inc()
		s.recordAudit(ctx, meeting, "invitation.accepted", nil)

		return s.echo(meeting, true), nil

	case ActionReject:
		meeting.RejectionCount++

		if meeting.RejectionCount >= models.RejectionCeiling {
			// Hitting the ceiling is a normal terminal outcome, not an
			// error: the invitation and the meeting both end here and the
			// application cascade-cancels.
			meeting.InvitationStatus = models.InvitationCancelled
			meeting.Status = models.MeetingStatusCancelled
			if err := s.meetings.Update(ctx, &meeting); err != nil {
				span.RecordError(err)
				return dto.InvitationRespondResponse{}, err
			}

			application, err := s.applications.SetStatus(ctx, meeting.JobApplicationID, models.ApplicationStatusRejected)
			if err != nil {
				s.logger.Error().Err(err).Uint("application_id", meeting.JobApplicationID).Msg("failed to cascade-cancel application")
			} else if s.notifier != nil {
				s.notifier.ApplicationCancelled(ctx, application)
			}

			observability.InvitationResponses().WithLabelValues("reject_ceiling").Inc()
			s.recordAudit(ctx, meeting, "invitation.cancelled", map[string]interface{}{
				"reason":          strings.TrimSpace(payload.Reason),
				"rejection_count": meeting.RejectionCount,
			})

			return s.echo(meeting, true), nil
		}

		// Below the ceiling the meeting itself stays pending for audit; HR
		// must schedule a replacement manually.
		meeting.InvitationStatus = models.InvitationRescheduleRequested
		if err := s.meetings.Update(ctx, &meeting); err != nil {
			span.RecordError(err)
			return dto.InvitationRespondResponse{}, err
		}

		observability.InvitationResponses().WithLabelValues("reject").Inc()
		s.recordAudit(ctx, meeting, "invitation.reschedule_requested", map[string]interface{}{
			"reason":            strings.TrimSpace(payload.Reason),
			"rejection_count":   meeting.RejectionCount,
			"remaining_chances": meeting.RemainingChances(),
		})

		return s.echo(meeting, true), nil

	default:
		return dto.InvitationRespondResponse{}, errors.New("unsupported action: " + payload.Action)
	}
}

// echo reports the authoritative post-call invitation state.
func (s *invitationService) echo(meeting models.Meeting, mutated bool) dto.InvitationRespondResponse {
	response := dto.InvitationRespondResponse{
		InvitationStatus:     meeting.InvitationStatus,
		ApplicationCancelled: meeting.InvitationStatus == models.InvitationCancelled,
		Mutated:              mutated,
	}

	if meeting.InvitationStatus == models.InvitationRescheduleRequested {
		remaining := meeting.RemainingChances()
		response.RemainingChances = &remaining
	}

	return response
}

func (s *invitationService) resolve(ctx context.Context, token string) (models.Meeting, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.Meeting{}, ErrInvalidToken
	}

	if meetingID, ok := s.cachedMeetingID(ctx, token); ok {
		meeting, err := s.meetings.GetByID(ctx, meetingID)
		if err == nil && meeting.ResponseToken == token {
			return meeting, nil
		}
	}

	meeting, err := s.meetings.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Meeting{}, ErrInvalidToken
		}
		return models.Meeting{}, err
	}

	s.cacheToken(ctx, token, meeting.ID)

	return meeting, nil
}

func (s *invitationService) cacheToken(ctx context.Context, token string, meetingID uint) {
	if s.redis == nil {
		return
	}

	key := s.cachePrefix + ":" + token
	if err := s.redis.Set(ctx, key, meetingID, tokenCacheTTL).Err(); err != nil {
		s.logger.Debug().Err(err).Msg("failed to cache invitation token")
	}
}

func (s *invitationService) cachedMeetingID(ctx context.Context, token string) (uint, bool) {
	if s.redis == nil {
		return 0, false
	}

	value, err := s.redis.Get(ctx, s.cachePrefix+":"+token).Result()
	if err != nil {
		return 0, false
	}

	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, false
	}

	return uint(id), true
}

func (s *invitationService) recordAudit(ctx context.Context, meeting models.Meeting, action string, metadata map[string]interface{}) {
	if s.audit == nil {
		return
	}

	id := meeting.ID
	_, _ = s.audit.Record(ctx, AuditEntry{
		ActorID:    meeting.CandidateUserID,
		ActorRole:  "candidate",
		Action:     action,
		EntityType: "meeting",
		EntityID:   &id,
		Metadata:   metadata,
	})
}
