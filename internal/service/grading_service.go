package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
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
	"github.com/hireloop/interview-api/pkg/oracle"
)

const (
	autoGradeConcurrency = 4
	oracleCallTimeout    = 20 * time.Second
)

// GradingService covers both evaluation flows: meeting score/feedback and
// written-test grading.
type GradingService interface {
	SubmitEvaluation(ctx context.Context, meetingID uint, payload dto.EvaluationSubmitRequest, actor Actor) (dto.MeetingResponse, error)
	StartTest(ctx context.Context, payload dto.StartTestRequest) (dto.SubmissionResponse, error)
	UpsertAnswer(ctx context.Context, submissionID uint, payload dto.AnswerUpsertRequest, userID uint) (dto.SubmissionResponse, error)
	SubmitTest(ctx context.Context, submissionID uint, userID uint) (dto.SubmissionResponse, error)
	AutoGrade(ctx context.Context, submissionID uint, actor Actor) (dto.SubmissionResponse, error)
	OverrideAnswerScore(ctx context.Context, answerID uint, payload dto.AnswerOverrideRequest, actor Actor) (dto.AnswerResponse, error)
	FinalizeGrading(ctx context.Context, submissionID uint, actor Actor) (dto.SubmissionResponse, error)
	GetSubmission(ctx context.Context, submissionID uint) (dto.SubmissionResponse, error)
}

type gradingService struct {
	meetings     repository.MeetingRepository
	submissions  repository.SubmissionRepository
	tests        repository.TestRepository
	applications repository.ApplicationRepository
	evaluations  repository.EvaluationHistoryRepository
	scorer       oracle.Scorer
	notifier     Notifier
	audit        AuditRecorder
	validator    *validator.Validate
	logger       zerolog.Logger
	tracer       trace.Tracer
	meetingLocks *keyedMutex
	subLocks     *keyedMutex
	now          func() time.Time

	inflightMu sync.Mutex
	inflight   map[uint]*sync.WaitGroup
}

// NewGradingService constructs the evaluation and grading engine. The scorer
// may be nil: automated suggestions are skipped and manual grading proceeds.
func NewGradingService(meetings repository.MeetingRepository, submissions repository.SubmissionRepository, tests repository.TestRepository, applications repository.ApplicationRepository, evaluations repository.EvaluationHistoryRepository, scorer oracle.Scorer, notifier Notifier, audit AuditRecorder, validate *validator.Validate, logger zerolog.Logger) GradingService {
	return &gradingService{
		meetings:     meetings,
		submissions:  submissions,
		tests:        tests,
		applications: applications,
		evaluations:  evaluations,
		scorer:       scorer,
		notifier:     notifier,
		audit:        audit,
		validator:    validate,
		logger:       logger.With().Str("component", "grading_service").Logger(),
		tracer:       otel.Tracer("github.com/hireloop/interview-api/internal/service/grading"),
		meetingLocks: newKeyedMutex(),
		subLocks:     newKeyedMutex(),
		now:          time.Now,
		inflight:     make(map[uint]*sync.WaitGroup),
	}
}

// SubmitEvaluation stores the one-time meeting score and feedback. Legal
// only once the meeting is done; the evaluation lock is permanent.
func (s *gradingService) SubmitEvaluation(ctx context.Context, meetingID uint, payload dto.EvaluationSubmitRequest, actor Actor) (dto.MeetingResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.MeetingResponse{}, err
	}

	unlock := s.meetingLocks.Lock(meetingID)
	defer unlock()

	ctx, span := s.tracer.Start(ctx, "grading.submit_evaluation", trace.WithAttributes(
		attribute.Int64("meeting.id", int64(meetingID)),
		attribute.Bool("grading.advance_candidate", payload.AdvanceCandidate),
	))
	defer span.End()

	meeting, err := s.meetings.GetByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MeetingResponse{}, ErrMeetingNotFound
		}
		return dto.MeetingResponse{}, err
	}

	if meeting.EvaluationLocked {
		span.SetStatus(codes.Error, "already_evaluated")
		return dto.MeetingResponse{}, ErrAlreadyEvaluated
	}

	if meeting.Status != models.MeetingStatusDone {
		span.SetStatus(codes.Error, "invalid_transition")
		return dto.MeetingResponse{}, fmt.Errorf("%w: evaluate from %s", ErrInvalidTransition, meeting.Status)
	}

	score := payload.Score
	feedback := strings.TrimSpace(payload.Feedback)
	meeting.Score = &score
	meeting.Feedback = &feedback
	meeting.EvaluationLocked = true

	if err := s.meetings.Update(ctx, &meeting); err != nil {
		span.RecordError(err)
		return dto.MeetingResponse{}, err
	}

	history := models.EvaluationHistory{
		MeetingID:   meeting.ID,
		Score:       score,
		Feedback:    feedback,
		EvaluatedBy: actor.ID,
		EvaluatedAt: s.now(),
	}
	if err := s.evaluations.Create(ctx, &history); err != nil {
		s.logger.Warn().Err(err).Uint("meeting_id", meeting.ID).Msg("failed to persist evaluation history")
	}

	if payload.AdvanceCandidate {
		application, err := s.applications.SetStatus(ctx, meeting.JobApplicationID, models.ApplicationStatusAdvanced)
		if err != nil {
			s.logger.Error().Err(err).Uint("application_id", meeting.JobApplicationID).Msg("failed to advance application")
		} else if s.notifier != nil {
			s.notifier.ApplicationAdvanced(ctx, application)
		}
	}

	s.recordAudit(ctx, actor, "meeting.evaluated", "meeting", meeting.ID, map[string]interface{}{
		"score":   score,
		"advance": payload.AdvanceCandidate,
	})

	observability.EvaluationsSubmitted().Inc()

	return dto.NewMeetingResponse(meeting), nil
}

// StartTest opens a submission with one empty answer row per bank question.
func (s *gradingService) StartTest(ctx context.Context, payload dto.StartTestRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	test, err := s.tests.GetByID(ctx, payload.ScreeningTestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrTestNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if existing, err := s.submissions.GetByTestAndUser(ctx, test.ID, payload.UserID); err == nil {
		return dto.NewSubmissionResponse(existing), nil
	}

	submission := models.TestSubmission{
		ScreeningTestID:  test.ID,
		JobApplicationID: payload.JobApplicationID,
		UserID:           payload.UserID,
		Status:           models.SubmissionNotStarted,
	}
	for _, question := range test.Questions {
		submission.Answers = append(submission.Answers, models.Answer{QuestionID: question.ID})
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	created, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		return dto.NewSubmissionResponse(submission), nil
	}

	return dto.NewSubmissionResponse(created), nil
}

// UpsertAnswer records the candidate's answer text and moves the submission
// into danglam on first touch.
func (s *gradingService) UpsertAnswer(ctx context.Context, submissionID uint, payload dto.AnswerUpsertRequest, userID uint) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	unlock := s.subLocks.Lock(submissionID)
	defer unlock()

	submission, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if submission.UserID != userID {
		return dto.SubmissionResponse{}, ErrSubmissionNotFound
	}

	if submission.Status != models.SubmissionNotStarted && submission.Status != models.SubmissionInProgress {
		return dto.SubmissionResponse{}, fmt.Errorf("%w: answer while %s", ErrInvalidTransition, submission.Status)
	}

	var target *models.Answer
	for i := range submission.Answers {
		if submission.Answers[i].QuestionID == payload.QuestionID {
			target = &submission.Answers[i]
			break
		}
	}
	if target == nil {
		return dto.SubmissionResponse{}, ErrAnswerNotFound
	}

	target.AnswerText = payload.AnswerText
	if err := s.submissions.SaveAnswer(ctx, target); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if submission.Status == models.SubmissionNotStarted {
		submission.Status = models.SubmissionInProgress
		if err := s.submissions.Update(ctx, &submission); err != nil {
			return dto.SubmissionResponse{}, err
		}
	}

	return dto.NewSubmissionResponse(submission), nil
}

// SubmitTest hands the submission in, making it gradable.
func (s *gradingService) SubmitTest(ctx context.Context, submissionID uint, userID uint) (dto.SubmissionResponse, error) {
	unlock := s.subLocks.Lock(submissionID)
	defer unlock()

	submission, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if submission.UserID != userID {
		return dto.SubmissionResponse{}, ErrSubmissionNotFound
	}

	switch submission.Status {
	case models.SubmissionSubmitted:
		return dto.NewSubmissionResponse(submission), nil
	case models.SubmissionNotStarted, models.SubmissionInProgress:
	default:
		return dto.SubmissionResponse{}, fmt.Errorf("%w: submit from %s", ErrInvalidTransition, submission.Status)
	}

	submittedAt := s.now()
	submission.Status = models.SubmissionSubmitted
	submission.SubmittedAt = &submittedAt
	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

// AutoGrade asks the scoring oracle for a suggestion on every answer that
// has no HR override yet. Answers are scored concurrently; oracle failures
// skip the answer rather than failing the call. Never legal once finalized.
func (s *gradingService) AutoGrade(ctx context.Context, submissionID uint, actor Actor) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.auto_grade", trace.WithAttributes(
		attribute.Int64("submission.id", int64(submissionID)),
	))
	defer span.End()

	submission, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if submission.IsFinalized() {
		span.SetStatus(codes.Error, "finalized")
		return dto.SubmissionResponse{}, ErrSubmissionFinalized
	}

	if submission.Status != models.SubmissionSubmitted {
		span.SetStatus(codes.Error, "not_gradable")
		return dto.SubmissionResponse{}, ErrSubmissionNotGradable
	}

	if s.scorer == nil {
		s.logger.Info().Uint("submission_id", submissionID).Msg("scoring oracle unavailable, skipping auto-grade")
		return dto.NewSubmissionResponse(submission), nil
	}

	done := s.trackInflight(submissionID)
	defer done()

	sem := make(chan struct{}, autoGradeConcurrency)
	var wg sync.WaitGroup

	for i := range submission.Answers {
		answer := &submission.Answers[i]
		if answer.Overridden || strings.TrimSpace(answer.AnswerText) == "" {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(answer *models.Answer) {
			defer wg.Done()
			defer func() { <-sem }()
			s.gradeAnswer(ctx, answer)
		}(answer)
	}

	wg.Wait()

	s.recordAudit(ctx, actor, "submission.auto_graded", "test_submission", submission.ID, nil)

	refreshed, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(refreshed), nil
}

func (s *gradingService) gradeAnswer(ctx context.Context, answer *models.Answer) {
	callCtx, cancel := context.WithTimeout(ctx, oracleCallTimeout)
	defer cancel()

	result, err := s.scorer.Score(callCtx, oracle.ScoreRequest{
		QuestionID:      answer.QuestionID,
		Question:        answer.Question.Content,
		CandidateAnswer: answer.AnswerText,
		ReferenceAnswer: answer.Question.ReferenceAnswer,
		MaxScore:        answer.Question.MaxScore,
	})
	if err != nil {
		observability.OracleSkips().Inc()
		s.logger.Warn().Err(err).Uint("answer_id", answer.ID).Msg("oracle scoring failed, leaving answer for manual grading")
		return
	}

	// An HR override may have landed while the oracle call was in flight.
	// The override always wins: re-read the stored row under the submission
	// lock and only then write the suggestion.
	unlock := s.subLocks.Lock(answer.TestSubmissionID)
	defer unlock()

	stored, err := s.submissions.GetAnswer(ctx, answer.ID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("answer_id", answer.ID).Msg("failed to reload answer after oracle call")
		return
	}
	if stored.Overridden {
		return
	}

	similarity := result.Similarity
	score := models.QuantizeScore(result.SuggestedScore, answer.Question.MaxScore)
	stored.AISimilarity = &similarity
	stored.ScoreAchieved = &score

	if err := s.submissions.SaveAnswer(ctx, &stored); err != nil {
		s.logger.Warn().Err(err).Uint("answer_id", answer.ID).Msg("failed to persist auto-graded answer")
	}
}

// OverrideAnswerScore applies an HR score with round-to-nearest-0.5
// quantization clamped to the question's max. Forbidden once the submission
// is finalized, so the stored total can never drift from the answers.
func (s *gradingService) OverrideAnswerScore(ctx context.Context, answerID uint, payload dto.AnswerOverrideRequest, actor Actor) (dto.AnswerResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AnswerResponse{}, err
	}

	answer, err := s.submissions.GetAnswer(ctx, answerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnswerResponse{}, ErrAnswerNotFound
		}
		return dto.AnswerResponse{}, err
	}

	unlock := s.subLocks.Lock(answer.TestSubmissionID)
	defer unlock()

	submission, err := s.getSubmission(ctx, answer.TestSubmissionID)
	if err != nil {
		return dto.AnswerResponse{}, err
	}

	if submission.IsFinalized() {
		return dto.AnswerResponse{}, ErrSubmissionFinalized
	}

	score := models.QuantizeScore(payload.Score, answer.Question.MaxScore)
	answer.ScoreAchieved = &score
	answer.Overridden = true
	answer.Comment = strings.TrimSpace(payload.Comment)

	if err := s.submissions.SaveAnswer(ctx, &answer); err != nil {
		return dto.AnswerResponse{}, err
	}

	history := models.AnswerGradeHistory{
		AnswerID: answer.ID,
		Score:    score,
		Comment:  answer.Comment,
		GradedBy: actor.ID,
		GradedAt: s.now(),
	}
	if err := s.submissions.CreateGradeHistory(ctx, &history); err != nil {
		s.logger.Warn().Err(err).Uint("answer_id", answer.ID).Msg("failed to persist grade history")
	}

	s.recordAudit(ctx, actor, "answer.overridden", "answer", answer.ID, map[string]interface{}{
		"score":      score,
		"is_correct": answer.IsCorrect(),
	})

	return dto.NewAnswerResponse(answer), nil
}

// FinalizeGrading sums the answer scores into the total and locks the
// submission. It waits for in-flight auto-grades of the submission first so
// the total reflects every score that was already underway.
func (s *gradingService) FinalizeGrading(ctx context.Context, submissionID uint, actor Actor) (dto.SubmissionResponse, error) {
	s.waitInflight(submissionID)

	unlock := s.subLocks.Lock(submissionID)
	defer unlock()

	ctx, span := s.tracer.Start(ctx, "grading.finalize", trace.WithAttributes(
		attribute.Int64("submission.id", int64(submissionID)),
	))
	defer span.End()

	submission, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if submission.IsFinalized() {
		span.SetStatus(codes.Error, "already_finalized")
		return dto.SubmissionResponse{}, ErrAlreadyFinalized
	}

	if submission.Status != models.SubmissionSubmitted {
		span.SetStatus(codes.Error, "not_gradable")
		return dto.SubmissionResponse{}, ErrSubmissionNotGradable
	}

	total := 0.0
	for _, answer := range submission.Answers {
		if answer.ScoreAchieved != nil {
			total += *answer.ScoreAchieved
		}
	}

	gradedAt := s.now()
	submission.TotalScoreAchieved = &total
	submission.Status = models.SubmissionGraded
	submission.GradedAt = &gradedAt

	if err := s.submissions.Update(ctx, &submission); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	s.recordAudit(ctx, actor, "submission.finalized", "test_submission", submission.ID, map[string]interface{}{
		"total_score": total,
	})

	observability.GradingsFinalized().Inc()

	return dto.NewSubmissionResponse(submission), nil
}

func (s *gradingService) GetSubmission(ctx context.Context, submissionID uint) (dto.SubmissionResponse, error) {
	submission, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *gradingService) getSubmission(ctx context.Context, id uint) (models.TestSubmission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.TestSubmission{}, ErrSubmissionNotFound
		}
		return models.TestSubmission{}, err
	}

	return submission, nil
}

func (s *gradingService) trackInflight(submissionID uint) func() {
	s.inflightMu.Lock()
	wg, ok := s.inflight[submissionID]
	if !ok {
		wg = &sync.WaitGroup{}
		s.inflight[submissionID] = wg
	}
	wg.Add(1)
	s.inflightMu.Unlock()

	return wg.Done
}

func (s *gradingService) waitInflight(submissionID uint) {
	s.inflightMu.Lock()
	wg := s.inflight[submissionID]
	s.inflightMu.Unlock()

	if wg != nil {
		wg.Wait()
	}
}

func (s *gradingService) recordAudit(ctx context.Context, actor Actor, action, entityType string, entityID uint, metadata map[string]interface{}) {
	if s.audit == nil {
		return
	}

	id := entityID
	_, _ = s.audit.Record(ctx, AuditEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   &id,
		Metadata:   metadata,
	})
}
