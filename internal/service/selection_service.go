package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hireloop/interview-api/internal/dto"
	"github.com/hireloop/interview-api/internal/models"
	"github.com/hireloop/interview-api/internal/observability"
	"github.com/hireloop/interview-api/internal/repository"
)

// SelectionService advances the top-N graded candidates of a posting.
type SelectionService interface {
	SelectTopN(ctx context.Context, payload dto.SelectionRequest, actor Actor) (dto.SelectionResponse, error)
}

type selectionService struct {
	submissions  repository.SubmissionRepository
	applications repository.ApplicationRepository
	notifier     Notifier
	audit        AuditRecorder
	validator    *validator.Validate
	logger       zerolog.Logger
	tracer       trace.Tracer
}

func NewSelectionService(submissions repository.SubmissionRepository, applications repository.ApplicationRepository, notifier Notifier, audit AuditRecorder, validate *validator.Validate, logger zerolog.Logger) SelectionService {
	return &selectionService{
		submissions:  submissions,
		applications: applications,
		notifier:     notifier,
		audit:        audit,
		validator:    validate,
		logger:       logger.With().Str("component", "selection_service").Logger(),
		tracer:       otel.Tracer("github.com/hireloop/interview-api/internal/service/selection"),
	}
}

// SelectTopN picks the N best fully graded submissions for a posting and
// advances each application. Every candidate is an independent unit of work:
// one failed advancement is reported in its item and never rolls back or
// stops the rest of the batch.
func (s *selectionService) SelectTopN(ctx context.Context, payload dto.SelectionRequest, actor Actor) (dto.SelectionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SelectionResponse{}, err
	}

	descending := !strings.EqualFold(payload.Order, "asc")

	ctx, span := s.tracer.Start(ctx, "selection.select_top_n", trace.WithAttributes(
		attribute.Int64("posting.id", int64(payload.JobPostingID)),
		attribute.Int("selection.n", payload.N),
		attribute.Bool("selection.descending", descending),
	))
	defer span.End()

	graded, err := s.submissions.ListGradedByPosting(ctx, payload.JobPostingID, descending)
	if err != nil {
		span.RecordError(err)
		return dto.SelectionResponse{}, err
	}

	if len(graded) > payload.N {
		graded = graded[:payload.N]
	}

	response := dto.SelectionResponse{Items: make([]dto.SelectionItem, 0, len(graded))}
	for _, submission := range graded {
		item := dto.SelectionItem{
			SubmissionID:     submission.ID,
			JobApplicationID: submission.JobApplicationID,
			TotalScore:       submission.TotalScoreAchieved,
		}

		application, err := s.applications.SetStatus(ctx, submission.JobApplicationID, models.ApplicationStatusAdvanced)
		if err != nil {
			item.Error = err.Error()
			response.Failed++
			s.logger.Error().Err(err).
				Uint("application_id", submission.JobApplicationID).
				Uint("submission_id", submission.ID).
				Msg("failed to advance selected candidate")
		} else {
			item.Advanced = true
			response.Advanced++
			if s.notifier != nil {
				s.notifier.ApplicationAdvanced(ctx, application)
			}
		}

		response.Items = append(response.Items, item)
	}

	postingID := payload.JobPostingID
	if s.audit != nil {
		_, _ = s.audit.Record(ctx, AuditEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     "selection.top_n",
			EntityType: "job_posting",
			EntityID:   &postingID,
			Metadata: map[string]interface{}{
				"requested": payload.N,
				"advanced":  response.Advanced,
				"failed":    response.Failed,
			},
		})
	}

	observability.SelectionsRun().Inc()

	return response, nil
}
