package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/hireloop/interview-api/internal/dto"
	"github.com/hireloop/interview-api/internal/models"
	"github.com/hireloop/interview-api/internal/repository"
)

// RoundService manages a posting's interview round definitions.
type RoundService interface {
	Create(ctx context.Context, payload dto.RoundCreateRequest, actor Actor) (dto.RoundResponse, error)
	Update(ctx context.Context, roundID uint, payload dto.RoundUpdateRequest, actor Actor) (dto.RoundResponse, error)
	Get(ctx context.Context, roundID uint) (dto.RoundResponse, error)
	ListByPosting(ctx context.Context, jobPostingID uint) ([]dto.RoundResponse, error)
}

type roundService struct {
	rounds    repository.RoundRepository
	audit     AuditRecorder
	validator *validator.Validate
	logger    zerolog.Logger
}

func NewRoundService(rounds repository.RoundRepository, audit AuditRecorder, validate *validator.Validate, logger zerolog.Logger) RoundService {
	return &roundService{
		rounds:    rounds,
		audit:     audit,
		validator: validate,
		logger:    logger.With().Str("component", "round_service").Logger(),
	}
}

func (s *roundService) Create(ctx context.Context, payload dto.RoundCreateRequest, actor Actor) (dto.RoundResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.RoundResponse{}, err
	}

	round := models.InterviewRound{
		JobPostingID: payload.JobPostingID,
		RoundNumber:  payload.RoundNumber,
		Title:        payload.Title,
		Duration:     payload.Duration,
		IsActive:     true,
	}

	if err := s.rounds.Create(ctx, &round); err != nil {
		return dto.RoundResponse{}, err
	}

	if s.audit != nil {
		id := round.ID
		_, _ = s.audit.Record(ctx, AuditEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     "round.created",
			EntityType: "interview_round",
			EntityID:   &id,
			Metadata: map[string]interface{}{
				"job_posting_id": round.JobPostingID,
				"round_number":   round.RoundNumber,
			},
		})
	}

	return dto.NewRoundResponse(round), nil
}

// Update edits round metadata. Rounds already referenced by meetings keep
// their title and duration frozen; only the active flag may still change.
func (s *roundService) Update(ctx context.Context, roundID uint, payload dto.RoundUpdateRequest, actor Actor) (dto.RoundResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.RoundResponse{}, err
	}

	round, err := s.rounds.GetByID(ctx, roundID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RoundResponse{}, ErrRoundNotFound
		}
		return dto.RoundResponse{}, err
	}

	if payload.Title != nil || payload.Duration != nil {
		referenced, err := s.rounds.CountMeetings(ctx, round.ID)
		if err != nil {
			return dto.RoundResponse{}, err
		}
		if referenced > 0 {
			return dto.RoundResponse{}, ErrRoundFrozen
		}
	}

	if payload.Title != nil {
		round.Title = *payload.Title
	}
	if payload.Duration != nil {
		round.Duration = *payload.Duration
	}
	if payload.IsActive != nil {
		round.IsActive = *payload.IsActive
	}

	if err := s.rounds.Update(ctx, &round); err != nil {
		return dto.RoundResponse{}, err
	}

	if s.audit != nil {
		id := round.ID
		_, _ = s.audit.Record(ctx, AuditEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     "round.updated",
			EntityType: "interview_round",
			EntityID:   &id,
			Metadata:   nil,
		})
	}

	return dto.NewRoundResponse(round), nil
}

func (s *roundService) Get(ctx context.Context, roundID uint) (dto.RoundResponse, error) {
	round, err := s.rounds.GetByID(ctx, roundID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RoundResponse{}, ErrRoundNotFound
		}
		return dto.RoundResponse{}, err
	}

	return dto.NewRoundResponse(round), nil
}

func (s *roundService) ListByPosting(ctx context.Context, jobPostingID uint) ([]dto.RoundResponse, error) {
	rounds, err := s.rounds.ListByPosting(ctx, jobPostingID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.RoundResponse, 0, len(rounds))
	for _, round := range rounds {
		responses = append(responses, dto.NewRoundResponse(round))
	}

	return responses, nil
}
