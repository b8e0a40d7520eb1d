package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/hireloop/interview-api/internal/models"
)

// RoundRepository defines data operations for interview rounds.
type RoundRepository interface {
	ListByPosting(ctx context.Context, jobPostingID uint) ([]models.InterviewRound, error)
	GetByID(ctx context.Context, id uint) (models.InterviewRound, error)
	Create(ctx context.Context, round *models.InterviewRound) error
	Update(ctx context.Context, round *models.InterviewRound) error
	CountMeetings(ctx context.Context, roundID uint) (int64, error)
}

type roundRepository struct {
	db *gorm.DB
}

// NewRoundRepository instantiates the repository.
func NewRoundRepository(db *gorm.DB) RoundRepository {
	return &roundRepository{db: db}
}

func (r *roundRepository) ListByPosting(ctx context.Context, jobPostingID uint) ([]models.InterviewRound, error) {
	var rounds []models.InterviewRound
	if err := r.db.WithContext(ctx).
		Where("job_posting_id = ?", jobPostingID).
		Order("round_number ASC").
		Find(&rounds).Error; err != nil {
		return nil, err
	}

	return rounds, nil
}

func (r *roundRepository) GetByID(ctx context.Context, id uint) (models.InterviewRound, error) {
	var round models.InterviewRound
	if err := r.db.WithContext(ctx).First(&round, id).Error; err != nil {
		return models.InterviewRound{}, err
	}

	return round, nil
}

func (r *roundRepository) Create(ctx context.Context, round *models.InterviewRound) error {
	return r.db.WithContext(ctx).Create(round).Error
}

func (r *roundRepository) Update(ctx context.Context, round *models.InterviewRound) error {
	return r.db.WithContext(ctx).Save(round).Error
}

func (r *roundRepository) CountMeetings(ctx context.Context, roundID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Meeting{}).
		Where("interview_round_id = ?", roundID).
		Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}
