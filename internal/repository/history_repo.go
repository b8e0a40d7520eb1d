package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/hireloop/interview-api/internal/models"
)

// EvaluationHistoryRepository persists meeting evaluation snapshots.
type EvaluationHistoryRepository interface {
	Create(ctx context.Context, history *models.EvaluationHistory) error
	ListByMeeting(ctx context.Context, meetingID uint) ([]models.EvaluationHistory, error)
}

type evaluationHistoryRepository struct {
	db *gorm.DB
}

func NewEvaluationHistoryRepository(db *gorm.DB) EvaluationHistoryRepository {
	return &evaluationHistoryRepository{db: db}
}

func (r *evaluationHistoryRepository) Create(ctx context.Context, history *models.EvaluationHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}

func (r *evaluationHistoryRepository) ListByMeeting(ctx context.Context, meetingID uint) ([]models.EvaluationHistory, error) {
	var rows []models.EvaluationHistory
	err := r.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		Order("evaluated_at DESC").
		Find(&rows).Error
	return rows, err
}
