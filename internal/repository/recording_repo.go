package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/hireloop/interview-api/internal/models"
)

// RecordingRepository persists recording outcomes.
type RecordingRepository interface {
	GetByMeeting(ctx context.Context, meetingID uint) (models.Recording, error)
	Create(ctx context.Context, recording *models.Recording) error
}

type recordingRepository struct {
	db *gorm.DB
}

// NewRecordingRepository instantiates the repository.
func NewRecordingRepository(db *gorm.DB) RecordingRepository {
	return &recordingRepository{db: db}
}

func (r *recordingRepository) GetByMeeting(ctx context.Context, meetingID uint) (models.Recording, error) {
	var recording models.Recording
	if err := r.db.WithContext(ctx).Where("meeting_id = ?", meetingID).First(&recording).Error; err != nil {
		return models.Recording{}, err
	}

	return recording, nil
}

func (r *recordingRepository) Create(ctx context.Context, recording *models.Recording) error {
	return r.db.WithContext(ctx).Create(recording).Error
}
