package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/hireloop/interview-api/internal/models"
)

// ApplicationRepository exposes the orchestrator's view of job applications.
type ApplicationRepository interface {
	GetByID(ctx context.Context, id uint) (models.JobApplication, error)
	SetStatus(ctx context.Context, id uint, status string) (models.JobApplication, error)
}

type applicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository instantiates the repository.
func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) GetByID(ctx context.Context, id uint) (models.JobApplication, error) {
	var application models.JobApplication
	if err := r.db.WithContext(ctx).First(&application, id).Error; err != nil {
		return models.JobApplication{}, err
	}

	return application, nil
}

// SetStatus is idempotent against repeated delivery: writing the status the
// application already carries is a no-op.
func (r *applicationRepository) SetStatus(ctx context.Context, id uint, status string) (models.JobApplication, error) {
	var application models.JobApplication
	if err := r.db.WithContext(ctx).First(&application, id).Error; err != nil {
		return models.JobApplication{}, err
	}

	if application.Status == status {
		return application, nil
	}

	application.Status = status
	if err := r.db.WithContext(ctx).Save(&application).Error; err != nil {
		return models.JobApplication{}, err
	}

	return application, nil
}
