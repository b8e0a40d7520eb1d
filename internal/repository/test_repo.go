package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/hireloop/interview-api/internal/models"
)

// TestRepository defines data operations for screening tests.
type TestRepository interface {
	GetByID(ctx context.Context, id uint) (models.ScreeningTest, error)
	ListByPosting(ctx context.Context, jobPostingID uint) ([]models.ScreeningTest, error)
	Create(ctx context.Context, test *models.ScreeningTest) error
}

type testRepository struct {
	db *gorm.DB
}

// NewTestRepository instantiates the repository.
func NewTestRepository(db *gorm.DB) TestRepository {
	return &testRepository{db: db}
}

func (r *testRepository) GetByID(ctx context.Context, id uint) (models.ScreeningTest, error) {
	var test models.ScreeningTest
	if err := r.db.WithContext(ctx).Preload("Questions").First(&test, id).Error; err != nil {
		return models.ScreeningTest{}, err
	}

	return test, nil
}

func (r *testRepository) ListByPosting(ctx context.Context, jobPostingID uint) ([]models.ScreeningTest, error) {
	var tests []models.ScreeningTest
	if err := r.db.WithContext(ctx).
		Where("job_posting_id = ?", jobPostingID).
		Order("created_at ASC").
		Find(&tests).Error; err != nil {
		return nil, err
	}

	return tests, nil
}

func (r *testRepository) Create(ctx context.Context, test *models.ScreeningTest) error {
	return r.db.WithContext(ctx).Create(test).Error
}
