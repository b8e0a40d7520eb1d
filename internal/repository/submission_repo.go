package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/hireloop/interview-api/internal/models"
)

// SubmissionRepository defines data operations for test submissions and answers.
type SubmissionRepository interface {
	GetByID(ctx context.Context, id uint) (models.TestSubmission, error)
	GetByTestAndUser(ctx context.Context, testID, userID uint) (models.TestSubmission, error)
	Create(ctx context.Context, submission *models.TestSubmission) error
	Update(ctx context.Context, submission *models.TestSubmission) error
	GetAnswer(ctx context.Context, id uint) (models.Answer, error)
	SaveAnswer(ctx context.Context, answer *models.Answer) error
	CreateGradeHistory(ctx context.Context, history *models.AnswerGradeHistory) error
	ListGradedByPosting(ctx context.Context, jobPostingID uint, descending bool) ([]models.TestSubmission, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.TestSubmission{}).
		Preload("ScreeningTest").
		Preload("Answers").
		Preload("Answers.Question")
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.TestSubmission, error) {
	var submission models.TestSubmission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.TestSubmission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) GetByTestAndUser(ctx context.Context, testID, userID uint) (models.TestSubmission, error) {
	var submission models.TestSubmission
	if err := r.baseQuery(ctx).
		Where("screening_test_id = ?", testID).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&submission).Error; err != nil {
		return models.TestSubmission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.TestSubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.TestSubmission) error {
	return r.db.WithContext(ctx).Omit("Answers", "ScreeningTest").Save(submission).Error
}

func (r *submissionRepository) GetAnswer(ctx context.Context, id uint) (models.Answer, error) {
	var answer models.Answer
	if err := r.db.WithContext(ctx).Preload("Question").First(&answer, id).Error; err != nil {
		return models.Answer{}, err
	}

	return answer, nil
}

func (r *submissionRepository) SaveAnswer(ctx context.Context, answer *models.Answer) error {
	return r.db.WithContext(ctx).Omit("Question").Save(answer).Error
}

func (r *submissionRepository) CreateGradeHistory(ctx context.Context, history *models.AnswerGradeHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}

func (r *submissionRepository) ListGradedByPosting(ctx context.Context, jobPostingID uint, descending bool) ([]models.TestSubmission, error) {
	order := "test_submissions.total_score_achieved ASC"
	if descending {
		order = "test_submissions.total_score_achieved DESC"
	}

	var submissions []models.TestSubmission
	if err := r.db.WithContext(ctx).Model(&models.TestSubmission{}).
		Joins("JOIN screening_tests ON screening_tests.id = test_submissions.screening_test_id").
		Where("screening_tests.job_posting_id = ?", jobPostingID).
		Where("test_submissions.status = ?", models.SubmissionGraded).
		Order(order).
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}
