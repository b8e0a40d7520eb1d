package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/hireloop/interview-api/internal/models"
)

// MeetingFilter narrows meeting queries.
type MeetingFilter struct {
	JobApplicationID *uint
	InterviewRoundID *uint
	CandidateUserID  *uint
	Status           *string
}

// MeetingRepository defines data operations for meetings.
type MeetingRepository interface {
	List(ctx context.Context, filter MeetingFilter) ([]models.Meeting, error)
	GetByID(ctx context.Context, id uint) (models.Meeting, error)
	GetByToken(ctx context.Context, token string) (models.Meeting, error)
	FindBlocking(ctx context.Context, applicationID, roundID uint) (models.Meeting, error)
	Create(ctx context.Context, meeting *models.Meeting) error
	Update(ctx context.Context, meeting *models.Meeting) error
}

type meetingRepository struct {
	db *gorm.DB
}

// NewMeetingRepository instantiates the repository.
func NewMeetingRepository(db *gorm.DB) MeetingRepository {
	return &meetingRepository{db: db}
}

func (r *meetingRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Meeting{}).
		Preload("JobApplication").
		Preload("InterviewRound")
}

func (r *meetingRepository) List(ctx context.Context, filter MeetingFilter) ([]models.Meeting, error) {
	query := r.baseQuery(ctx)

	if filter.JobApplicationID != nil {
		query = query.Where("job_application_id = ?", *filter.JobApplicationID)
	}

	if filter.InterviewRoundID != nil {
		query = query.Where("interview_round_id = ?", *filter.InterviewRoundID)
	}

	if filter.CandidateUserID != nil {
		query = query.Where("candidate_user_id = ?", *filter.CandidateUserID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var meetings []models.Meeting
	if err := query.Order("scheduled_at DESC").Find(&meetings).Error; err != nil {
		return nil, err
	}

	return meetings, nil
}

func (r *meetingRepository) GetByID(ctx context.Context, id uint) (models.Meeting, error) {
	var meeting models.Meeting
	if err := r.baseQuery(ctx).First(&meeting, id).Error; err != nil {
		return models.Meeting{}, err
	}

	return meeting, nil
}

func (r *meetingRepository) GetByToken(ctx context.Context, token string) (models.Meeting, error) {
	var meeting models.Meeting
	if err := r.baseQuery(ctx).Where("response_token = ?", token).First(&meeting).Error; err != nil {
		return models.Meeting{}, err
	}

	return meeting, nil
}

// FindBlocking returns the meeting that currently occupies the
// (application, round) pair, if any. Cancelled and rescheduled meetings do
// not count.
func (r *meetingRepository) FindBlocking(ctx context.Context, applicationID, roundID uint) (models.Meeting, error) {
	var meeting models.Meeting
	if err := r.baseQuery(ctx).
		Where("job_application_id = ?", applicationID).
		Where("interview_round_id = ?", roundID).
		Where("status NOT IN ?", []string{models.MeetingStatusCancelled, models.MeetingStatusRescheduled}).
		Order("created_at DESC").
		First(&meeting).Error; err != nil {
		return models.Meeting{}, err
	}

	return meeting, nil
}

func (r *meetingRepository) Create(ctx context.Context, meeting *models.Meeting) error {
	return r.db.WithContext(ctx).Create(meeting).Error
}

func (r *meetingRepository) Update(ctx context.Context, meeting *models.Meeting) error {
	return r.db.WithContext(ctx).Save(meeting).Error
}
