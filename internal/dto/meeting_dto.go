package dto

import (
	"time"

	"github.com/hireloop/interview-api/internal/models"
)

// MeetingScheduleRequest describes the payload for scheduling a meeting.
type MeetingScheduleRequest struct {
	JobApplicationID uint      `json:"job_application_id" validate:"required,gt=0"`
	InterviewRoundID uint      `json:"interview_round_id" validate:"required,gt=0"`
	CandidateUserID  uint      `json:"candidate_user_id" validate:"required,gt=0"`
	ScheduledAt      time.Time `json:"scheduled_at" validate:"required"`
	Notes            string    `json:"notes" validate:"omitempty,max=4000"`
}

// MeetingFilter describes query string filters for listing meetings.
type MeetingFilter struct {
	JobApplicationID *uint   `query:"job_application_id"`
	InterviewRoundID *uint   `query:"interview_round_id"`
	CandidateUserID  *uint   `query:"candidate_user_id"`
	Status           *string `query:"status" validate:"omitempty,oneof=pending running done cancel rescheduled"`
}

// MeetingResponse is the authoritative meeting state echoed to API clients.
type MeetingResponse struct {
	ID               uint      `json:"id"`
	RoomName         string    `json:"room_name"`
	JobApplicationID uint      `json:"job_application_id"`
	InterviewRoundID uint      `json:"interview_round_id"`
	CandidateUserID  uint      `json:"candidate_user_id"`
	Status           string    `json:"status"`
	ScheduledAt      time.Time `json:"scheduled_at"`
	Notes            string    `json:"notes"`
	InvitationStatus string    `json:"invitation_status"`
	RejectionCount   int       `json:"rejection_count"`
	Score            *float64  `json:"score"`
	Feedback         *string   `json:"feedback"`
	EvaluationLocked bool      `json:"evaluation_locked"`
	RecordingURL     *string   `json:"recording_url"`
	Round            RoundLite `json:"round"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// RoundLite summarizes an interview round inside meeting responses.
type RoundLite struct {
	ID          uint   `json:"id"`
	RoundNumber int    `json:"round_number"`
	Title       string `json:"title"`
	Duration    int    `json:"duration"`
}

// NewMeetingResponse converts a Meeting model into a DTO.
func NewMeetingResponse(model models.Meeting) MeetingResponse {
	return MeetingResponse{
		ID:               model.ID,
		RoomName:         model.RoomName,
		JobApplicationID: model.JobApplicationID,
		InterviewRoundID: model.InterviewRoundID,
		CandidateUserID:  model.CandidateUserID,
		Status:           model.Status,
		ScheduledAt:      model.ScheduledAt,
		Notes:            model.Notes,
		InvitationStatus: model.InvitationStatus,
		RejectionCount:   model.RejectionCount,
		Score:            model.Score,
		Feedback:         model.Feedback,
		EvaluationLocked: model.EvaluationLocked,
		RecordingURL:     model.RecordingURL,
		Round: RoundLite{
			ID:          model.InterviewRound.ID,
			RoundNumber: model.InterviewRound.RoundNumber,
			Title:       model.InterviewRound.Title,
			Duration:    model.InterviewRound.Duration,
		},
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}
