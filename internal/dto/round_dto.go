package dto

import "github.com/hireloop/interview-api/internal/models"

// RoundCreateRequest adds a round to a posting's interview process.
type RoundCreateRequest struct {
	JobPostingID uint   `json:"job_posting_id" validate:"required,gt=0"`
	RoundNumber  int    `json:"round_number" validate:"required,gt=0"`
	Title        string `json:"title" validate:"required,min=3,max=255"`
	Duration     int    `json:"duration" validate:"required,gt=0"`
}

// RoundUpdateRequest edits round metadata. Structural fields stay frozen
// once a meeting references the round.
type RoundUpdateRequest struct {
	Title    *string `json:"title" validate:"omitempty,min=3,max=255"`
	Duration *int    `json:"duration" validate:"omitempty,gt=0"`
	IsActive *bool   `json:"is_active"`
}

// RoundResponse serializes an interview round.
type RoundResponse struct {
	ID           uint   `json:"id"`
	JobPostingID uint   `json:"job_posting_id"`
	RoundNumber  int    `json:"round_number"`
	Title        string `json:"title"`
	Duration     int    `json:"duration"`
	IsActive     bool   `json:"is_active"`
}

// NewRoundResponse converts an InterviewRound model into a DTO.
func NewRoundResponse(model models.InterviewRound) RoundResponse {
	return RoundResponse{
		ID:           model.ID,
		JobPostingID: model.JobPostingID,
		RoundNumber:  model.RoundNumber,
		Title:        model.Title,
		Duration:     model.Duration,
		IsActive:     model.IsActive,
	}
}
