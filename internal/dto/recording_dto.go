package dto

import (
	"time"

	"github.com/hireloop/interview-api/internal/models"
)

// RecordingResponse reports the stored outcome of a recording upload.
type RecordingResponse struct {
	MeetingID uint      `json:"meeting_id"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	Outcome   string    `json:"outcome"`
	URL       *string   `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRecordingResponse converts a Recording model into a DTO.
func NewRecordingResponse(model models.Recording) RecordingResponse {
	return RecordingResponse{
		MeetingID: model.MeetingID,
		MimeType:  model.MimeType,
		SizeBytes: model.SizeBytes,
		Outcome:   model.Outcome,
		URL:       model.URL,
		CreatedAt: model.CreatedAt,
	}
}
