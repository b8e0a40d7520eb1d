package models

import "time"

// Recording captures the outcome of a meeting's recording upload.
// Write-once per meeting; created only after the meeting reached done.
type Recording struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MeetingID uint      `gorm:"not null;uniqueIndex" json:"meeting_id"`
	MimeType  string    `gorm:"size:128;not null" json:"mime_type"`
	SizeBytes int64     `gorm:"not null" json:"size_bytes"`
	Outcome   string    `gorm:"size:32;not null" json:"outcome"`
	URL       *string   `gorm:"size:512" json:"url"`
	Checksum  string    `gorm:"size:64" json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	// RecordingUploaded means the artifact landed in the blob store.
	RecordingUploaded = "uploaded"
	// RecordingFallbackLocal means the upload failed and the artifact stayed with the client.
	RecordingFallbackLocal = "fallback_local"
	// RecordingFailed means the artifact could not be accepted at all.
	RecordingFailed = "failed"
)
