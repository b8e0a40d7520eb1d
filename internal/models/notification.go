package models

import "time"

// Notification is an outbound event persisted before publication.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:64;index" json:"user_id"`
	Type      string    `gorm:"size:64" json:"type"`
	Message   string    `gorm:"type:text" json:"message"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Notification event types emitted by the orchestrator.
const (
	NotificationInvitationIssued     = "invitation.issued"
	NotificationApplicationAdvanced  = "application.advanced"
	NotificationApplicationCancelled = "application.cancelled"
)
