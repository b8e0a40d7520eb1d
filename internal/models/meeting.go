package models

import "time"

// Meeting is one scheduled occurrence of an interview round for a specific application.
type Meeting struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	RoomName         string         `gorm:"size:128;not null;uniqueIndex" json:"room_name"`
	JobApplicationID uint           `gorm:"not null;index;uniqueIndex:idx_meetings_app_round_live,where:status NOT IN ('cancel'\\,'rescheduled')" json:"job_application_id"`
	InterviewRoundID uint           `gorm:"not null;index;uniqueIndex:idx_meetings_app_round_live" json:"interview_round_id"`
	CandidateUserID  uint           `gorm:"not null" json:"candidate_user_id"`
	ScheduledByID    uint           `gorm:"not null" json:"scheduled_by_id"`
	Status           string         `gorm:"size:32;not null" json:"status"`
	ScheduledAt      time.Time      `gorm:"not null" json:"scheduled_at"`
	Notes            string         `gorm:"type:text" json:"notes"`
	InvitationStatus string         `gorm:"size:32;not null" json:"invitation_status"`
	RejectionCount   int            `gorm:"not null;default:0" json:"rejection_count"`
	ResponseToken    string         `gorm:"size:64;uniqueIndex" json:"-"`
	Score            *float64       `json:"score"`
	Feedback         *string        `gorm:"type:text" json:"feedback"`
	EvaluationLocked bool           `gorm:"not null;default:false" json:"evaluation_locked"`
	RecordingURL     *string        `gorm:"size:512" json:"recording_url"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	JobApplication   JobApplication `gorm:"constraint:OnUpdate:CASCADE" json:"job_application"`
	InterviewRound   InterviewRound `gorm:"constraint:OnUpdate:CASCADE" json:"interview_round"`
}

const (
	// MeetingStatusPending indicates the meeting is scheduled but the call has not started.
	MeetingStatusPending = "pending"
	// MeetingStatusRunning indicates the live call is in progress.
	MeetingStatusRunning = "running"
	// MeetingStatusDone indicates the call finished; evaluation becomes legal.
	MeetingStatusDone = "done"
	// MeetingStatusCancelled is terminal; the meeting never happened.
	MeetingStatusCancelled = "cancel"
	// MeetingStatusRescheduled is terminal; a replacement meeting supersedes this one.
	MeetingStatusRescheduled = "rescheduled"
)

const (
	// InvitationSent means the candidate has not responded yet.
	InvitationSent = "SENT"
	// InvitationConfirmed means the candidate accepted the slot.
	InvitationConfirmed = "CONFIRMED"
	// InvitationRescheduleRequested means the candidate rejected and HR must reschedule.
	InvitationRescheduleRequested = "RESCHEDULE_REQUESTED"
	// InvitationCancelled means the rejection ceiling was hit and the application was cancelled.
	InvitationCancelled = "CANCELLED"
)

// RejectionCeiling is the fixed number of reschedule requests allowed per
// (application, round) before the application is auto-cancelled.
const RejectionCeiling = 3

// IsTerminal reports whether the meeting can no longer change state.
func (m Meeting) IsTerminal() bool {
	return m.Status == MeetingStatusDone || m.Status == MeetingStatusCancelled || m.Status == MeetingStatusRescheduled
}

// BlocksScheduling reports whether this meeting prevents another one for the
// same (application, round) pair. Cancelled and rescheduled meetings do not.
func (m Meeting) BlocksScheduling() bool {
	return m.Status != MeetingStatusCancelled && m.Status != MeetingStatusRescheduled
}

// RemainingChances returns how many reschedule requests the candidate has left.
func (m Meeting) RemainingChances() int {
	remaining := RejectionCeiling - m.RejectionCount
	if remaining < 0 {
		return 0
	}
	return remaining
}
