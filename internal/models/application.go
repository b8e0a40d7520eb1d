package models

import "time"

// JobApplication tracks a candidate's progress through a posting's pipeline.
// The orchestrator only reads and flips its status; everything else about
// applications lives in the surrounding ATS.
type JobApplication struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	JobPostingID uint      `gorm:"not null;index" json:"job_posting_id"`
	CandidateID  uint      `gorm:"not null;index" json:"candidate_id"`
	Status       string    `gorm:"size:32;not null" json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

const (
	// ApplicationStatusShortlisted marks an application eligible for its first interview round.
	ApplicationStatusShortlisted = "shortlisted"
	// ApplicationStatusInterviewing marks an application with a scheduled or running interview.
	ApplicationStatusInterviewing = "interviewing"
	// ApplicationStatusInterviewCompleted marks an application whose interview finished and awaits evaluation.
	ApplicationStatusInterviewCompleted = "interview_completed"
	// ApplicationStatusAdvanced marks an application cleared for the next round.
	ApplicationStatusAdvanced = "advanced"
	// ApplicationStatusRejected is terminal; no further scheduling is permitted.
	ApplicationStatusRejected = "rejected"
)

// IsTerminal reports whether the application can no longer move through the pipeline.
func (a JobApplication) IsTerminal() bool {
	return a.Status == ApplicationStatusRejected
}

// IsRoundEligible reports whether a new interview round may be scheduled for the application.
func (a JobApplication) IsRoundEligible() bool {
	return a.Status == ApplicationStatusShortlisted || a.Status == ApplicationStatusAdvanced
}
