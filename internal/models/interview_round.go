package models

import "time"

// InterviewRound defines one stage of a posting's interview process.
type InterviewRound struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	JobPostingID uint      `gorm:"not null;uniqueIndex:idx_posting_round" json:"job_posting_id"`
	RoundNumber  int       `gorm:"not null;uniqueIndex:idx_posting_round" json:"round_number"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Duration     int       `gorm:"not null" json:"duration"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
