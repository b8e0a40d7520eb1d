package models

import "time"

// ScreeningTest is a written test attached to a job posting.
type ScreeningTest struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	JobPostingID uint       `gorm:"not null;index" json:"job_posting_id"`
	Title        string     `gorm:"size:255;not null" json:"title"`
	Duration     int        `gorm:"not null" json:"duration"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Questions    []Question `json:"questions"`
}

// Question is one item of a screening test's bank.
type Question struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ScreeningTestID uint      `gorm:"not null;index" json:"screening_test_id"`
	Content         string    `gorm:"type:text;not null" json:"content"`
	ReferenceAnswer string    `gorm:"type:text" json:"reference_answer"`
	MaxScore        float64   `gorm:"not null" json:"max_score"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
