package models

import "time"

// EvaluationHistory records each meeting evaluation attempt for audit.
type EvaluationHistory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	MeetingID   uint      `gorm:"not null;index" json:"meeting_id"`
	Score       float64   `gorm:"not null" json:"score"`
	Feedback    string    `gorm:"type:text" json:"feedback"`
	EvaluatedBy uint      `gorm:"not null" json:"evaluated_by"`
	EvaluatedAt time.Time `gorm:"not null" json:"evaluated_at"`
}

// AnswerGradeHistory records each HR override applied to an answer.
type AnswerGradeHistory struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	AnswerID uint      `gorm:"not null;index" json:"answer_id"`
	Score    float64   `gorm:"not null" json:"score"`
	Comment  string    `gorm:"type:text" json:"comment"`
	GradedBy uint      `gorm:"not null" json:"graded_by"`
	GradedAt time.Time `gorm:"not null" json:"graded_at"`
}
