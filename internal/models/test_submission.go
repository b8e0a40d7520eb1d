package models

import (
	"math"
	"time"
)

// TestSubmission is one candidate's attempt at a screening test.
type TestSubmission struct {
	ID                 uint          `gorm:"primaryKey" json:"id"`
	ScreeningTestID    uint          `gorm:"not null;index" json:"screening_test_id"`
	JobApplicationID   uint          `gorm:"not null;index" json:"job_application_id"`
	UserID             uint          `gorm:"not null;index" json:"user_id"`
	Status             string        `gorm:"size:32;not null" json:"status"`
	TotalScoreAchieved *float64      `json:"total_score_achieved"`
	SubmittedAt        *time.Time    `json:"submitted_at"`
	GradedAt           *time.Time    `json:"graded_at"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
	ScreeningTest      ScreeningTest `gorm:"constraint:OnUpdate:CASCADE" json:"screening_test"`
	Answers            []Answer      `json:"answers"`
}

// Submission statuses keep the source system's wire values.
const (
	// SubmissionNotStarted ("chuabatdau"): created but untouched.
	SubmissionNotStarted = "chuabatdau"
	// SubmissionInProgress ("danglam"): the candidate is answering.
	SubmissionInProgress = "danglam"
	// SubmissionSubmitted ("danop"): handed in, gradable.
	SubmissionSubmitted = "danop"
	// SubmissionGraded ("dacham"): finalized and locked.
	SubmissionGraded = "dacham"
)

// IsFinalized reports whether grading has been locked in.
func (s TestSubmission) IsFinalized() bool {
	return s.Status == SubmissionGraded
}

// Answer is a candidate's response to one question of a submission.
type Answer struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	TestSubmissionID uint      `gorm:"not null;index" json:"test_submission_id"`
	QuestionID       uint      `gorm:"not null;index" json:"question_id"`
	AnswerText       string    `gorm:"type:text" json:"answer_text"`
	ScoreAchieved    *float64  `json:"score_achieved"`
	AISimilarity     *float64  `json:"ai_similarity"`
	Overridden       bool      `gorm:"not null;default:false" json:"overridden"`
	Comment          string    `gorm:"type:text" json:"comment"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Question         Question  `gorm:"constraint:OnUpdate:CASCADE" json:"question"`
}

// IsCorrect derives correctness as an exact max-score match.
func (a Answer) IsCorrect() bool {
	return a.ScoreAchieved != nil && math.Abs(*a.ScoreAchieved-a.Question.MaxScore) < 1e-9
}

// QuantizeScore rounds to the nearest 0.5 and clamps into [0, maxScore].
func QuantizeScore(raw, maxScore float64) float64 {
	score := math.Round(raw*2) / 2
	if score < 0 {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return score
}
