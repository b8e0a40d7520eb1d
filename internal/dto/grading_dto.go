package dto

import (
	"time"

	"github.com/hireloop/interview-api/internal/models"
)

// EvaluationSubmitRequest grades a finished meeting.
type EvaluationSubmitRequest struct {
	Score            float64 `json:"score" validate:"gte=0,lte=100"`
	Feedback         string  `json:"feedback" validate:"required,min=3"`
	AdvanceCandidate bool    `json:"advance_candidate"`
}

// AnswerOverrideRequest applies an HR score override to one answer.
type AnswerOverrideRequest struct {
	Score   float64 `json:"score" validate:"gte=0"`
	Comment string  `json:"comment" validate:"omitempty,max=2000"`
}

// StartTestRequest opens a submission for a candidate.
type StartTestRequest struct {
	ScreeningTestID  uint `json:"screening_test_id" validate:"required,gt=0"`
	JobApplicationID uint `json:"job_application_id" validate:"required,gt=0"`
	UserID           uint `json:"user_id" validate:"required,gt=0"`
}

// AnswerUpsertRequest records or replaces a candidate's answer text.
type AnswerUpsertRequest struct {
	QuestionID uint   `json:"question_id" validate:"required,gt=0"`
	AnswerText string `json:"answer_text" validate:"required"`
}

// AnswerResponse serializes one answer with its derived correctness.
type AnswerResponse struct {
	ID            uint     `json:"id"`
	QuestionID    uint     `json:"question_id"`
	AnswerText    string   `json:"answer_text"`
	ScoreAchieved *float64 `json:"score_achieved"`
	MaxScore      float64  `json:"max_score"`
	IsCorrect     bool     `json:"is_correct"`
	AISimilarity  *float64 `json:"ai_similarity"`
	Overridden    bool     `json:"overridden"`
	Comment       string   `json:"comment"`
}

// SubmissionResponse is the authoritative submission state echoed to clients.
type SubmissionResponse struct {
	ID                 uint             `json:"id"`
	ScreeningTestID    uint             `json:"screening_test_id"`
	JobApplicationID   uint             `json:"job_application_id"`
	UserID             uint             `json:"user_id"`
	Status             string           `json:"status"`
	TotalScoreAchieved *float64         `json:"total_score_achieved"`
	SubmittedAt        *time.Time       `json:"submitted_at"`
	GradedAt           *time.Time       `json:"graded_at"`
	Answers            []AnswerResponse `json:"answers"`
}

// NewAnswerResponse converts an Answer model into a DTO.
func NewAnswerResponse(model models.Answer) AnswerResponse {
	return AnswerResponse{
		ID:            model.ID,
		QuestionID:    model.QuestionID,
		AnswerText:    model.AnswerText,
		ScoreAchieved: model.ScoreAchieved,
		MaxScore:      model.Question.MaxScore,
		IsCorrect:     model.IsCorrect(),
		AISimilarity:  model.AISimilarity,
		Overridden:    model.Overridden,
		Comment:       model.Comment,
	}
}

// NewSubmissionResponse converts a TestSubmission model into a DTO.
func NewSubmissionResponse(model models.TestSubmission) SubmissionResponse {
	answers := make([]AnswerResponse, 0, len(model.Answers))
	for _, answer := range model.Answers {
		answers = append(answers, NewAnswerResponse(answer))
	}

	return SubmissionResponse{
		ID:                 model.ID,
		ScreeningTestID:    model.ScreeningTestID,
		JobApplicationID:   model.JobApplicationID,
		UserID:             model.UserID,
		Status:             model.Status,
		TotalScoreAchieved: model.TotalScoreAchieved,
		SubmittedAt:        model.SubmittedAt,
		GradedAt:           model.GradedAt,
		Answers:            answers,
	}
}
