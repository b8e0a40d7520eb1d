package oracle

import "context"

// ScoreRequest carries one answer to be graded against its reference.
type ScoreRequest struct {
	QuestionID      uint
	Question        string
	CandidateAnswer string
	ReferenceAnswer string
	MaxScore        float64
}

// ScoreResult is the oracle's suggestion for one answer.
type ScoreResult struct {
	// Similarity is in [0, 1].
	Similarity float64 `json:"similarity"`
	// SuggestedScore is in [0, MaxScore], pre-quantization.
	SuggestedScore float64 `json:"suggested_score"`
}

// Scorer grades a candidate answer against the reference answer. It is
// treated as untrusted and optional: callers must tolerate slow responses
// and outright failure without blocking manual grading.
type Scorer interface {
	Score(ctx context.Context, req ScoreRequest) (ScoreResult, error)
}
