package dto

// SelectionRequest asks for the top-N graded submissions of a posting.
type SelectionRequest struct {
	JobPostingID uint   `json:"job_posting_id" validate:"required,gt=0"`
	N            int    `json:"n" validate:"required,gt=0"`
	Order        string `json:"order" validate:"omitempty,oneof=desc asc"`
}

// SelectionItem reports the outcome for one selected candidate.
type SelectionItem struct {
	SubmissionID     uint     `json:"submission_id"`
	JobApplicationID uint     `json:"job_application_id"`
	TotalScore       *float64 `json:"total_score"`
	Advanced         bool     `json:"advanced"`
	Error            string   `json:"error,omitempty"`
}

// SelectionResponse aggregates per-item outcomes of a batch selection.
type SelectionResponse struct {
	Advanced int             `json:"advanced"`
	Failed   int             `json:"failed"`
	Items    []SelectionItem `json:"items"`
}
