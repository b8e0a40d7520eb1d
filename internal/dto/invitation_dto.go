package dto

// InvitationRespondRequest is the public respond action payload.
type InvitationRespondRequest struct {
	Token  string `json:"token" validate:"required,min=16"`
	Action string `json:"action" validate:"required,oneof=ACCEPT REJECT"`
	Reason string `json:"reason" validate:"omitempty,max=2000"`
}

// InvitationView is what the public response page sees after token verification.
type InvitationView struct {
	Meeting          MeetingResponse `json:"meeting"`
	InvitationStatus string          `json:"invitation_status"`
	RejectionCount   int             `json:"rejection_count"`
}

// InvitationRespondResponse echoes the authoritative invitation state after a response.
type InvitationRespondResponse struct {
	InvitationStatus string `json:"invitation_status"`
	// RemainingChances is present only after a reschedule request.
	RemainingChances *int `json:"remaining_chances,omitempty"`
	// ApplicationCancelled reports the terminal ceiling outcome distinctly.
	ApplicationCancelled bool `json:"application_cancelled"`
	// Mutated is false when the call was an idempotent replay.
	Mutated bool `json:"mutated"`
}
