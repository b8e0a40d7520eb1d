package dto

import (
	"encoding/json"
	"time"
)

// CallSignal is one signaling frame exchanged inside a meeting room.
// Payload is relayed opaquely for offer/answer/candidate frames.
type CallSignal struct {
	Type    string          `json:"type" validate:"required,oneof=offer answer candidate chat"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Text    string          `json:"text,omitempty" validate:"omitempty,max=4000"`
}

// CallEvent is a signal enriched with sender identity, fanned out to the room.
type CallEvent struct {
	RoomName string          `json:"room_name"`
	Type     string          `json:"type"`
	SenderID uint            `json:"sender_id"`
	Role     string          `json:"role"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Text     string          `json:"text,omitempty"`
	SentAt   time.Time       `json:"sent_at"`
}
