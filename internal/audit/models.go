package audit

import "time"

// Event is an immutable, append-only record of an operator action.
//
// Invariants:
// - Events are never updated or deleted.
// - actor and ip capture are best-effort; do not block sends or calls on audit failures.
type Event struct {
	ID   string    `json:"id" db:"id"`
	Type EventType `json:"type" db:"type"`

	// ActorUserID is empty when operator routes run without auth.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`
	IPAddress   string `json:"ip_address,omitempty" db:"ip_address"`

	// Target identifiers.
	LeadID    string `json:"lead_id,omitempty" db:"lead_id"`
	TwilioSID string `json:"twilio_sid,omitempty" db:"twilio_sid"`
	Channel   string `json:"channel,omitempty" db:"channel"`

	Message string `json:"message,omitempty" db:"message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeMessageSent   EventType = "message_sent"
	EventTypeCallInitiated EventType = "call_initiated"
)
