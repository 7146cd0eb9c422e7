package comms

import "time"

// Type is the channel a communication went through.
type Type string

const (
	TypeSMS      Type = "sms"
	TypeWhatsApp Type = "whatsapp"
	TypeCall     Type = "call"
)

// Direction is relative to this service.
type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

// Communication is one outbound or inbound interaction with a contact.
//
// TwilioSID is the correlation id returned by the provider; status callbacks
// locate the row by it. Rows are never deleted by this service.
type Communication struct {
	ID        string    `json:"id" db:"id"`
	Type      Type      `json:"type" db:"type"`
	Direction Direction `json:"direction" db:"direction"`
	Status    string    `json:"status" db:"status"`
	TwilioSID string    `json:"twilio_sid" db:"twilio_sid"`

	LeadID *string `json:"lead_id" db:"lead_id"`

	// Duration is in seconds and only reported for calls.
	Duration *int `json:"duration" db:"duration"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Lead is a contact owned by an external system; this service only reads it.
type Lead struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Phone     string    `json:"phone" db:"phone"`
	Company   string    `json:"company" db:"company"`
	Source    string    `json:"source" db:"source"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func intPtr(n int) *int { return &n }
