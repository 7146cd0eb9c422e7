package comms

import (
	"context"
	"time"
)

// StatusUpdate is a status change reported for one correlation id.
type StatusUpdate struct {
	Status string
	// Duration is applied only when non-nil.
	Duration *int
	At       time.Time
}

// ApplyOutcome describes what ApplyStatus did.
type ApplyOutcome string

const (
	OutcomeApplied  ApplyOutcome = "applied"
	OutcomeStale    ApplyOutcome = "stale"
	OutcomeNotFound ApplyOutcome = "not_found"
)

// ApplyResult carries the row before and after ApplyStatus.
// Both are zero when Outcome is OutcomeNotFound.
type ApplyResult struct {
	Outcome  ApplyOutcome
	Previous Communication
	Current  Communication
}

// Store is the persistence contract for leads and communications.
//
// Implementations must make ApplyStatus atomic with respect to concurrent callers:
// the status read, the ShouldApply check and the write happen as one unit.
type Store interface {
	InsertCommunication(ctx context.Context, c Communication) error
	ApplyStatus(ctx context.Context, twilioSID string, upd StatusUpdate) (ApplyResult, error)

	ListCommunications(ctx context.Context) ([]Communication, error)
	ListCommunicationsByLead(ctx context.Context, leadID string) ([]Communication, error)

	ListLeads(ctx context.Context) ([]Lead, error)
	FindLeadByPhone(ctx context.Context, phone string) (Lead, bool, error)

	Ping(ctx context.Context) error
}

// applyTo returns c with upd applied.
func applyTo(c Communication, upd StatusUpdate) Communication {
	c.Status = upd.Status
	if upd.Duration != nil {
		d := *upd.Duration
		c.Duration = &d
	}
	c.UpdatedAt = upd.At
	return c
}
