package comms

import (
	"context"
	"errors"
	"fmt"

	"comms-gateway/internal/supabase"
)

const (
	tableLeads          = "leads"
	tableCommunications = "communications"
)

// casAttempts bounds the compare-and-set loop in ApplyStatus.
const casAttempts = 3

// SupabaseStore keeps leads and communications in a Supabase project via PostgREST.
type SupabaseStore struct {
	client *supabase.Client
}

func NewSupabaseStore(client *supabase.Client) *SupabaseStore {
	return &SupabaseStore{client: client}
}

func (s *SupabaseStore) InsertCommunication(ctx context.Context, c Communication) error {
	var out []Communication
	if err := s.client.Insert(ctx, tableCommunications, c, &out); err != nil {
		return err
	}
	if len(out) == 0 {
		return errors.New("supabase: insert returned no rows")
	}
	return nil
}

// ApplyStatus has no row locks over PostgREST, so the write is conditioned on the
// status that was read; a concurrent change makes the PATCH match nothing and the
// read is repeated.
func (s *SupabaseStore) ApplyStatus(ctx context.Context, twilioSID string, upd StatusUpdate) (ApplyResult, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		var rows []Communication
		if err := s.client.Select(ctx, tableCommunications, supabase.Where().Eq("twilio_sid", twilioSID).Limit(1), &rows); err != nil {
			return ApplyResult{}, err
		}
		if len(rows) == 0 {
			return ApplyResult{Outcome: OutcomeNotFound}, nil
		}
		cur := rows[0]
		if !ShouldApply(cur.Type, cur.Status, upd.Status) {
			return ApplyResult{Outcome: OutcomeStale, Previous: cur, Current: cur}, nil
		}

		next := applyTo(cur, upd)
		patch := map[string]any{
			"status":     next.Status,
			"updated_at": next.UpdatedAt,
		}
		if upd.Duration != nil {
			patch["duration"] = *upd.Duration
		}

		f := supabase.Where().Eq("id", cur.ID)
		if cur.Status == "" {
			// A blank status reads back as "" whether it is NULL or empty text.
			f = f.Or("status.is.null", "status.eq.")
		} else {
			f = f.Eq("status", cur.Status)
		}

		var updated []Communication
		if err := s.client.Update(ctx, tableCommunications, f, patch, &updated); err != nil {
			return ApplyResult{}, err
		}
		if len(updated) > 0 {
			return ApplyResult{Outcome: OutcomeApplied, Previous: cur, Current: updated[0]}, nil
		}
	}
	return ApplyResult{}, fmt.Errorf("supabase: status of %s changed concurrently %d times", twilioSID, casAttempts)
}

func (s *SupabaseStore) ListCommunications(ctx context.Context) ([]Communication, error) {
	out := make([]Communication, 0)
	if err := s.client.Select(ctx, tableCommunications, supabase.Where(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SupabaseStore) ListCommunicationsByLead(ctx context.Context, leadID string) ([]Communication, error) {
	out := make([]Communication, 0)
	if err := s.client.Select(ctx, tableCommunications, supabase.Where().Eq("lead_id", leadID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SupabaseStore) ListLeads(ctx context.Context) ([]Lead, error) {
	out := make([]Lead, 0)
	if err := s.client.Select(ctx, tableLeads, supabase.Where(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SupabaseStore) FindLeadByPhone(ctx context.Context, phone string) (Lead, bool, error) {
	var out []Lead
	if err := s.client.Select(ctx, tableLeads, supabase.Where().Eq("phone", phone).Limit(1), &out); err != nil {
		return Lead{}, false, err
	}
	if len(out) == 0 {
		return Lead{}, false, nil
	}
	return out[0], true, nil
}

func (s *SupabaseStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, tableCommunications)
}
