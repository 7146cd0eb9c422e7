package comms

import (
	"context"
	"errors"
	"sync"
)

// MemoryStore is an in-memory Store for tests and local runs without a backend.
type MemoryStore struct {
	mu sync.Mutex

	leads []Lead
	comms []Communication

	// Err, when set, is returned by every call.
	Err error
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// AddLeads seeds leads; leads are owned elsewhere so the Store has no insert.
func (s *MemoryStore) AddLeads(leads ...Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads = append(s.leads, leads...)
}

// Communications returns a copy of all stored rows.
func (s *MemoryStore) Communications() []Communication {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Communication, len(s.comms))
	copy(out, s.comms)
	return out
}

func (s *MemoryStore) InsertCommunication(ctx context.Context, c Communication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if c.ID == "" {
		return errors.New("memory store: id required")
	}
	for _, existing := range s.comms {
		if existing.ID == c.ID {
			return errors.New("memory store: duplicate id")
		}
	}
	s.comms = append(s.comms, c)
	return nil
}

func (s *MemoryStore) ApplyStatus(ctx context.Context, twilioSID string, upd StatusUpdate) (ApplyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return ApplyResult{}, s.Err
	}
	for i, c := range s.comms {
		if c.TwilioSID != twilioSID {
			continue
		}
		if !ShouldApply(c.Type, c.Status, upd.Status) {
			return ApplyResult{Outcome: OutcomeStale, Previous: c, Current: c}, nil
		}
		next := applyTo(c, upd)
		s.comms[i] = next
		return ApplyResult{Outcome: OutcomeApplied, Previous: c, Current: next}, nil
	}
	return ApplyResult{Outcome: OutcomeNotFound}, nil
}

func (s *MemoryStore) ListCommunications(ctx context.Context) ([]Communication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]Communication, len(s.comms))
	copy(out, s.comms)
	return out, nil
}

func (s *MemoryStore) ListCommunicationsByLead(ctx context.Context, leadID string) ([]Communication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]Communication, 0)
	for _, c := range s.comms {
		if c.LeadID != nil && *c.LeadID == leadID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListLeads(ctx context.Context) ([]Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]Lead, len(s.leads))
	copy(out, s.leads)
	return out, nil
}

func (s *MemoryStore) FindLeadByPhone(ctx context.Context, phone string) (Lead, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return Lead{}, false, s.Err
	}
	for _, l := range s.leads {
		if l.Phone == phone {
			return l, true, nil
		}
	}
	return Lead{}, false, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Err
}
