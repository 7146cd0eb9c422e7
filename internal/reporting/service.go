package reporting

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"comms-gateway/internal/comms"
)

// Repository is the read side reporting needs. comms.Store satisfies it.
type Repository interface {
	ListLeads(ctx context.Context) ([]comms.Lead, error)
	ListCommunications(ctx context.Context) ([]comms.Communication, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

// Analytics counts all leads and communications and breaks them down by lead
// source and by communication type.
func (s *Service) Analytics(ctx context.Context) (Analytics, error) {
	if s.repo == nil {
		return Analytics{}, errors.New("reporting: repository not configured")
	}

	leads, err := s.repo.ListLeads(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("reporting: list leads: %w", err)
	}
	rows, err := s.repo.ListCommunications(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("reporting: list communications: %w", err)
	}

	out := Analytics{
		TotalLeads:          len(leads),
		TotalCommunications: len(rows),
		LeadsBySource:       map[string]int{},
		CommunicationStats:  map[string]TypeStats{},
	}

	for _, l := range leads {
		src := strings.TrimSpace(l.Source)
		if src == "" {
			src = UnknownSource
		}
		out.LeadsBySource[src]++
	}

	for _, c := range rows {
		key := string(c.Type)
		st, ok := out.CommunicationStats[key]
		if !ok {
			st = TypeStats{ByStatus: map[string]int{}}
		}
		st.Total++
		switch c.Direction {
		case comms.DirectionOutbound:
			st.Outbound++
		case comms.DirectionInbound:
			st.Inbound++
		}
		st.ByStatus[c.Status]++
		if c.Duration != nil {
			st.TotalDurationSeconds += *c.Duration
		}
		out.CommunicationStats[key] = st
	}
	return out, nil
}
