package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records who sent which message or placed which call.
// Callers should treat audit logging as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" || e.TwilioSID == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// Actor identifies who triggered an action.
type Actor struct {
	UserID string
	Role   string
	IP     string
}

func (s *Service) MessageSent(ctx context.Context, a Actor, channel, leadID, sid string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeMessageSent,
		ActorUserID: a.UserID,
		ActorRole:   a.Role,
		IPAddress:   a.IP,
		LeadID:      leadID,
		TwilioSID:   sid,
		Channel:     channel,
		Message:     "outbound " + channel + " message",
	})
}

func (s *Service) CallInitiated(ctx context.Context, a Actor, leadID, sid string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeCallInitiated,
		ActorUserID: a.UserID,
		ActorRole:   a.Role,
		IPAddress:   a.IP,
		LeadID:      leadID,
		TwilioSID:   sid,
		Channel:     "call",
		Message:     "outbound call",
	})
}
