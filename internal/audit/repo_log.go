package audit

import (
	"context"
	"log/slog"
)

// LogRepo writes events as structured log lines. Used when there is no
// database of our own to append to (Supabase backend).
type LogRepo struct {
	log *slog.Logger
}

func NewLogRepo(l *slog.Logger) *LogRepo {
	return &LogRepo{log: l.With("stream", "audit")}
}

func (r *LogRepo) Append(ctx context.Context, e Event) error {
	r.log.InfoContext(ctx, "audit event",
		"id", e.ID,
		"type", e.Type,
		"actor_user_id", e.ActorUserID,
		"actor_role", e.ActorRole,
		"ip", e.IPAddress,
		"lead_id", e.LeadID,
		"twilio_sid", e.TwilioSID,
		"channel", e.Channel,
		"created_at", e.CreatedAt,
	)
	return nil
}
