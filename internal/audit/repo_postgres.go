package audit

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// PostgresRepo appends to audit_events (migrations/001_init.sql).
type PostgresRepo struct {
	db *sqlx.DB
}

func NewPostgresRepo(db *sqlx.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (id, type, actor_user_id, actor_role, ip_address, lead_id, twilio_sid, channel, message, created_at)
VALUES (:id, :type, :actor_user_id, :actor_role, :ip_address, :lead_id, :twilio_sid, :channel, :message, :created_at)
`
	_, err := r.db.NamedExecContext(ctx, q, e)
	return err
}
