package comms

import (
	"context"
	"database/sql"
	"errors"

	"comms-gateway/pkg/utils"

	"github.com/jmoiron/sqlx"
)

// PostgresStore reads and writes the leads and communications tables directly.
// Schema: migrations/001_init.sql.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const communicationColumns = `id, type, direction, status, twilio_sid, lead_id, duration, created_at, updated_at`

// communicationSelect reads uuids as text and tolerates a NULL status.
const communicationSelect = `id::text AS id, type, direction, COALESCE(status, '') AS status, twilio_sid,
       lead_id::text AS lead_id, duration, created_at, updated_at`

// leads is owned elsewhere and may hold NULLs in any contact column.
const leadColumns = `id::text AS id,
       COALESCE(name, '') AS name,
       COALESCE(email, '') AS email,
       COALESCE(phone, '') AS phone,
       COALESCE(company, '') AS company,
       COALESCE(source, '') AS source,
       created_at`

func (s *PostgresStore) InsertCommunication(ctx context.Context, c Communication) error {
	const q = `
INSERT INTO communications (` + communicationColumns + `)
VALUES (:id, :type, :direction, :status, :twilio_sid, :lead_id, :duration, :created_at, :updated_at)
`
	_, err := s.db.NamedExecContext(ctx, q, c)
	return err
}

func (s *PostgresStore) ApplyStatus(ctx context.Context, twilioSID string, upd StatusUpdate) (ApplyResult, error) {
	var out ApplyResult
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sqlx.Tx) error {
		// Lock the row so concurrent callbacks for the same sid are applied one at a time.
		const sel = `
SELECT ` + communicationSelect + `
FROM communications
WHERE twilio_sid = $1
ORDER BY created_at
LIMIT 1
FOR UPDATE
`
		var cur Communication
		if err := tx.GetContext(ctx, &cur, sel, twilioSID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				out = ApplyResult{Outcome: OutcomeNotFound}
				return nil
			}
			return err
		}
		if !ShouldApply(cur.Type, cur.Status, upd.Status) {
			out = ApplyResult{Outcome: OutcomeStale, Previous: cur, Current: cur}
			return nil
		}

		next := applyTo(cur, upd)
		const up = `
UPDATE communications
SET status = $2, duration = $3, updated_at = $4
WHERE id = $1::uuid
`
		if _, err := tx.ExecContext(ctx, up, next.ID, next.Status, next.Duration, next.UpdatedAt); err != nil {
			return err
		}
		out = ApplyResult{Outcome: OutcomeApplied, Previous: cur, Current: next}
		return nil
	})
	if err != nil {
		return ApplyResult{}, err
	}
	return out, nil
}

func (s *PostgresStore) ListCommunications(ctx context.Context) ([]Communication, error) {
	const q = `SELECT ` + communicationSelect + ` FROM communications ORDER BY created_at`
	out := make([]Communication, 0)
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) ListCommunicationsByLead(ctx context.Context, leadID string) ([]Communication, error) {
	const q = `SELECT ` + communicationSelect + ` FROM communications WHERE lead_id::text = $1 ORDER BY created_at`
	out := make([]Communication, 0)
	if err := s.db.SelectContext(ctx, &out, q, leadID); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context) ([]Lead, error) {
	const q = `SELECT ` + leadColumns + ` FROM leads ORDER BY created_at`
	out := make([]Lead, 0)
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) FindLeadByPhone(ctx context.Context, phone string) (Lead, bool, error) {
	const q = `SELECT ` + leadColumns + ` FROM leads WHERE phone = $1 ORDER BY created_at LIMIT 1`
	var l Lead
	if err := s.db.GetContext(ctx, &l, q, phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Lead{}, false, nil
		}
		return Lead{}, false, err
	}
	return l, true, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
