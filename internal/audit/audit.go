// Package audit records every claims state transition the sync engine
// applies. The trail is best-effort: a failed insert is logged by the caller
// and never fails a consumer.
package audit

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one applied (or skipped) intent.
type Entry struct {
	IdentityID string
	Intent     string
	Changed    bool
	Roles      []string
	Actor      string
	OccurredAt time.Time
}

// Repository persists audit entries to Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record inserts a single audit entry.
func (r *Repository) Record(ctx context.Context, e Entry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO claims_audit (identity_id, intent, changed, roles, actor, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.IdentityID, e.Intent, e.Changed, e.Roles, e.Actor, e.OccurredAt)
	return err
}

// ListByIdentity returns the most recent entries for one identity, newest
// first.
func (r *Repository) ListByIdentity(ctx context.Context, identityID string, limit int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT identity_id, intent, changed, roles, actor, occurred_at
		FROM claims_audit
		WHERE identity_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`, identityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.IdentityID, &e.Intent, &e.Changed, &e.Roles, &e.Actor, &e.OccurredAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
