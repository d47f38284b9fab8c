package postgres

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/vazadinhas/internal/errs"
	"github.com/and161185/vazadinhas/internal/model"
)

// SessionRepo implements SessionRepository using PostgreSQL.
type SessionRepo struct{ db *DB }

// NewSessionRepo constructs a session repository.
func NewSessionRepo(db *DB) *SessionRepo { return &SessionRepo{db: db} }

// Create persists a session row. The token itself is never stored.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	const q = `
INSERT INTO sessions (id, user_id, created_at, expires_at)
VALUES ($1, $2, $3, $4)`
	_, err := r.db.Pool.Exec(ctx, q, s.ID, s.UserID, s.CreatedAt, s.ExpiresAt)
	return mapPostgresError("sessions.create", err)
}

// Get loads a session joined with its user.
func (r *SessionRepo) Get(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	const q = `
SELECT s.id, s.user_id, u.email, u.is_admin, s.created_at, s.expires_at
FROM sessions s JOIN users u ON u.id = s.user_id
WHERE s.id=$1`
	var s model.Session
	err := r.db.Pool.QueryRow(ctx, q, id).Scan(&s.ID, &s.UserID, &s.Email, &s.Admin, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		return nil, mapPostgresError("sessions.get", err)
	}
	return &s, nil
}

// Delete revokes a session. Deleting an unknown session yields errs.ErrNotFound.
func (r *SessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE id=$1`, id)
	if err != nil {
		return mapPostgresError("sessions.delete", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeleteExpired purges sessions whose expiry is at or before now.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, mapPostgresError("sessions.delete_expired", err)
	}
	return tag.RowsAffected(), nil
}
