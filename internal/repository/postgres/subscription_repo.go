package postgres

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/vazadinhas/internal/model"
)

const subCols = `id, user_id, status, payment_method, amount_minor, payment_proof_ref, activated_at, expires_at, created_at, updated_at`

// SubscriptionRepo implements SubscriptionRepository using PostgreSQL.
type SubscriptionRepo struct{ db *DB }

// NewSubscriptionRepo constructs a subscription repository.
func NewSubscriptionRepo(db *DB) *SubscriptionRepo { return &SubscriptionRepo{db: db} }

func scanSubscription(row pgx.Row) (*model.SubscriptionRecord, error) {
	var rec model.SubscriptionRecord
	var status, method string
	if err := row.Scan(&rec.ID, &rec.UserID, &status, &method, &rec.AmountMinor, &rec.PaymentProofRef,
		&rec.ActivatedAt, &rec.ExpiresAt, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Status = model.SubscriptionStatus(status)
	rec.PaymentMethod = model.PaymentMethod(method)
	return &rec, nil
}

func (r *SubscriptionRepo) list(ctx context.Context, op, q string, args ...any) ([]model.SubscriptionRecord, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, mapPostgresError(op, err)
	}
	defer rows.Close()

	out := make([]model.SubscriptionRecord, 0)
	for rows.Next() {
		rec, err := scanSubscription(rows)
		if err != nil {
			return nil, mapPostgresError(op, err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPostgresError(op, err)
	}
	return out, nil
}

// LatestForUser returns the most recently created record of a user.
func (r *SubscriptionRepo) LatestForUser(ctx context.Context, userID uuid.UUID) (*model.SubscriptionRecord, error) {
	const q = `
SELECT ` + subCols + `
FROM subscriptions WHERE user_id=$1
ORDER BY created_at DESC, id DESC LIMIT 1`
	rec, err := scanSubscription(r.db.Pool.QueryRow(ctx, q, userID))
	if err != nil {
		return nil, mapPostgresError("subscriptions.latest", err)
	}
	return rec, nil
}

// ListForUser returns all records of a user, newest first.
func (r *SubscriptionRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.SubscriptionRecord, error) {
	const q = `
SELECT ` + subCols + `
FROM subscriptions WHERE user_id=$1
ORDER BY created_at DESC, id DESC`
	return r.list(ctx, "subscriptions.list_for_user", q, userID)
}

// ListPending returns pending records across all users, newest first.
func (r *SubscriptionRepo) ListPending(ctx context.Context) ([]model.SubscriptionRecord, error) {
	const q = `
SELECT ` + subCols + `
FROM subscriptions WHERE status='pending'
ORDER BY created_at DESC, id DESC`
	return r.list(ctx, "subscriptions.list_pending", q)
}

// Insert stores a new record.
func (r *SubscriptionRepo) Insert(ctx context.Context, rec *model.SubscriptionRecord) error {
	const q = `
INSERT INTO subscriptions (` + subCols + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.Pool.Exec(ctx, q, rec.ID, rec.UserID, string(rec.Status), string(rec.PaymentMethod),
		rec.AmountMinor, rec.PaymentProofRef, rec.ActivatedAt, rec.ExpiresAt, rec.CreatedAt, rec.UpdatedAt)
	return mapPostgresError("subscriptions.insert", err)
}

// Activate marks a record active with the given window, whatever its current status.
func (r *SubscriptionRepo) Activate(ctx context.Context, id uuid.UUID, activatedAt, expiresAt time.Time) (*model.SubscriptionRecord, error) {
	const q = `
UPDATE subscriptions
SET status='active', activated_at=$2, expires_at=$3, updated_at=$2
WHERE id=$1
RETURNING ` + subCols
	rec, err := scanSubscription(r.db.Pool.QueryRow(ctx, q, id, activatedAt, expiresAt))
	if err != nil {
		return nil, mapPostgresError("subscriptions.activate", err)
	}
	return rec, nil
}

// Delete removes a record and returns what was removed.
func (r *SubscriptionRepo) Delete(ctx context.Context, id uuid.UUID) (*model.SubscriptionRecord, error) {
	const q = `DELETE FROM subscriptions WHERE id=$1 RETURNING ` + subCols
	rec, err := scanSubscription(r.db.Pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, mapPostgresError("subscriptions.delete", err)
	}
	return rec, nil
}

// AuditRepo implements AuditRepository using PostgreSQL.
type AuditRepo struct{ db *DB }

// NewAuditRepo constructs an audit repository.
func NewAuditRepo(db *DB) *AuditRepo { return &AuditRepo{db: db} }

// Insert appends an audit row.
func (r *AuditRepo) Insert(ctx context.Context, e model.AuditEntry) error {
	const q = `
INSERT INTO subscription_audit (action, subscription_id, user_id, actor_id, occurred_at)
VALUES ($1, $2, $3, $4, $5)`
	actor := uuid.NullUUID{UUID: e.ActorID, Valid: e.ActorID != uuid.Nil}
	_, err := r.db.Pool.Exec(ctx, q, string(e.Action), e.SubscriptionID, e.UserID, actor, e.At)
	return mapPostgresError("audit.insert", err)
}
