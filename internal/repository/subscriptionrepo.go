package repository

import (
	"context"
	"time"

	"github.com/and161185/vazadinhas/internal/model"
	"github.com/gofrs/uuid/v5"
)

// SubscriptionRepository is the Subscription Store boundary. Every mutation is a single statement.
type SubscriptionRepository interface {
	// LatestForUser returns the most recently created record, or errs.ErrNotFound.
	LatestForUser(ctx context.Context, userID uuid.UUID) (*model.SubscriptionRecord, error)
	// ListForUser returns all records of a user, newest first.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]model.SubscriptionRecord, error)
	// ListPending returns pending records, newest first.
	ListPending(ctx context.Context) ([]model.SubscriptionRecord, error)
	// Insert stores a new record.
	Insert(ctx context.Context, rec *model.SubscriptionRecord) error
	// Activate sets status=active with the given activation window.
	Activate(ctx context.Context, id uuid.UUID, activatedAt, expiresAt time.Time) (*model.SubscriptionRecord, error)
	// Delete removes a record and returns what was removed.
	Delete(ctx context.Context, id uuid.UUID) (*model.SubscriptionRecord, error)
}

// AuditRepository persists committed subscription transitions.
type AuditRepository interface {
	Insert(ctx context.Context, e model.AuditEntry) error
}
