// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/and161185/vazadinhas/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepository provides access to accounts.
type UserRepository interface {
	// Create inserts a new user. Returns errs.ErrAlreadyExists when the email is taken.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByEmail loads a user by normalized email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// SessionRepository stores issued sessions so they can be revoked before token expiry.
type SessionRepository interface {
	// Create persists a new session.
	Create(ctx context.Context, s *model.Session) error
	// Get loads a session by ID. Returns errs.ErrNotFound for unknown or revoked sessions.
	Get(ctx context.Context, id uuid.UUID) (*model.Session, error)
	// Delete revokes a session.
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteExpired removes sessions that expired before now and reports how many.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
