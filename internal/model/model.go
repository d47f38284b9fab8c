// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Session is an authenticated identity. It is read-only outside the identity service.
type Session struct {
	ID        uuid.UUID // session row PK, carried as the token's jti
	UserID    uuid.UUID
	Email     string
	Admin     bool
	Token     string // signed access token; empty when the session was loaded from storage
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether the session is no longer usable at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// User represents an account. The password is stored only as an encoded argon2id hash.
type User struct {
	ID        uuid.UUID
	Email     string // unique, lower-cased
	PwdHash   string
	IsAdmin   bool
	CreatedAt time.Time
}

// SessionEventKind distinguishes session change notifications.
type SessionEventKind string

const (
	SessionSignedIn  SessionEventKind = "signed_in"
	SessionSignedOut SessionEventKind = "signed_out"
)

// SessionEvent is published whenever a session starts or ends.
type SessionEvent struct {
	Kind      SessionEventKind
	UserID    uuid.UUID
	SessionID uuid.UUID
	At        time.Time
}
