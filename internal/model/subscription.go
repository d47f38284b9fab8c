package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// SubscriptionStatus is the stored status of a subscription record.
// Expiry is never written back; it is derived at read time.
type SubscriptionStatus string

const (
	StatusPending SubscriptionStatus = "pending"
	StatusActive  SubscriptionStatus = "active"
	StatusExpired SubscriptionStatus = "expired"
)

// PaymentMethod is the closed set of accepted payment methods.
type PaymentMethod string

const PaymentPix PaymentMethod = "pix"

const (
	// PlanPriceMinor is the single plan price in minor units (R$ 20,00).
	PlanPriceMinor int64 = 2000
	// PlanWindow is the fixed validity of an approved subscription.
	PlanWindow = 30 * 24 * time.Hour
)

// SubscriptionRecord is one plan request cycle. The most recently created record
// of a user is authoritative for access decisions.
type SubscriptionRecord struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Status          SubscriptionStatus
	PaymentMethod   PaymentMethod
	AmountMinor     int64
	PaymentProofRef string // opaque, never validated
	ActivatedAt     *time.Time
	ExpiresAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// LifecycleState is the derived subscription state of a user.
type LifecycleState string

const (
	StateNone    LifecycleState = "NONE"
	StatePending LifecycleState = "PENDING"
	StateActive  LifecycleState = "ACTIVE"
	StateExpired LifecycleState = "EXPIRED"
)

// AuditAction names a subscription transition.
type AuditAction string

const (
	AuditRequested AuditAction = "requested"
	AuditApproved  AuditAction = "approved"
	AuditRejected  AuditAction = "rejected"
)

// AuditEntry records a committed subscription transition.
type AuditEntry struct {
	Action         AuditAction `json:"action"`
	SubscriptionID uuid.UUID   `json:"subscription_id"`
	UserID         uuid.UUID   `json:"user_id"`
	ActorID        uuid.UUID   `json:"actor_id"` // uuid.Nil when unknown
	At             time.Time   `json:"at"`
}
