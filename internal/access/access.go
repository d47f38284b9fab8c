// Package access decides whether a user may play catalog content.
//
// Decisions are pure functions of the current session, the user's most recent
// subscription record and the evaluation time. Results must not be cached past
// the subscription snapshot they were computed from, because now advances.
package access

import (
	"time"

	"github.com/and161185/vazadinhas/internal/model"
)

// Reason explains a decision.
type Reason string

const (
	ReasonNoSession      Reason = "NO_SESSION"
	ReasonNoSubscription Reason = "NO_SUBSCRIPTION"
	ReasonExpired        Reason = "EXPIRED"
	ReasonOK             Reason = "OK"
)

// Reasons lists every reason, in evaluation order.
var Reasons = []Reason{ReasonNoSession, ReasonNoSubscription, ReasonExpired, ReasonOK}

// Decision is the outcome of CanView.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
}

// CanView reports whether playback is permitted. It never fails: a record marked
// active without an expiry is treated as expired.
func CanView(session *model.Session, latest *model.SubscriptionRecord, now time.Time) Decision {
	if session == nil {
		return Decision{Reason: ReasonNoSession}
	}
	if latest == nil || latest.Status != model.StatusActive {
		return Decision{Reason: ReasonNoSubscription}
	}
	if latest.ExpiresAt == nil || !latest.ExpiresAt.After(now) {
		return Decision{Reason: ReasonExpired}
	}
	return Decision{Allowed: true, Reason: ReasonOK}
}

// State derives the lifecycle state of the latest record. The stored status may
// still read active after expiry; only this derivation is trusted.
func State(latest *model.SubscriptionRecord, now time.Time) model.LifecycleState {
	if latest == nil {
		return model.StateNone
	}
	switch latest.Status {
	case model.StatusPending:
		return model.StatePending
	case model.StatusActive:
		if latest.ExpiresAt != nil && latest.ExpiresAt.After(now) {
			return model.StateActive
		}
		return model.StateExpired
	default:
		return model.StateExpired
	}
}
