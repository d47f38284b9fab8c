package service

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/vazadinhas/internal/access"
	"github.com/and161185/vazadinhas/internal/authctx"
	"github.com/and161185/vazadinhas/internal/errs"
	"github.com/and161185/vazadinhas/internal/metrics"
	"github.com/and161185/vazadinhas/internal/model"
	"github.com/and161185/vazadinhas/internal/repository"
)

// AuditSink receives committed subscription transitions.
type AuditSink interface {
	Record(ctx context.Context, e model.AuditEntry) error
}

// SubscriptionStatus is a user's view of their plan.
type SubscriptionStatus struct {
	Latest   *model.SubscriptionRecord
	State    model.LifecycleState
	Decision access.Decision
}

// SubscriptionService governs plan requests and admin review.
// Each transition is a single store write; nothing is retried.
type SubscriptionService interface {
	// RequestPlan creates a pending record for the session's user.
	RequestPlan(ctx context.Context, s *model.Session, proofRef string) (*model.SubscriptionRecord, error)
	// Approve activates a record for the fixed plan window starting now.
	Approve(ctx context.Context, id uuid.UUID) (*model.SubscriptionRecord, error)
	// Reject deletes a record.
	Reject(ctx context.Context, id uuid.UUID) error
	// Latest returns the authoritative record of a user, or nil when there is none.
	Latest(ctx context.Context, userID uuid.UUID) (*model.SubscriptionRecord, error)
	// History returns all records of a user, newest first.
	History(ctx context.Context, userID uuid.UUID) ([]model.SubscriptionRecord, error)
	// ListPending returns records awaiting review, newest first.
	ListPending(ctx context.Context) ([]model.SubscriptionRecord, error)
	// Status combines the latest record with its derived state and access decision.
	Status(ctx context.Context, s *model.Session) (SubscriptionStatus, error)
}

type SubscriptionServiceImpl struct {
	repo  repository.SubscriptionRepository
	audit AuditSink
	now   func() time.Time
	log   *zap.Logger
}

// NewSubscriptionService constructs the lifecycle controller.
func NewSubscriptionService(repo repository.SubscriptionRepository, audit AuditSink, log *zap.Logger) *SubscriptionServiceImpl {
	return &SubscriptionServiceImpl{repo: repo, audit: audit, now: time.Now, log: log}
}

// RequestPlan stores proofRef verbatim. Earlier records, pending or not, are superseded by creation time.
func (s *SubscriptionServiceImpl) RequestPlan(ctx context.Context, sess *model.Session, proofRef string) (*model.SubscriptionRecord, error) {
	if sess == nil {
		return nil, errs.ErrNotAuthenticated
	}
	now := s.now()
	rec := &model.SubscriptionRecord{
		ID:              uuid.Must(uuid.NewV4()),
		UserID:          sess.UserID,
		Status:          model.StatusPending,
		PaymentMethod:   model.PaymentPix,
		AmountMinor:     model.PlanPriceMinor,
		PaymentProofRef: proofRef,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return nil, errs.Persistence("subscriptions.insert", err)
	}
	s.committed(ctx, model.AuditRequested, rec, sess.UserID, now)
	return rec, nil
}

// Approve sets status active with expiresAt = now + PlanWindow, whatever the
// current status. Re-approving restarts the window from the second call.
func (s *SubscriptionServiceImpl) Approve(ctx context.Context, id uuid.UUID) (*model.SubscriptionRecord, error) {
	if id == uuid.Nil {
		return nil, validation("empty id")
	}
	now := s.now()
	rec, err := s.repo.Activate(ctx, id, now, now.Add(model.PlanWindow))
	if err != nil {
		return nil, errs.Persistence("subscriptions.activate", err)
	}
	s.committed(ctx, model.AuditApproved, rec, actorID(ctx), now)
	return rec, nil
}

// Reject deletes the record; there is no stored rejected state.
func (s *SubscriptionServiceImpl) Reject(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return validation("empty id")
	}
	rec, err := s.repo.Delete(ctx, id)
	if err != nil {
		return errs.Persistence("subscriptions.delete", err)
	}
	s.committed(ctx, model.AuditRejected, rec, actorID(ctx), s.now())
	return nil
}

// Latest maps a missing record to nil.
func (s *SubscriptionServiceImpl) Latest(ctx context.Context, userID uuid.UUID) (*model.SubscriptionRecord, error) {
	rec, err := s.repo.LatestForUser(ctx, userID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Persistence("subscriptions.latest", err)
	}
	return rec, nil
}

// History lists every record of a user.
func (s *SubscriptionServiceImpl) History(ctx context.Context, userID uuid.UUID) ([]model.SubscriptionRecord, error) {
	recs, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, errs.Persistence("subscriptions.list_for_user", err)
	}
	return recs, nil
}

// ListPending lists records awaiting review.
func (s *SubscriptionServiceImpl) ListPending(ctx context.Context) ([]model.SubscriptionRecord, error) {
	recs, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, errs.Persistence("subscriptions.list_pending", err)
	}
	return recs, nil
}

// Status evaluates the latest record at the current time.
func (s *SubscriptionServiceImpl) Status(ctx context.Context, sess *model.Session) (SubscriptionStatus, error) {
	if sess == nil {
		return SubscriptionStatus{}, errs.ErrNotAuthenticated
	}
	latest, err := s.Latest(ctx, sess.UserID)
	if err != nil {
		return SubscriptionStatus{}, err
	}
	now := s.now()
	return SubscriptionStatus{
		Latest:   latest,
		State:    access.State(latest, now),
		Decision: access.CanView(sess, latest, now),
	}, nil
}

// committed runs after a successful write: the transition stands even if the sink fails.
func (s *SubscriptionServiceImpl) committed(ctx context.Context, action model.AuditAction, rec *model.SubscriptionRecord, actor uuid.UUID, at time.Time) {
	metrics.SubscriptionTransitions.WithLabelValues(string(action)).Inc()
	s.log.Info("subscription transition",
		zap.String("action", string(action)),
		zap.String("subscription_id", rec.ID.String()),
		zap.String("user_id", rec.UserID.String()),
	)
	if s.audit == nil {
		return
	}
	e := model.AuditEntry{Action: action, SubscriptionID: rec.ID, UserID: rec.UserID, ActorID: actor, At: at}
	if err := s.audit.Record(ctx, e); err != nil {
		metrics.AuditSinkFailures.Inc()
		s.log.Warn("audit sink failed", zap.String("action", string(action)), zap.Error(err))
	}
}

func actorID(ctx context.Context) uuid.UUID {
	if sess, ok := authctx.SessionFromCtx(ctx); ok {
		return sess.UserID
	}
	return uuid.Nil
}
