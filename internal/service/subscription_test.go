package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/vazadinhas/internal/access"
	"github.com/and161185/vazadinhas/internal/authctx"
	"github.com/and161185/vazadinhas/internal/errs"
	"github.com/and161185/vazadinhas/internal/model"
	"github.com/and161185/vazadinhas/internal/repository"
	"github.com/and161185/vazadinhas/internal/repository/memory"
)

type fakeSink struct {
	mu      sync.Mutex
	entries []model.AuditEntry
	err     error
}

var _ AuditSink = (*fakeSink)(nil)

func (f *fakeSink) Record(_ context.Context, e model.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return f.err
}

type failingSubs struct {
	repository.SubscriptionRepository
	err error
}

func (f *failingSubs) Insert(context.Context, *model.SubscriptionRecord) error { return f.err }
func (f *failingSubs) LatestForUser(context.Context, uuid.UUID) (*model.SubscriptionRecord, error) {
	return nil, f.err
}

type subsEnv struct {
	svc  *SubscriptionServiceImpl
	repo *memory.Subscriptions
	sink *fakeSink
	now  time.Time
	user *model.Session
	adm  *model.Session
}

func newSubsEnv(t *testing.T) *subsEnv {
	t.Helper()
	env := &subsEnv{
		repo: memory.NewSubscriptions(),
		sink: &fakeSink{},
		now:  time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
		user: &model.Session{ID: uuid.Must(uuid.NewV4()), UserID: uuid.Must(uuid.NewV4()), Email: "ana@example.com"},
		adm:  &model.Session{ID: uuid.Must(uuid.NewV4()), UserID: uuid.Must(uuid.NewV4()), Email: "boss@example.com", Admin: true},
	}
	env.svc = NewSubscriptionService(env.repo, env.sink, zaptest.NewLogger(t))
	env.svc.now = func() time.Time { return env.now }
	return env
}

func (e *subsEnv) adminCtx() context.Context {
	return authctx.WithSession(context.Background(), e.adm)
}

func TestSubscription_RequestApproveExpire(t *testing.T) {
	t.Parallel()
	env := newSubsEnv(t)
	ctx := context.Background()

	st, err := env.svc.Status(ctx, env.user)
	require.NoError(t, err)
	require.Nil(t, st.Latest)
	require.Equal(t, model.StateNone, st.State)
	require.Equal(t, access.ReasonNoSubscription, st.Decision.Reason)

	rec, err := env.svc.RequestPlan(ctx, env.user, "http://x/proof.png")
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, rec.Status)
	require.Equal(t, int64(2000), rec.AmountMinor)
	require.Equal(t, model.PaymentPix, rec.PaymentMethod)
	require.Equal(t, "http://x/proof.png", rec.PaymentProofRef)
	require.Nil(t, rec.ActivatedAt)
	require.Nil(t, rec.ExpiresAt)

	st, err = env.svc.Status(ctx, env.user)
	require.NoError(t, err)
	require.Equal(t, model.StatePending, st.State)
	require.False(t, st.Decision.Allowed)

	env.now = env.now.Add(3 * time.Hour)
	approvedAt := env.now
	act, err := env.svc.Approve(env.adminCtx(), rec.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusActive, act.Status)
	require.Equal(t, approvedAt, *act.ActivatedAt)
	require.Equal(t, approvedAt.Add(30*24*time.Hour), *act.ExpiresAt)

	st, err = env.svc.Status(ctx, env.user)
	require.NoError(t, err)
	require.True(t, st.Decision.Allowed)
	require.Equal(t, model.StateActive, st.State)

	env.now = *act.ExpiresAt
	st, err = env.svc.Status(ctx, env.user)
	require.NoError(t, err)
	require.False(t, st.Decision.Allowed)
	require.Equal(t, access.ReasonExpired, st.Decision.Reason)
	require.Equal(t, model.StateExpired, st.State)
	require.Equal(t, model.StatusActive, st.Latest.Status, "expiry is never written back")

	require.Len(t, env.sink.entries, 2)
	require.Equal(t, model.AuditRequested, env.sink.entries[0].Action)
	require.Equal(t, env.user.UserID, env.sink.entries[0].ActorID)
	require.Equal(t, model.AuditApproved, env.sink.entries[1].Action)
	require.Equal(t, env.adm.UserID, env.sink.entries[1].ActorID)
	require.Equal(t, env.user.UserID, env.sink.entries[1].UserID)

	raw := "  http://x/proof.png\n"
	next, err := env.svc.RequestPlan(ctx, env.user, raw)
	require.NoError(t, err)
	require.Equal(t, raw, next.PaymentProofRef)
	st, err = env.svc.Status(ctx, env.user)
	require.NoError(t, err)
	require.Equal(t, raw, st.Latest.PaymentProofRef)
}

func TestSubscription_ReapproveRestartsWindow(t *testing.T) {
	t.Parallel()
	env := newSubsEnv(t)
	rec, err := env.svc.RequestPlan(context.Background(), env.user, "")
	require.NoError(t, err)

	first, err := env.svc.Approve(env.adminCtx(), rec.ID)
	require.NoError(t, err)
	again, err := env.svc.Approve(env.adminCtx(), rec.ID)
	require.NoError(t, err)
	require.Equal(t, *first.ExpiresAt, *again.ExpiresAt, "same now, same window")

	env.now = env.now.Add(10 * 24 * time.Hour)
	later, err := env.svc.Approve(env.adminCtx(), rec.ID)
	require.NoError(t, err)
	require.Equal(t, env.now.Add(model.PlanWindow), *later.ExpiresAt)
	require.Equal(t, first.ExpiresAt.Add(10*24*time.Hour), *later.ExpiresAt)
}

func TestSubscription_RejectFallsBackToPreviousRecord(t *testing.T) {
	t.Parallel()
	env := newSubsEnv(t)
	ctx := context.Background()

	older, err := env.svc.RequestPlan(ctx, env.user, "old")
	require.NoError(t, err)
	env.now = env.now.Add(time.Minute)
	newer, err := env.svc.RequestPlan(ctx, env.user, "new")
	require.NoError(t, err)

	latest, err := env.svc.Latest(ctx, env.user.UserID)
	require.NoError(t, err)
	require.Equal(t, newer.ID, latest.ID)

	require.NoError(t, env.svc.Reject(env.adminCtx(), newer.ID))

	pending, err := env.svc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, older.ID, pending[0].ID)

	latest, err = env.svc.Latest(ctx, env.user.UserID)
	require.NoError(t, err)
	require.Equal(t, older.ID, latest.ID)

	require.NoError(t, env.svc.Reject(env.adminCtx(), older.ID))
	latest, err = env.svc.Latest(ctx, env.user.UserID)
	require.NoError(t, err)
	require.Nil(t, latest)

	hist, err := env.svc.History(ctx, env.user.UserID)
	require.NoError(t, err)
	require.Empty(t, hist)

	last := env.sink.entries[len(env.sink.entries)-1]
	require.Equal(t, model.AuditRejected, last.Action)
	require.Equal(t, older.ID, last.SubscriptionID)
}

func TestSubscription_NotFoundAndValidation(t *testing.T) {
	t.Parallel()
	env := newSubsEnv(t)
	ctx := env.adminCtx()

	_, err := env.svc.Approve(ctx, uuid.Must(uuid.NewV4()))
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.ErrorIs(t, env.svc.Reject(ctx, uuid.Must(uuid.NewV4())), errs.ErrNotFound)
	_, err = env.svc.Approve(ctx, uuid.Nil)
	require.ErrorIs(t, err, errs.ErrValidation)

	_, err = env.svc.RequestPlan(ctx, nil, "x")
	require.ErrorIs(t, err, errs.ErrNotAuthenticated)
	_, err = env.svc.Status(ctx, nil)
	require.ErrorIs(t, err, errs.ErrNotAuthenticated)
	require.Empty(t, env.sink.entries)
}

func TestSubscription_SinkFailureKeepsTransition(t *testing.T) {
	t.Parallel()
	env := newSubsEnv(t)
	env.sink.err = errors.New("redis down")

	rec, err := env.svc.RequestPlan(context.Background(), env.user, "p")
	require.NoError(t, err)
	_, err = env.svc.Approve(env.adminCtx(), rec.ID)
	require.NoError(t, err)

	latest, err := env.svc.Latest(context.Background(), env.user.UserID)
	require.NoError(t, err)
	require.Equal(t, model.StatusActive, latest.Status)
}

func TestSubscription_StoreFailureIsPersistence(t *testing.T) {
	t.Parallel()
	svc := NewSubscriptionService(&failingSubs{err: errors.New("connection reset")}, nil, zaptest.NewLogger(t))
	user := &model.Session{UserID: uuid.Must(uuid.NewV4())}

	_, err := svc.RequestPlan(context.Background(), user, "p")
	require.ErrorIs(t, err, errs.ErrPersistence)
	require.ErrorContains(t, err, "connection reset")

	_, err = svc.Status(context.Background(), user)
	require.ErrorIs(t, err, errs.ErrPersistence)
}
