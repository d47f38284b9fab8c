package service

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/vazadinhas/internal/access"
	"github.com/and161185/vazadinhas/internal/errs"
	"github.com/and161185/vazadinhas/internal/model"
	"github.com/and161185/vazadinhas/internal/repository/memory"
)

func TestPlayback_GatesPlayableRef(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	repo := memory.NewCatalog()
	catalog := NewCatalogService(repo)
	catalog.now = clock
	subs := NewSubscriptionService(memory.NewSubscriptions(), nil, zaptest.NewLogger(t))
	subs.now = clock
	play := NewPlaybackService(catalog, subs, zaptest.NewLogger(t))
	play.now = clock

	it, err := catalog.Create(ctx, validItem())
	require.NoError(t, err)
	user := &model.Session{ID: uuid.Must(uuid.NewV4()), UserID: uuid.Must(uuid.NewV4())}

	res, err := play.Play(ctx, nil, it.ID)
	require.NoError(t, err)
	require.Equal(t, access.ReasonNoSession, res.Decision.Reason)
	require.Empty(t, res.PlayableRef)
	require.Equal(t, it.Title, res.Item.Title)

	res, err = play.Play(ctx, user, it.ID)
	require.NoError(t, err)
	require.Equal(t, access.ReasonNoSubscription, res.Decision.Reason)
	require.Empty(t, res.PlayableRef)

	rec, err := subs.RequestPlan(ctx, user, "proof")
	require.NoError(t, err)
	_, err = subs.Approve(ctx, rec.ID)
	require.NoError(t, err)

	res, err = play.Play(ctx, user, it.ID)
	require.NoError(t, err)
	require.True(t, res.Decision.Allowed)
	require.Equal(t, it.PlayableRef, res.PlayableRef)

	stored, err := repo.GetByID(ctx, it.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), stored.ViewCount)

	now = now.Add(model.PlanWindow)
	res, err = play.Play(ctx, user, it.ID)
	require.NoError(t, err)
	require.Equal(t, access.ReasonExpired, res.Decision.Reason)
	require.Empty(t, res.PlayableRef)

	require.NoError(t, catalog.Delete(ctx, it.ID))
	_, err = play.Play(ctx, user, it.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
}
