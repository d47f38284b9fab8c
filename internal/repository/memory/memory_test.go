package memory

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/vazadinhas/internal/errs"
	"github.com/and161185/vazadinhas/internal/model"
	"github.com/and161185/vazadinhas/internal/repository"
)

var (
	_ repository.UserRepository         = (*Users)(nil)
	_ repository.SessionRepository      = (*Sessions)(nil)
	_ repository.CatalogRepository      = (*Catalog)(nil)
	_ repository.SubscriptionRepository = (*Subscriptions)(nil)
	_ repository.AuditRepository        = (*Audit)(nil)
)

func TestUsers_UniqueEmail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewUsers()

	u := &model.User{ID: uuid.Must(uuid.NewV4()), Email: "a@b.c"}
	require.NoError(t, s.Create(ctx, u))
	require.ErrorIs(t, s.Create(ctx, &model.User{ID: uuid.Must(uuid.NewV4()), Email: "a@b.c"}), errs.ErrAlreadyExists)

	got, err := s.GetByEmail(ctx, "a@b.c")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = s.GetByID(ctx, uuid.Must(uuid.NewV4()))
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSessions_JoinAndPurge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := NewUsers()
	u := &model.User{ID: uuid.Must(uuid.NewV4()), Email: "adm@b.c", IsAdmin: true}
	require.NoError(t, users.Create(ctx, u))
	s := NewSessions(users)

	now := time.Now()
	live := &model.Session{ID: uuid.Must(uuid.NewV4()), UserID: u.ID, Token: "tok", ExpiresAt: now.Add(time.Hour)}
	dead := &model.Session{ID: uuid.Must(uuid.NewV4()), UserID: u.ID, ExpiresAt: now}
	require.NoError(t, s.Create(ctx, live))
	require.NoError(t, s.Create(ctx, dead))
	require.ErrorIs(t, s.Create(ctx, &model.Session{ID: uuid.Must(uuid.NewV4()), UserID: uuid.Must(uuid.NewV4())}), errs.ErrNotFound)

	got, err := s.Get(ctx, live.ID)
	require.NoError(t, err)
	require.Equal(t, "adm@b.c", got.Email)
	require.True(t, got.Admin)
	require.Empty(t, got.Token)

	n, err := s.DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	require.NoError(t, s.Delete(ctx, live.ID))
	require.ErrorIs(t, s.Delete(ctx, live.ID), errs.ErrNotFound)
}

func TestCatalog_ListFilterOrderAndIsolation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewCatalog()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	mk := func(title string, g model.Genre, active bool, age time.Duration) model.ContentItem {
		it := model.ContentItem{
			ID: uuid.Must(uuid.NewV4()), Title: title, Genre: g, Active: active,
			Tags: []string{"t"}, CreatedAt: base.Add(-age), UpdatedAt: base.Add(-age),
		}
		require.NoError(t, c.Create(ctx, &it))
		return it
	}
	old := mk("Old Drama", model.GenreDrama, true, 2*time.Hour)
	newer := mk("New Drama", model.GenreDrama, true, time.Hour)
	mk("Hidden", model.GenreDrama, false, 0)
	mk("Laugh", model.GenreComedy, true, 0)

	g := model.GenreDrama
	got, err := c.List(ctx, model.ContentFilter{Genre: &g, ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, newer.ID, got[0].ID)
	require.Equal(t, old.ID, got[1].ID)

	got, err = c.List(ctx, model.ContentFilter{Query: "DRAMA"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	all, err := c.List(ctx, model.ContentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)

	got[0].Tags[0] = "mutated"
	again, err := c.GetByID(ctx, got[0].ID)
	require.NoError(t, err)
	require.Equal(t, []string{"t"}, again.Tags)
}

func TestCatalog_UpdateSoftDeleteViews(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewCatalog()
	it := model.ContentItem{ID: uuid.Must(uuid.NewV4()), Title: "A", Genre: model.GenreAction, Active: true}
	require.NoError(t, c.Create(ctx, &it))

	at := time.Now()
	title := "B"
	got, err := c.Update(ctx, it.ID, model.ContentPatch{Title: &title}, at)
	require.NoError(t, err)
	require.Equal(t, "B", got.Title)
	require.Equal(t, model.GenreAction, got.Genre)
	require.Equal(t, at, got.UpdatedAt)

	require.NoError(t, c.IncrementViews(ctx, it.ID))
	require.NoError(t, c.SoftDelete(ctx, it.ID, at))
	require.ErrorIs(t, c.IncrementViews(ctx, it.ID), errs.ErrNotFound)

	stored, err := c.GetByID(ctx, it.ID)
	require.NoError(t, err)
	require.False(t, stored.Active)
	require.Equal(t, int64(1), stored.ViewCount)

	_, err = c.Update(ctx, uuid.Must(uuid.NewV4()), model.ContentPatch{Title: &title}, at)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSubscriptions_LatestUsesInsertionOrderOnTies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewSubscriptions()
	user := uuid.Must(uuid.NewV4())
	at := time.Now()

	_, err := s.LatestForUser(ctx, user)
	require.ErrorIs(t, err, errs.ErrNotFound)

	first := &model.SubscriptionRecord{ID: uuid.Must(uuid.NewV4()), UserID: user, Status: model.StatusPending, CreatedAt: at}
	second := &model.SubscriptionRecord{ID: uuid.Must(uuid.NewV4()), UserID: user, Status: model.StatusPending, CreatedAt: at}
	require.NoError(t, s.Insert(ctx, first))
	require.NoError(t, s.Insert(ctx, second))

	latest, err := s.LatestForUser(ctx, user)
	require.NoError(t, err)
	require.Equal(t, second.ID, latest.ID)

	exp := at.Add(model.PlanWindow)
	act, err := s.Activate(ctx, first.ID, at, exp)
	require.NoError(t, err)
	require.Equal(t, model.StatusActive, act.Status)

	pending, err := s.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, second.ID, pending[0].ID)

	*act.ExpiresAt = at
	hist, err := s.ListForUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	require.Equal(t, exp, *hist[1].ExpiresAt)

	del, err := s.Delete(ctx, second.ID)
	require.NoError(t, err)
	require.Equal(t, second.ID, del.ID)
	_, err = s.Delete(ctx, second.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSubscriptions_DeleteReturnsCopy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewSubscriptions()
	at := time.Now()

	rec := &model.SubscriptionRecord{ID: uuid.Must(uuid.NewV4()), UserID: uuid.Must(uuid.NewV4()), Status: model.StatusPending, CreatedAt: at}
	require.NoError(t, s.Insert(ctx, rec))
	_, err := s.Activate(ctx, rec.ID, at, at.Add(model.PlanWindow))
	require.NoError(t, err)

	stored := s.rows[rec.ID].rec
	del, err := s.Delete(ctx, rec.ID)
	require.NoError(t, err)
	require.NotSame(t, stored.ActivatedAt, del.ActivatedAt)
	require.NotSame(t, stored.ExpiresAt, del.ExpiresAt)
	require.Equal(t, *stored.ExpiresAt, *del.ExpiresAt)
}
