package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/vazadinhas/internal/errs"
	"github.com/and161185/vazadinhas/internal/model"
	"github.com/and161185/vazadinhas/internal/repository"
	"github.com/and161185/vazadinhas/internal/repository/memory"
)

type fakeCatalogRepo struct {
	repository.CatalogRepository
	listIn  model.ContentFilter
	listErr error
}

func (f *fakeCatalogRepo) List(_ context.Context, fl model.ContentFilter) ([]model.ContentItem, error) {
	f.listIn = fl
	return nil, f.listErr
}

func newCatalog(t *testing.T) (*CatalogServiceImpl, *time.Time) {
	t.Helper()
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewCatalogService(memory.NewCatalog())
	s.now = func() time.Time { return now }
	return s, &now
}

func validItem() model.ContentItem {
	return model.ContentItem{
		Title:        " Goblin ",
		ThumbnailURL: "https://img/goblin.jpg",
		PlayableRef:  "https://player/goblin",
		Genre:        "Romance",
		Tags:         []string{"kdrama", " KDrama", "", "fantasy"},
	}
}

func TestCatalog_Create_Validation(t *testing.T) {
	t.Parallel()
	s, _ := newCatalog(t)
	ctx := context.Background()

	for name, mut := range map[string]func(*model.ContentItem){
		"empty title":     func(it *model.ContentItem) { it.Title = "  " },
		"empty thumbnail": func(it *model.ContentItem) { it.ThumbnailURL = "" },
		"empty player":    func(it *model.ContentItem) { it.PlayableRef = "" },
		"unknown genre":   func(it *model.ContentItem) { it.Genre = "western" },
	} {
		in := validItem()
		mut(&in)
		_, err := s.Create(ctx, in)
		require.ErrorIs(t, err, errs.ErrValidation, name)
	}
}

func TestCatalog_Create_Normalizes(t *testing.T) {
	t.Parallel()
	s, now := newCatalog(t)

	in := validItem()
	in.ViewCount = 99
	in.Active = false
	it, err := s.Create(context.Background(), in)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, it.ID)
	require.Equal(t, "Goblin", it.Title)
	require.Equal(t, model.GenreRomance, it.Genre)
	require.Equal(t, []string{"kdrama", "fantasy"}, it.Tags)
	require.Zero(t, it.ViewCount)
	require.True(t, it.Active)
	require.Equal(t, *now, it.CreatedAt)
}

func TestCatalog_UpdateRoundTrip(t *testing.T) {
	t.Parallel()
	s, now := newCatalog(t)
	ctx := context.Background()

	orig, err := s.Create(ctx, validItem())
	require.NoError(t, err)

	*now = now.Add(time.Minute)
	title := "X"
	_, err = s.Update(ctx, orig.ID, model.ContentPatch{Title: &title})
	require.NoError(t, err)

	got, err := s.Get(ctx, orig.ID, false)
	require.NoError(t, err)
	require.Equal(t, "X", got.Title)
	require.True(t, got.UpdatedAt.After(orig.UpdatedAt))

	want := *orig
	want.Title = "X"
	want.UpdatedAt = got.UpdatedAt
	require.Equal(t, want, *got)
}

func TestCatalog_Update_Validation(t *testing.T) {
	t.Parallel()
	s, _ := newCatalog(t)
	ctx := context.Background()
	orig, err := s.Create(ctx, validItem())
	require.NoError(t, err)

	_, err = s.Update(ctx, orig.ID, model.ContentPatch{})
	require.ErrorIs(t, err, errs.ErrValidation)

	blank := " "
	_, err = s.Update(ctx, orig.ID, model.ContentPatch{Title: &blank})
	require.ErrorIs(t, err, errs.ErrValidation)
	require.Equal(t, " ", blank, "caller's patch is not mutated")

	bad := model.Genre("western")
	_, err = s.Update(ctx, orig.ID, model.ContentPatch{Genre: &bad})
	require.ErrorIs(t, err, errs.ErrValidation)

	title := "Y"
	_, err = s.Update(ctx, uuid.Must(uuid.NewV4()), model.ContentPatch{Title: &title})
	require.ErrorIs(t, err, errs.ErrNotFound)

	tags := []string{"a", "A", " b "}
	got, err := s.Update(ctx, orig.ID, model.ContentPatch{Tags: &tags})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, got.Tags)
}

func TestCatalog_SoftDeleteHidesFromPublic(t *testing.T) {
	t.Parallel()
	s, _ := newCatalog(t)
	ctx := context.Background()
	it, err := s.Create(ctx, validItem())
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, it.ID))

	_, err = s.Get(ctx, it.ID, false)
	require.ErrorIs(t, err, errs.ErrNotFound)
	admin, err := s.Get(ctx, it.ID, true)
	require.NoError(t, err)
	require.False(t, admin.Active)

	list, err := s.List(ctx, model.ContentFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Empty(t, list)

	require.ErrorIs(t, s.RecordView(ctx, it.ID), errs.ErrNotFound)
	require.ErrorIs(t, s.Delete(ctx, uuid.Must(uuid.NewV4())), errs.ErrNotFound)
}

func TestCatalog_List_TrimsQueryAndWrapsErrors(t *testing.T) {
	t.Parallel()
	repo := &fakeCatalogRepo{listErr: errors.New("timeout")}
	s := NewCatalogService(repo)

	_, err := s.List(context.Background(), model.ContentFilter{Query: "  gob "})
	require.ErrorIs(t, err, errs.ErrPersistence)
	require.Equal(t, "gob", repo.listIn.Query)
}
