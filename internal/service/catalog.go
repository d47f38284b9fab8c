package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/vazadinhas/internal/errs"
	"github.com/and161185/vazadinhas/internal/model"
	"github.com/and161185/vazadinhas/internal/repository"
)

// CatalogService defines catalog reads and admin mutations.
type CatalogService interface {
	// List returns items matching the filter, newest-created first.
	List(ctx context.Context, f model.ContentFilter) ([]model.ContentItem, error)
	// Get returns one item; inactive items are visible only when includeInactive is set.
	Get(ctx context.Context, id uuid.UUID, includeInactive bool) (*model.ContentItem, error)
	// Create validates and stores a new active item.
	Create(ctx context.Context, in model.ContentItem) (*model.ContentItem, error)
	// Update applies a partial patch and refreshes updatedAt.
	Update(ctx context.Context, id uuid.UUID, p model.ContentPatch) (*model.ContentItem, error)
	// Delete soft-deletes an item.
	Delete(ctx context.Context, id uuid.UUID) error
	// RecordView increments the view counter of an active item.
	RecordView(ctx context.Context, id uuid.UUID) error
}

type CatalogServiceImpl struct {
	repo repository.CatalogRepository
	now  func() time.Time
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(repo repository.CatalogRepository) *CatalogServiceImpl {
	return &CatalogServiceImpl{repo: repo, now: time.Now}
}

func validation(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errs.ErrValidation}, args...)...)
}

// List delegates to the store; the query is trimmed.
func (s *CatalogServiceImpl) List(ctx context.Context, f model.ContentFilter) ([]model.ContentItem, error) {
	f.Query = strings.TrimSpace(f.Query)
	items, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, errs.Persistence("content.list", err)
	}
	return items, nil
}

// Get loads an item, hiding soft-deleted ones from public callers.
func (s *CatalogServiceImpl) Get(ctx context.Context, id uuid.UUID, includeInactive bool) (*model.ContentItem, error) {
	if id == uuid.Nil {
		return nil, validation("empty id")
	}
	it, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errs.Persistence("content.get", err)
	}
	if !it.Active && !includeInactive {
		return nil, errs.ErrNotFound
	}
	return it, nil
}

// Create validates required fields, normalizes tags and stores the item.
// Validation rules:
// - title, thumbnail and playable ref are non-empty after trimming
// - genre belongs to the closed set
func (s *CatalogServiceImpl) Create(ctx context.Context, in model.ContentItem) (*model.ContentItem, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validation("title is required")
	}
	thumb := strings.TrimSpace(in.ThumbnailURL)
	if thumb == "" {
		return nil, validation("thumbnail is required")
	}
	ref := strings.TrimSpace(in.PlayableRef)
	if ref == "" {
		return nil, validation("playable ref is required")
	}
	genre, err := model.ParseGenre(string(in.Genre))
	if err != nil {
		return nil, validation("%v", err)
	}

	now := s.now()
	it := &model.ContentItem{
		ID:            uuid.Must(uuid.NewV4()),
		Title:         title,
		Description:   strings.TrimSpace(in.Description),
		ThumbnailURL:  thumb,
		PlayableRef:   ref,
		Genre:         genre,
		DurationLabel: strings.TrimSpace(in.DurationLabel),
		Tags:          model.NormalizeTags(in.Tags),
		ViewCount:     0,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, it); err != nil {
		return nil, errs.Persistence("content.create", err)
	}
	return it, nil
}

// Update validates provided fields only; absent fields are left unchanged.
func (s *CatalogServiceImpl) Update(ctx context.Context, id uuid.UUID, p model.ContentPatch) (*model.ContentItem, error) {
	if id == uuid.Nil {
		return nil, validation("empty id")
	}
	if p.IsEmpty() {
		return nil, validation("nothing to update")
	}
	var err error
	if p.Title, err = trimRequired("title", p.Title); err != nil {
		return nil, err
	}
	if p.ThumbnailURL, err = trimRequired("thumbnail", p.ThumbnailURL); err != nil {
		return nil, err
	}
	if p.PlayableRef, err = trimRequired("playable ref", p.PlayableRef); err != nil {
		return nil, err
	}
	if p.Genre != nil {
		g, err := model.ParseGenre(string(*p.Genre))
		if err != nil {
			return nil, validation("%v", err)
		}
		p.Genre = &g
	}
	if p.Tags != nil {
		tags := model.NormalizeTags(*p.Tags)
		p.Tags = &tags
	}

	it, err := s.repo.Update(ctx, id, p, s.now())
	if err != nil {
		return nil, errs.Persistence("content.update", err)
	}
	return it, nil
}

func trimRequired(name string, v *string) (*string, error) {
	if v == nil {
		return nil, nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil, validation("%s must not be empty", name)
	}
	return &t, nil
}

// Delete clears the active flag; the row is kept.
func (s *CatalogServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return validation("empty id")
	}
	return errs.Persistence("content.soft_delete", s.repo.SoftDelete(ctx, id, s.now()))
}

// RecordView bumps the view counter.
func (s *CatalogServiceImpl) RecordView(ctx context.Context, id uuid.UUID) error {
	return errs.Persistence("content.increment_views", s.repo.IncrementViews(ctx, id))
}
