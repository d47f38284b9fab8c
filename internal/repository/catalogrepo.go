package repository

import (
	"context"
	"time"

	"github.com/and161185/vazadinhas/internal/model"
	"github.com/gofrs/uuid/v5"
)

// CatalogRepository is the Catalog Store boundary.
type CatalogRepository interface {
	// List returns items matching the filter, newest-created first.
	List(ctx context.Context, f model.ContentFilter) ([]model.ContentItem, error)
	// GetByID returns a single item regardless of its active flag.
	GetByID(ctx context.Context, id uuid.UUID) (*model.ContentItem, error)
	// Create inserts a fully populated item.
	Create(ctx context.Context, it *model.ContentItem) error
	// Update applies the non-nil patch fields and sets updated_at, returning the stored item.
	Update(ctx context.Context, id uuid.UUID, p model.ContentPatch, at time.Time) (*model.ContentItem, error)
	// SoftDelete clears the active flag.
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
	// IncrementViews bumps the view counter of an active item.
	IncrementViews(ctx context.Context, id uuid.UUID) error
}
