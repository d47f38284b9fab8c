package postgres

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/vazadinhas/internal/errs"
	"github.com/and161185/vazadinhas/internal/model"
)

const contentCols = `id, title, description, thumbnail_url, playable_ref, genre, duration_label, tags, view_count, active, created_at, updated_at`

// CatalogRepo implements CatalogRepository using PostgreSQL.
type CatalogRepo struct{ db *DB }

// NewCatalogRepo constructs a catalog repository.
func NewCatalogRepo(db *DB) *CatalogRepo { return &CatalogRepo{db: db} }

func scanContent(row pgx.Row) (*model.ContentItem, error) {
	var it model.ContentItem
	var genre string
	if err := row.Scan(&it.ID, &it.Title, &it.Description, &it.ThumbnailURL, &it.PlayableRef, &genre,
		&it.DurationLabel, &it.Tags, &it.ViewCount, &it.Active, &it.CreatedAt, &it.UpdatedAt); err != nil {
		return nil, err
	}
	it.Genre = model.Genre(genre)
	if it.Tags == nil {
		it.Tags = []string{}
	}
	return &it, nil
}

// List returns items matching the filter, newest-created first.
func (r *CatalogRepo) List(ctx context.Context, f model.ContentFilter) ([]model.ContentItem, error) {
	const q = `
SELECT ` + contentCols + `
FROM content_items
WHERE ($1::text IS NULL OR genre = $1)
  AND (NOT $2 OR active)
  AND ($3 = '' OR strpos(lower(title), lower($3)) > 0)
ORDER BY created_at DESC, id`
	var genre *string
	if f.Genre != nil {
		g := string(*f.Genre)
		genre = &g
	}
	rows, err := r.db.Pool.Query(ctx, q, genre, f.ActiveOnly, f.Query)
	if err != nil {
		return nil, mapPostgresError("content.list", err)
	}
	defer rows.Close()

	out := make([]model.ContentItem, 0)
	for rows.Next() {
		it, err := scanContent(rows)
		if err != nil {
			return nil, mapPostgresError("content.list", err)
		}
		out = append(out, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPostgresError("content.list", err)
	}
	return out, nil
}

// GetByID returns a single item regardless of its active flag.
func (r *CatalogRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.ContentItem, error) {
	const q = `SELECT ` + contentCols + ` FROM content_items WHERE id=$1`
	it, err := scanContent(r.db.Pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, mapPostgresError("content.get", err)
	}
	return it, nil
}

// Create inserts a fully populated item.
func (r *CatalogRepo) Create(ctx context.Context, it *model.ContentItem) error {
	const q = `
INSERT INTO content_items (` + contentCols + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	tags := it.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err := r.db.Pool.Exec(ctx, q, it.ID, it.Title, it.Description, it.ThumbnailURL, it.PlayableRef,
		string(it.Genre), it.DurationLabel, tags, it.ViewCount, it.Active, it.CreatedAt, it.UpdatedAt)
	return mapPostgresError("content.create", err)
}

// Update applies the non-nil patch fields in one statement and returns the stored row.
func (r *CatalogRepo) Update(ctx context.Context, id uuid.UUID, p model.ContentPatch, at time.Time) (*model.ContentItem, error) {
	const q = `
UPDATE content_items SET
  title          = COALESCE($2, title),
  description    = COALESCE($3, description),
  thumbnail_url  = COALESCE($4, thumbnail_url),
  playable_ref   = COALESCE($5, playable_ref),
  genre          = COALESCE($6, genre),
  duration_label = COALESCE($7, duration_label),
  tags           = COALESCE($8::text[], tags),
  active         = COALESCE($9, active),
  updated_at     = $10
WHERE id=$1
RETURNING ` + contentCols
	var genre *string
	if p.Genre != nil {
		g := string(*p.Genre)
		genre = &g
	}
	var tags any
	if p.Tags != nil {
		t := *p.Tags
		if t == nil {
			t = []string{}
		}
		tags = t
	}
	it, err := scanContent(r.db.Pool.QueryRow(ctx, q, id, p.Title, p.Description, p.ThumbnailURL,
		p.PlayableRef, genre, p.DurationLabel, tags, p.Active, at))
	if err != nil {
		return nil, mapPostgresError("content.update", err)
	}
	return it, nil
}

// SoftDelete clears the active flag. Repeated calls are no-ops on an existing row.
func (r *CatalogRepo) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	const q = `UPDATE content_items SET active=false, updated_at=$2 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, at)
	if err != nil {
		return mapPostgresError("content.soft_delete", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// IncrementViews bumps the view counter of an active item.
func (r *CatalogRepo) IncrementViews(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE content_items SET view_count = view_count + 1 WHERE id=$1 AND active`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return mapPostgresError("content.increment_views", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
