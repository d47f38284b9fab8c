// Package memory contains in-process implementations of repository interfaces.
// They back the server when no database is configured and the handler tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/vazadinhas/internal/errs"
	"github.com/and161185/vazadinhas/internal/model"
)

// Users is an in-memory UserRepository.
type Users struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]model.User
	byEmail map[string]uuid.UUID
}

// NewUsers constructs an empty user store.
func NewUsers() *Users {
	return &Users{byID: make(map[uuid.UUID]model.User), byEmail: make(map[string]uuid.UUID)}
}

// Create inserts a user; the email must be unused.
func (s *Users) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[u.Email]; ok {
		return errs.ErrAlreadyExists
	}
	if _, ok := s.byID[u.ID]; ok {
		return errs.ErrAlreadyExists
	}
	s.byID[u.ID] = *u
	s.byEmail[u.Email] = u.ID
	return nil
}

// GetByID loads a user by ID.
func (s *Users) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &u, nil
}

// GetByEmail loads a user by email.
func (s *Users) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	u := s.byID[id]
	return &u, nil
}

// Sessions is an in-memory SessionRepository. It resolves email and admin
// flag from the user store the way the SQL join does.
type Sessions struct {
	mu    sync.RWMutex
	users *Users
	rows  map[uuid.UUID]model.Session
}

// NewSessions constructs a session store bound to users.
func NewSessions(users *Users) *Sessions {
	return &Sessions{users: users, rows: make(map[uuid.UUID]model.Session)}
}

// Create persists a session without its token.
func (s *Sessions) Create(ctx context.Context, sess *model.Session) error {
	if _, err := s.users.GetByID(ctx, sess.UserID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[sess.ID]; ok {
		return errs.ErrAlreadyExists
	}
	row := *sess
	row.Token = ""
	s.rows[sess.ID] = row
	return nil
}

// Get loads a session by ID.
func (s *Sessions) Get(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	s.mu.RLock()
	row, ok := s.rows[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errs.ErrNotFound
	}
	u, err := s.users.GetByID(ctx, row.UserID)
	if err != nil {
		return nil, err
	}
	row.Email = u.Email
	row.Admin = u.IsAdmin
	return &row, nil
}

// Delete revokes a session.
func (s *Sessions) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return errs.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

// DeleteExpired purges sessions expired at now.
func (s *Sessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, row := range s.rows {
		if row.IsExpired(now) {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

// Catalog is an in-memory CatalogRepository.
type Catalog struct {
	mu    sync.RWMutex
	items map[uuid.UUID]model.ContentItem
}

// NewCatalog constructs an empty catalog store.
func NewCatalog() *Catalog {
	return &Catalog{items: make(map[uuid.UUID]model.ContentItem)}
}

func cloneItem(it model.ContentItem) model.ContentItem {
	it.Tags = append([]string{}, it.Tags...)
	return it
}

// List returns matching items, newest-created first.
func (c *Catalog) List(_ context.Context, f model.ContentFilter) ([]model.ContentItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q := strings.ToLower(f.Query)
	out := make([]model.ContentItem, 0, len(c.items))
	for _, it := range c.items {
		if f.Genre != nil && it.Genre != *f.Genre {
			continue
		}
		if f.ActiveOnly && !it.Active {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(it.Title), q) {
			continue
		}
		out = append(out, cloneItem(it))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// GetByID returns a single item regardless of its active flag.
func (c *Catalog) GetByID(_ context.Context, id uuid.UUID) (*model.ContentItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	it = cloneItem(it)
	return &it, nil
}

// Create inserts an item.
func (c *Catalog) Create(_ context.Context, it *model.ContentItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[it.ID]; ok {
		return errs.ErrAlreadyExists
	}
	c.items[it.ID] = cloneItem(*it)
	return nil
}

// Update applies the non-nil patch fields.
func (c *Catalog) Update(_ context.Context, id uuid.UUID, p model.ContentPatch, at time.Time) (*model.ContentItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if p.Title != nil {
		it.Title = *p.Title
	}
	if p.Description != nil {
		it.Description = *p.Description
	}
	if p.ThumbnailURL != nil {
		it.ThumbnailURL = *p.ThumbnailURL
	}
	if p.PlayableRef != nil {
		it.PlayableRef = *p.PlayableRef
	}
	if p.Genre != nil {
		it.Genre = *p.Genre
	}
	if p.DurationLabel != nil {
		it.DurationLabel = *p.DurationLabel
	}
	if p.Tags != nil {
		it.Tags = append([]string{}, (*p.Tags)...)
	}
	if p.Active != nil {
		it.Active = *p.Active
	}
	it.UpdatedAt = at
	c.items[id] = it
	out := cloneItem(it)
	return &out, nil
}

// SoftDelete clears the active flag.
func (c *Catalog) SoftDelete(_ context.Context, id uuid.UUID, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[id]
	if !ok {
		return errs.ErrNotFound
	}
	it.Active = false
	it.UpdatedAt = at
	c.items[id] = it
	return nil
}

// IncrementViews bumps the view counter of an active item.
func (c *Catalog) IncrementViews(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[id]
	if !ok || !it.Active {
		return errs.ErrNotFound
	}
	it.ViewCount++
	c.items[id] = it
	return nil
}

type subRow struct {
	rec model.SubscriptionRecord
	seq uint64
}

// Subscriptions is an in-memory SubscriptionRepository.
type Subscriptions struct {
	mu   sync.RWMutex
	seq  uint64
	rows map[uuid.UUID]subRow
}

// NewSubscriptions constructs an empty subscription store.
func NewSubscriptions() *Subscriptions {
	return &Subscriptions{rows: make(map[uuid.UUID]subRow)}
}

func cloneRecord(r model.SubscriptionRecord) model.SubscriptionRecord {
	if r.ActivatedAt != nil {
		t := *r.ActivatedAt
		r.ActivatedAt = &t
	}
	if r.ExpiresAt != nil {
		t := *r.ExpiresAt
		r.ExpiresAt = &t
	}
	return r
}

// sorted returns matching rows newest first; insertion order breaks timestamp ties.
func (s *Subscriptions) sorted(keep func(model.SubscriptionRecord) bool) []model.SubscriptionRecord {
	rows := make([]subRow, 0, len(s.rows))
	for _, r := range s.rows {
		if keep(r.rec) {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].rec.CreatedAt.Equal(rows[j].rec.CreatedAt) {
			return rows[i].rec.CreatedAt.After(rows[j].rec.CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})
	out := make([]model.SubscriptionRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, cloneRecord(r.rec))
	}
	return out
}

// LatestForUser returns the most recently created record of a user.
func (s *Subscriptions) LatestForUser(_ context.Context, userID uuid.UUID) (*model.SubscriptionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.sorted(func(r model.SubscriptionRecord) bool { return r.UserID == userID })
	if len(all) == 0 {
		return nil, errs.ErrNotFound
	}
	return &all[0], nil
}

// ListForUser returns all records of a user, newest first.
func (s *Subscriptions) ListForUser(_ context.Context, userID uuid.UUID) ([]model.SubscriptionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(r model.SubscriptionRecord) bool { return r.UserID == userID }), nil
}

// ListPending returns pending records, newest first.
func (s *Subscriptions) ListPending(_ context.Context) ([]model.SubscriptionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(r model.SubscriptionRecord) bool { return r.Status == model.StatusPending }), nil
}

// Insert stores a new record.
func (s *Subscriptions) Insert(_ context.Context, rec *model.SubscriptionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[rec.ID]; ok {
		return errs.ErrAlreadyExists
	}
	s.seq++
	s.rows[rec.ID] = subRow{rec: cloneRecord(*rec), seq: s.seq}
	return nil
}

// Activate marks a record active with the given window.
func (s *Subscriptions) Activate(_ context.Context, id uuid.UUID, activatedAt, expiresAt time.Time) (*model.SubscriptionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	row.rec.Status = model.StatusActive
	row.rec.ActivatedAt = &activatedAt
	row.rec.ExpiresAt = &expiresAt
	row.rec.UpdatedAt = activatedAt
	s.rows[id] = row
	out := cloneRecord(row.rec)
	return &out, nil
}

// Delete removes a record and returns it.
func (s *Subscriptions) Delete(_ context.Context, id uuid.UUID) (*model.SubscriptionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	delete(s.rows, id)
	out := cloneRecord(row.rec)
	return &out, nil
}

// Audit is an in-memory AuditRepository.
type Audit struct {
	mu      sync.Mutex
	entries []model.AuditEntry
}

// NewAudit constructs an empty audit log.
func NewAudit() *Audit { return &Audit{} }

// Insert appends an entry.
func (a *Audit) Insert(_ context.Context, e model.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return nil
}

// Entries returns a copy of the log in insertion order.
func (a *Audit) Entries() []model.AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.AuditEntry(nil), a.entries...)
}
