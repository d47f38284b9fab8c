// Package convert maps domain types to the JSON shapes of the HTTP API and back.
package convert

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	u "github.com/gofrs/uuid/v5"

	"github.com/and161185/vazadinhas/internal/access"
	"github.com/and161185/vazadinhas/internal/errs"
	"github.com/and161185/vazadinhas/internal/model"
	"github.com/and161185/vazadinhas/internal/service"
)

// maxBody bounds request bodies accepted by Decode.
const maxBody = 1 << 20

// Item is the wire shape of a catalog entry. PlayableRef is only filled for admins.
type Item struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	ThumbnailURL  string    `json:"thumbnail_url"`
	PlayableRef   string    `json:"playable_ref,omitempty"`
	Genre         string    `json:"genre"`
	DurationLabel string    `json:"duration_label,omitempty"`
	Tags          []string  `json:"tags"`
	ViewCount     int64     `json:"view_count"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ToItem converts a domain item. withPlayable exposes the embed reference.
func ToItem(it *model.ContentItem, withPlayable bool) Item {
	out := Item{
		ID:            it.ID.String(),
		Title:         it.Title,
		Description:   it.Description,
		ThumbnailURL:  it.ThumbnailURL,
		Genre:         string(it.Genre),
		DurationLabel: it.DurationLabel,
		Tags:          it.Tags,
		ViewCount:     it.ViewCount,
		Active:        it.Active,
		CreatedAt:     it.CreatedAt,
		UpdatedAt:     it.UpdatedAt,
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	if withPlayable {
		out.PlayableRef = it.PlayableRef
	}
	return out
}

// ToItems converts a listing.
func ToItems(items []model.ContentItem, withPlayable bool) []Item {
	out := make([]Item, 0, len(items))
	for i := range items {
		out = append(out, ToItem(&items[i], withPlayable))
	}
	return out
}

// ItemInput is the admin create payload.
type ItemInput struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	ThumbnailURL  string   `json:"thumbnail_url"`
	PlayableRef   string   `json:"playable_ref"`
	Genre         string   `json:"genre"`
	DurationLabel string   `json:"duration_label"`
	Tags          []string `json:"tags"`
}

// Model converts the payload; field validation happens in the catalog service.
func (in ItemInput) Model() model.ContentItem {
	return model.ContentItem{
		Title:         in.Title,
		Description:   in.Description,
		ThumbnailURL:  in.ThumbnailURL,
		PlayableRef:   in.PlayableRef,
		Genre:         model.Genre(in.Genre),
		DurationLabel: in.DurationLabel,
		Tags:          in.Tags,
	}
}

// ItemPatch is the admin partial update payload. Absent fields stay unchanged.
type ItemPatch struct {
	Title         *string   `json:"title"`
	Description   *string   `json:"description"`
	ThumbnailURL  *string   `json:"thumbnail_url"`
	PlayableRef   *string   `json:"playable_ref"`
	Genre         *string   `json:"genre"`
	DurationLabel *string   `json:"duration_label"`
	Tags          *[]string `json:"tags"`
	Active        *bool     `json:"active"`
}

// Model converts the payload into a domain patch.
func (p ItemPatch) Model() model.ContentPatch {
	out := model.ContentPatch{
		Title:         p.Title,
		Description:   p.Description,
		ThumbnailURL:  p.ThumbnailURL,
		PlayableRef:   p.PlayableRef,
		DurationLabel: p.DurationLabel,
		Tags:          p.Tags,
		Active:        p.Active,
	}
	if p.Genre != nil {
		g := model.Genre(*p.Genre)
		out.Genre = &g
	}
	return out
}

// Subscription is the wire shape of a subscription record.
type Subscription struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Status          string     `json:"status"`
	PaymentMethod   string     `json:"payment_method"`
	AmountMinor     int64      `json:"amount_minor"`
	PaymentProofURL string     `json:"payment_proof_url,omitempty"`
	ActivatedAt     *time.Time `json:"activated_at,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ToSubscription converts a record; nil gives nil.
func ToSubscription(r *model.SubscriptionRecord) *Subscription {
	if r == nil {
		return nil
	}
	return &Subscription{
		ID:              r.ID.String(),
		UserID:          r.UserID.String(),
		Status:          string(r.Status),
		PaymentMethod:   string(r.PaymentMethod),
		AmountMinor:     r.AmountMinor,
		PaymentProofURL: r.PaymentProofRef,
		ActivatedAt:     r.ActivatedAt,
		ExpiresAt:       r.ExpiresAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// ToSubscriptions converts a list of records.
func ToSubscriptions(rs []model.SubscriptionRecord) []Subscription {
	out := make([]Subscription, 0, len(rs))
	for i := range rs {
		out = append(out, *ToSubscription(&rs[i]))
	}
	return out
}

// PlanRequest is the body of a plan request.
type PlanRequest struct {
	PaymentProofURL string `json:"payment_proof_url"`
}

// Status is the user's subscription view.
type Status struct {
	State    string          `json:"state"`
	Decision access.Decision `json:"decision"`
	Latest   *Subscription   `json:"latest"`
}

// ToStatus converts a service status.
func ToStatus(s service.SubscriptionStatus) Status {
	return Status{
		State:    string(s.State),
		Decision: s.Decision,
		Latest:   ToSubscription(s.Latest),
	}
}

// Credentials is the sign-in body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is the wire shape of a session. Token is only set right after sign-in.
type Session struct {
	Token     string    `json:"token,omitempty"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Admin     bool      `json:"admin"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ToSession converts a domain session.
func ToSession(s *model.Session) Session {
	return Session{
		Token:     s.Token,
		UserID:    s.UserID.String(),
		Email:     s.Email,
		Admin:     s.Admin,
		ExpiresAt: s.ExpiresAt,
	}
}

// SessionEvent is one server-sent session change.
type SessionEvent struct {
	Kind      string    `json:"kind"`
	SessionID string    `json:"session_id"`
	At        time.Time `json:"at"`
}

// ToSessionEvent converts a broker event.
func ToSessionEvent(ev model.SessionEvent) SessionEvent {
	return SessionEvent{Kind: string(ev.Kind), SessionID: ev.SessionID.String(), At: ev.At}
}

// Play is the playback response.
type Play struct {
	Decision    access.Decision `json:"decision"`
	Item        Item            `json:"item"`
	PlayableRef string          `json:"playable_ref,omitempty"`
}

// ToPlay converts a playback result.
func ToPlay(r *service.PlayResult) Play {
	return Play{
		Decision:    r.Decision,
		Item:        ToItem(r.Item, false),
		PlayableRef: r.PlayableRef,
	}
}

// Decode reads one JSON object from r into v. Malformed or unknown fields are validation errors.
func Decode(r io.Reader, v any) error {
	dec := json.NewDecoder(io.LimitReader(r, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errs.ErrValidation)
		}
		return fmt.Errorf("%w: invalid json: %v", errs.ErrValidation, err)
	}
	return nil
}

// ParseID parses a path identifier.
func ParseID(s string) (u.UUID, error) {
	id, err := u.FromString(s)
	if err != nil {
		return u.Nil, fmt.Errorf("%w: invalid id %q", errs.ErrValidation, s)
	}
	return id, nil
}
