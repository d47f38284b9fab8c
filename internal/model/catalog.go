package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Genre is the closed set of catalog categories.
type Genre string

const (
	GenreAction      Genre = "action"
	GenreComedy      Genre = "comedy"
	GenreDrama       Genre = "drama"
	GenreHorror      Genre = "horror"
	GenreSciFi       Genre = "sci-fi"
	GenreThriller    Genre = "thriller"
	GenreRomance     Genre = "romance"
	GenreDocumentary Genre = "documentary"
)

// Genres lists every valid genre in display order.
var Genres = []Genre{
	GenreAction, GenreComedy, GenreDrama, GenreHorror,
	GenreSciFi, GenreThriller, GenreRomance, GenreDocumentary,
}

// ParseGenre validates s against the closed genre set.
func ParseGenre(s string) (Genre, error) {
	g := Genre(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range Genres {
		if v == g {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown genre %q", s)
}

// ContentItem is a catalog entry (movie or dorama).
type ContentItem struct {
	ID            uuid.UUID
	Title         string
	Description   string
	ThumbnailURL  string
	PlayableRef   string // embeddable player URL or raw embed markup
	Genre         Genre
	DurationLabel string
	Tags          []string // ordered set
	ViewCount     int64
	Active        bool // false = soft-deleted
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ContentPatch carries a partial update; nil fields are left unchanged.
type ContentPatch struct {
	Title         *string
	Description   *string
	ThumbnailURL  *string
	PlayableRef   *string
	Genre         *Genre
	DurationLabel *string
	Tags          *[]string
	Active        *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p ContentPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.ThumbnailURL == nil && p.PlayableRef == nil &&
		p.Genre == nil && p.DurationLabel == nil && p.Tags == nil && p.Active == nil
}

// ContentFilter narrows catalog listings.
type ContentFilter struct {
	Genre      *Genre
	ActiveOnly bool
	Query      string // case-insensitive title substring
}

// NormalizeTags trims tags, drops empties and removes case-insensitive duplicates,
// keeping the first occurrence and the original order.
func NormalizeTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		k := strings.ToLower(t)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return out
}
