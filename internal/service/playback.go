package service

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/vazadinhas/internal/access"
	"github.com/and161185/vazadinhas/internal/metrics"
	"github.com/and161185/vazadinhas/internal/model"
)

// PlayResult is the outcome of a playback request. PlayableRef is empty unless allowed.
type PlayResult struct {
	Decision    access.Decision
	Item        *model.ContentItem
	PlayableRef string
}

// PlaybackService gates playable refs behind the access decision.
type PlaybackService interface {
	Play(ctx context.Context, s *model.Session, itemID uuid.UUID) (*PlayResult, error)
}

type PlaybackServiceImpl struct {
	catalog CatalogService
	subs    SubscriptionService
	now     func() time.Time
	log     *zap.Logger
}

// NewPlaybackService constructs PlaybackService.
func NewPlaybackService(catalog CatalogService, subs SubscriptionService, log *zap.Logger) *PlaybackServiceImpl {
	return &PlaybackServiceImpl{catalog: catalog, subs: subs, now: time.Now, log: log}
}

// Play evaluates access for an active item. The decision is recomputed on every call.
func (p *PlaybackServiceImpl) Play(ctx context.Context, s *model.Session, itemID uuid.UUID) (*PlayResult, error) {
	it, err := p.catalog.Get(ctx, itemID, false)
	if err != nil {
		return nil, err
	}

	var latest *model.SubscriptionRecord
	if s != nil {
		if latest, err = p.subs.Latest(ctx, s.UserID); err != nil {
			return nil, err
		}
	}

	d := access.CanView(s, latest, p.now())
	metrics.AccessDecisions.WithLabelValues(string(d.Reason)).Inc()

	res := &PlayResult{Decision: d, Item: it}
	if !d.Allowed {
		return res, nil
	}
	res.PlayableRef = it.PlayableRef
	if err := p.catalog.RecordView(ctx, it.ID); err != nil {
		p.log.Warn("view not counted", zap.String("item_id", it.ID.String()), zap.Error(err))
	}
	return res, nil
}
