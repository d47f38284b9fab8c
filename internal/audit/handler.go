package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/and161185/vazadinhas/internal/model"
	"github.com/and161185/vazadinhas/internal/repository"
)

// SessionPurger deletes expired sessions.
type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Handler processes worker tasks.
type Handler struct {
	repo   repository.AuditRepository
	purger SessionPurger
	log    *zap.Logger
}

// NewHandler constructs the worker task handler.
func NewHandler(repo repository.AuditRepository, purger SessionPurger, log *zap.Logger) *Handler {
	return &Handler{repo: repo, purger: purger, log: log}
}

// Register binds every task type to mux.
func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeSubscriptionAudit, h.HandleAudit)
	mux.HandleFunc(TypeSessionPurge, h.HandlePurge)
}

// HandleAudit stores one audit entry. Malformed payloads are not retried.
func (h *Handler) HandleAudit(ctx context.Context, t *asynq.Task) error {
	var e model.AuditEntry
	if err := json.Unmarshal(t.Payload(), &e); err != nil {
		return fmt.Errorf("unmarshal audit payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := h.repo.Insert(ctx, e); err != nil {
		return fmt.Errorf("store audit entry: %w", err)
	}
	return nil
}

// HandlePurge deletes expired session rows.
func (h *Handler) HandlePurge(ctx context.Context, _ *asynq.Task) error {
	n, err := h.purger.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("purge sessions: %w", err)
	}
	h.log.Info("expired sessions purged", zap.Int64("count", n))
	return nil
}
