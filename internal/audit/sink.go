package audit

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/and161185/vazadinhas/internal/model"
	"github.com/and161185/vazadinhas/internal/repository"
)

// QueueSink hands entries to the worker through asynq.
type QueueSink struct {
	client Enqueuer
	log    *zap.Logger
}

// NewQueueSink constructs a queue-backed sink.
func NewQueueSink(client Enqueuer, log *zap.Logger) *QueueSink {
	return &QueueSink{client: client, log: log}
}

// Record enqueues the entry.
func (s *QueueSink) Record(ctx context.Context, e model.AuditEntry) error {
	task, err := NewAuditTask(e)
	if err != nil {
		return err
	}
	info, err := s.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeSubscriptionAudit, err)
	}
	s.log.Debug("audit enqueued", zap.String("task_id", info.ID), zap.String("queue", info.Queue))
	return nil
}

// LogSink writes entries to the log and, when a repository is given, stores them inline.
type LogSink struct {
	repo repository.AuditRepository
	log  *zap.Logger
}

// NewLogSink constructs a synchronous sink; repo may be nil.
func NewLogSink(repo repository.AuditRepository, log *zap.Logger) *LogSink {
	return &LogSink{repo: repo, log: log}
}

// Record logs the entry and persists it when possible.
func (s *LogSink) Record(ctx context.Context, e model.AuditEntry) error {
	s.log.Info("audit",
		zap.String("action", string(e.Action)),
		zap.String("subscription_id", e.SubscriptionID.String()),
		zap.String("user_id", e.UserID.String()),
		zap.String("actor_id", e.ActorID.String()),
		zap.Time("at", e.At),
	)
	if s.repo == nil {
		return nil
	}
	return s.repo.Insert(ctx, e)
}
