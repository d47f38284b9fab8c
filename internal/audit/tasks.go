// Package audit moves committed subscription transitions to durable storage,
// either through an asynq queue or directly, and hosts the worker task handlers.
package audit

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/and161185/vazadinhas/internal/model"
)

const (
	TypeSubscriptionAudit = "subscription:audit"
	TypeSessionPurge      = "sessions:purge"
)

// Enqueuer is implemented by asynq.Client and can be mocked for testing.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NewAuditTask wraps an entry as a JSON task payload.
func NewAuditTask(e model.AuditEntry) (*asynq.Task, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSubscriptionAudit, payload, asynq.MaxRetry(10)), nil
}

// NewPurgeTask builds the periodic session purge task.
func NewPurgeTask() *asynq.Task {
	return asynq.NewTask(TypeSessionPurge, nil, asynq.MaxRetry(1))
}
