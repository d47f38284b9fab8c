package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Connect calls New until it succeeds or maxElapsed passes. Configuration
// errors are not retried.
func Connect(ctx context.Context, cfg *PoolConfig, maxElapsed time.Duration, log *zap.Logger) (*DB, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pool config: %w", err)
	}
	if _, err := pgxpool.ParseConfig(cfg.ConnString); err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	op := func() (*DB, error) { return New(ctx, cfg) }
	notify := func(err error, next time.Duration) {
		log.Warn("postgres not ready", zap.Duration("retry_in", next), zap.Error(err))
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(maxElapsed),
		backoff.WithNotify(notify),
	)
}
