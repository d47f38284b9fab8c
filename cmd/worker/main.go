// Command vazadinhas-worker consumes audit tasks and purges expired sessions on a schedule.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/and161185/vazadinhas/internal/audit"
	"github.com/and161185/vazadinhas/internal/config"
	"github.com/and161185/vazadinhas/internal/repository/postgres"
	"github.com/and161185/vazadinhas/internal/service"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	var cfg config.Worker
	kong.Parse(&cfg,
		kong.Name("vazadinhas-worker"),
		kong.Description("Background tasks: subscription audit trail and session purge."),
	)
	cfg.ApplyDefaults()

	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Dev {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting", zap.String("version", version), zap.String("redis", cfg.RedisAddr))

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.Postgres.PoolConfig(), cfg.Postgres.ConnectRetry, logger)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()

	// only PurgeExpired is used here, so no limiter or broker
	identity := service.NewIdentityService(postgres.NewUserRepo(db), postgres.NewSessionRepo(db), nil, nil,
		service.IdentityConfig{}, logger)

	redis := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	srv := asynq.NewServer(redis, asynq.Config{
		Concurrency: cfg.Concurrency,
		Logger:      logger.Sugar(),
	})
	mux := asynq.NewServeMux()
	audit.NewHandler(postgres.NewAuditRepo(db), identity, logger).Register(mux)

	scheduler := asynq.NewScheduler(redis, &asynq.SchedulerOpts{Logger: logger.Sugar()})
	entryID, err := scheduler.Register(cfg.PurgeSpec, audit.NewPurgeTask())
	if err != nil {
		logger.Fatal("register purge", zap.Error(err))
	}
	logger.Info("purge scheduled", zap.String("spec", cfg.PurgeSpec), zap.String("entry", entryID))

	if err := srv.Start(mux); err != nil {
		logger.Fatal("start worker", zap.Error(err))
	}
	if err := scheduler.Start(); err != nil {
		logger.Fatal("start scheduler", zap.Error(err))
	}

	<-ctx.Done()
	scheduler.Shutdown()
	srv.Shutdown()
	logger.Info("shutdown complete")
}
