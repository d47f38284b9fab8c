// Command vazadinhas-server serves the catalog JSON API and a gRPC health endpoint.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/and161185/vazadinhas/internal/audit"
	"github.com/and161185/vazadinhas/internal/config"
	"github.com/and161185/vazadinhas/internal/events"
	"github.com/and161185/vazadinhas/internal/limiter"
	"github.com/and161185/vazadinhas/internal/migrate"
	"github.com/and161185/vazadinhas/internal/repository"
	"github.com/and161185/vazadinhas/internal/repository/memory"
	"github.com/and161185/vazadinhas/internal/repository/postgres"
	grpcserver "github.com/and161185/vazadinhas/internal/server/grpc"
	httpserver "github.com/and161185/vazadinhas/internal/server/http"
	"github.com/and161185/vazadinhas/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

type stores struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	catalog  repository.CatalogRepository
	subs     repository.SubscriptionRepository
	audit    repository.AuditRepository
	lim      limiter.Limiter
	pinger   httpserver.Pinger
	close    func()
}

func main() {
	_ = godotenv.Load()

	var cfg config.Server
	kong.Parse(&cfg,
		kong.Name("vazadinhas-server"),
		kong.Description("Catalog API with subscription-gated playback."),
		kong.Vars{"version": version},
	)
	cfg.ApplyDefaults()

	logger := newLogger(cfg.Dev)
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.String("store", cfg.StoreType),
	)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	proxies, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, &cfg, logger)
	if err != nil {
		logger.Fatal("open stores", zap.Error(err))
	}
	defer st.close()

	var sink service.AuditSink = audit.NewLogSink(st.audit, logger)
	if cfg.RedisAddr != "" {
		client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer client.Close()
		sink = audit.NewQueueSink(client, logger)
	}

	broker := events.NewBroker()
	defer broker.Close()

	identity := service.NewIdentityService(st.users, st.sessions, st.lim, broker, service.IdentityConfig{
		SignKey:     []byte(cfg.SigningKey),
		SessionTTL:  cfg.SessionTTL,
		AdminEmails: cfg.AdminEmails,
	}, logger)
	catalog := service.NewCatalogService(st.catalog)
	subs := service.NewSubscriptionService(st.subs, sink, logger)
	playback := service.NewPlaybackService(catalog, subs, logger)

	api := httpserver.New(httpserver.Deps{
		Identity:      identity,
		Catalog:       catalog,
		Subscriptions: subs,
		Playback:      playback,
		Health:        st.pinger,
		Log:           logger,
	}, httpserver.Options{
		AdminPrefix: cfg.AdminPrefix,
		CORSOrigins: cfg.CORSOrigins,
		RateRPS:     cfg.RateRPS,
		RateBurst:   cfg.RateBurst,

		TrustedProxies: proxies,
	})
	srv := httpserver.NewServer(cfg.Addr, api.Routes())

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.Addr), zap.String("admin", cfg.AdminPrefix))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var gs interface {
		GracefulStop()
		Stop()
	}
	if cfg.HealthAddr != "" {
		g, hs := grpcserver.NewServer(logger, cfg.Dev)
		gs = g
		go grpcserver.NewProber(hs, st.pinger, 10*time.Second, logger).Run(ctx)

		lis, err := net.Listen("tcp", cfg.HealthAddr)
		if err != nil {
			logger.Fatal("listen", zap.Error(err))
		}
		go func() {
			logger.Info("grpc health listening", zap.String("addr", cfg.HealthAddr))
			errCh <- g.Serve(lis)
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if gs != nil {
		done := make(chan struct{})
		go func() {
			gs.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			gs.Stop()
		}
	}
	logger.Info("shutdown complete")
}

func newLogger(dev bool) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if dev {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		os.Exit(1)
	}
	return l
}

// openStores wires either the in-memory or the PostgreSQL repositories.
func openStores(ctx context.Context, cfg *config.Server, log *zap.Logger) (*stores, error) {
	if cfg.StoreType == config.StoreMemory {
		log.Warn("memory store: data is lost on restart")
		users := memory.NewUsers()
		return &stores{
			users:    users,
			sessions: memory.NewSessions(users),
			catalog:  memory.NewCatalog(),
			subs:     memory.NewSubscriptions(),
			audit:    memory.NewAudit(),
			lim:      limiter.NewMemory(cfg.Login.Policy()),
			close:    func() {},
		}, nil
	}

	db, err := postgres.Connect(ctx, cfg.Postgres.PoolConfig(), cfg.Postgres.ConnectRetry, log)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := migrate.Up(ctx, cfg.Postgres.URL); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &stores{
		users:    postgres.NewUserRepo(db),
		sessions: postgres.NewSessionRepo(db),
		catalog:  postgres.NewCatalogRepo(db),
		subs:     postgres.NewSubscriptionRepo(db),
		audit:    postgres.NewAuditRepo(db),
		lim:      limiter.NewPG(db.Pool, cfg.Login.Policy()),
		pinger:   db,
		close:    db.Close,
	}, nil
}
