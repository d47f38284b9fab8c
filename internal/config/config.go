// Package config holds the kong-tagged process configuration.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/and161185/vazadinhas/internal/limiter"
	"github.com/and161185/vazadinhas/internal/repository/postgres"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// MinSigningKeyLen is the shortest accepted HS256 signing key.
const MinSigningKeyLen = 32

// PostgresFlags configures the connection pool.
type PostgresFlags struct {
	URL             string        `help:"PostgreSQL connection string" env:"DATABASE_URL"`
	MaxConns        int32         `help:"maximum number of connections in pool" default:"10" env:"DB_MAX_CONNS"`
	MinConns        int32         `help:"minimum number of connections in pool" default:"1" env:"DB_MIN_CONNS"`
	MaxConnLifetime int32         `help:"maximum connection lifetime in seconds" default:"3600"`
	MaxConnIdleTime int32         `help:"maximum connection idle time in seconds" default:"1800"`
	ConnectRetry    time.Duration `help:"how long to keep retrying the initial connection" default:"30s" env:"DB_CONNECT_RETRY"`
}

// PoolConfig converts the flags into a pool configuration.
func (p PostgresFlags) PoolConfig() *postgres.PoolConfig {
	return &postgres.PoolConfig{
		ConnString:      p.URL,
		MaxConns:        p.MaxConns,
		MinConns:        p.MinConns,
		MaxConnLifetime: p.MaxConnLifetime,
		MaxConnIdleTime: p.MaxConnIdleTime,
	}
}

// LoginFlags configures the sign-in attempt limiter.
type LoginFlags struct {
	Window   time.Duration `help:"window in which failed sign-ins are counted" default:"15m" env:"LOGIN_WINDOW"`
	MaxFails int           `help:"failed sign-ins before the (email, ip) pair is blocked" default:"5" env:"LOGIN_MAX_FAILS"`
	BlockFor time.Duration `help:"how long a blocked pair stays blocked" default:"15m" env:"LOGIN_BLOCK_FOR"`
}

// Policy converts the flags into a limiter policy.
func (l LoginFlags) Policy() limiter.Policy {
	return limiter.Policy{Window: l.Window, MaxFails: l.MaxFails, BlockFor: l.BlockFor}
}

// Server configures cmd/server.
type Server struct {
	Addr       string `help:"HTTP listen address" default:":8080" env:"HTTP_ADDR"`
	HealthAddr string `help:"gRPC health listen address; empty disables it" default:":9090" env:"HEALTH_ADDR"`

	StoreType   string        `help:"store type (memory or postgres)" default:"postgres" env:"STORE_TYPE" enum:"memory,postgres"`
	Postgres    PostgresFlags `embed:"" prefix:"postgres-"`
	AutoMigrate bool          `help:"run database migrations on startup" default:"true" env:"AUTO_MIGRATE" negatable:""`

	SigningKey  string        `help:"HS256 key for session tokens (>= 32 bytes)" env:"JWT_SIGNING_KEY"`
	SessionTTL  time.Duration `help:"session lifetime" default:"168h" env:"SESSION_TTL"`
	AdminEmails []string      `help:"emails that always get the admin flag" env:"ADMIN_EMAILS"`
	AdminPrefix string        `help:"path prefix of the admin console API" default:"/admin10" env:"ADMIN_PREFIX"`

	CORSOrigins    []string `help:"allowed CORS origins" default:"http://localhost:5173" env:"CORS_ORIGINS"`
	RateRPS        float64  `help:"per-IP request rate" default:"20" env:"RATE_RPS"`
	RateBurst      int      `help:"per-IP burst" default:"40" env:"RATE_BURST"`
	TrustedProxies []string `help:"proxy IPs or CIDRs allowed to set X-Forwarded-For; empty uses the peer address" env:"TRUSTED_PROXIES"`

	Login LoginFlags `embed:"" prefix:"login-"`

	RedisAddr string `help:"Redis address for the audit queue; empty logs audit entries inline" env:"REDIS_ADDR"`
	Dev       bool   `help:"development logging" env:"DEV"`
}

// ApplyDefaults fills zero values for configs built without kong.
func (c *Server) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.StoreType == "" {
		c.StoreType = StorePostgres
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = 168 * time.Hour
	}
	if c.AdminPrefix == "" {
		c.AdminPrefix = "/admin10"
	}
	if c.RateRPS == 0 {
		c.RateRPS = 20
	}
	if c.RateBurst == 0 {
		c.RateBurst = 40
	}
	if c.Login.Window == 0 {
		c.Login.Window = 15 * time.Minute
	}
	if c.Login.MaxFails == 0 {
		c.Login.MaxFails = 5
	}
	if c.Login.BlockFor == 0 {
		c.Login.BlockFor = 15 * time.Minute
	}
	c.AdminPrefix = "/" + strings.Trim(c.AdminPrefix, "/")
}

// Validate checks the configuration is usable.
func (c *Server) Validate() error {
	if len(c.SigningKey) < MinSigningKeyLen {
		return fmt.Errorf("signing key must be at least %d bytes (--signing-key or JWT_SIGNING_KEY)", MinSigningKeyLen)
	}
	switch c.StoreType {
	case StoreMemory:
	case StorePostgres:
		if c.Postgres.URL == "" {
			return errors.New("PostgreSQL connection string is required (--postgres-url or DATABASE_URL)")
		}
	default:
		return fmt.Errorf("unknown store type %q", c.StoreType)
	}
	p := "/" + strings.Trim(c.AdminPrefix, "/")
	if p == "/" || p == "/api" || strings.HasPrefix(p, "/api/") || p == "/healthz" || p == "/metrics" {
		return fmt.Errorf("admin prefix %q collides with a public route", c.AdminPrefix)
	}
	if c.SessionTTL <= 0 {
		return errors.New("session TTL must be positive")
	}
	if c.RateRPS <= 0 || c.RateBurst <= 0 {
		return errors.New("rate limit must be positive")
	}
	if c.Login.MaxFails <= 0 {
		return errors.New("login max fails must be positive")
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		return err
	}
	return nil
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address is a single-host prefix.
func (c *Server) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
			}
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}

// Worker configures cmd/worker.
type Worker struct {
	Postgres    PostgresFlags `embed:"" prefix:"postgres-"`
	RedisAddr   string        `help:"Redis address" default:"127.0.0.1:6379" env:"REDIS_ADDR"`
	PurgeSpec   string        `help:"cron spec of the expired-session purge" default:"@every 1h" env:"PURGE_SPEC"`
	Concurrency int           `help:"concurrent task handlers" default:"4" env:"WORKER_CONCURRENCY"`
	Dev         bool          `help:"development logging" env:"DEV"`
}

// ApplyDefaults fills zero values for configs built without kong.
func (c *Worker) ApplyDefaults() {
	if c.RedisAddr == "" {
		c.RedisAddr = "127.0.0.1:6379"
	}
	if c.PurgeSpec == "" {
		c.PurgeSpec = "@every 1h"
	}
	if c.Concurrency == 0 {
		c.Concurrency = 4
	}
}

// Validate checks the configuration is usable.
func (c *Worker) Validate() error {
	if c.Postgres.URL == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-url or DATABASE_URL)")
	}
	if c.RedisAddr == "" {
		return errors.New("redis address is required")
	}
	if c.Concurrency < 1 {
		return errors.New("concurrency must be at least 1")
	}
	return nil
}
