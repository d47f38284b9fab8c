// Package httpserver exposes the catalog, playback, subscription and admin
// operations as a JSON API for the browser front-end.
package httpserver

import (
	"context"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/and161185/vazadinhas/internal/metrics"
	"github.com/and161185/vazadinhas/internal/service"
)

// Pinger reports backing store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services behind the API. Health may be nil.
type Deps struct {
	Identity      service.IdentityService
	Catalog       service.CatalogService
	Subscriptions service.SubscriptionService
	Playback      service.PlaybackService
	Health        Pinger
	Log           *zap.Logger
}

// Options tune the router.
type Options struct {
	AdminPrefix string // fixed at startup, e.g. /admin10
	CORSOrigins []string
	RateRPS     float64
	RateBurst   int
	// TrustedProxies may set X-Forwarded-For and X-Real-IP. Empty trusts no one.
	TrustedProxies []netip.Prefix
	// KeepAlive is the comment interval on the session event stream.
	KeepAlive time.Duration
}

// API holds handler dependencies.
type API struct {
	identity  service.IdentityService
	catalog   service.CatalogService
	subs      service.SubscriptionService
	playback  service.PlaybackService
	health    Pinger
	log       *zap.Logger
	opts      Options
	limiter   *RateLimiter
	keepAlive time.Duration
}

// New constructs the API.
func New(d Deps, o Options) *API {
	if o.AdminPrefix == "" {
		o.AdminPrefix = "/admin10"
	}
	o.AdminPrefix = "/" + strings.Trim(o.AdminPrefix, "/")
	if o.RateRPS <= 0 {
		o.RateRPS = 20
	}
	if o.RateBurst <= 0 {
		o.RateBurst = 40
	}
	if o.KeepAlive <= 0 {
		o.KeepAlive = 25 * time.Second
	}
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &API{
		identity:  d.Identity,
		catalog:   d.Catalog,
		subs:      d.Subscriptions,
		playback:  d.Playback,
		health:    d.Health,
		log:       log,
		opts:      o,
		limiter:   NewRateLimiter(o.RateRPS, o.RateBurst),
		keepAlive: o.KeepAlive,
	}
}

// Routes builds the router.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, ClientIPMiddleware(a.opts.TrustedProxies), a.recoverer, a.requestLogger, metrics.Middleware)
	if len(a.opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: a.opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         600,
		}).Handler)
	}

	r.Get("/healthz", a.healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(a.limiter.Middleware, a.authenticate)

		r.Post("/auth/sign-in", a.signIn)
		r.Group(func(r chi.Router) {
			r.Use(a.requireSession)
			r.Post("/auth/sign-out", a.signOut)
			r.Get("/auth/session", a.currentSession)
			r.Get("/auth/events", a.sessionEvents)

			r.Get("/subscription", a.subscriptionStatus)
			r.Post("/subscription", a.requestPlan)
			r.Get("/subscription/history", a.subscriptionHistory)
		})

		r.Get("/items", a.listItems)
		r.Get("/items/{id}", a.getItem)
		r.Post("/items/{id}/play", a.play)
	})

	r.Route(a.opts.AdminPrefix, func(r chi.Router) {
		r.Use(middleware.NoCache, a.limiter.Middleware, a.authenticate, a.requireAdmin)

		r.Get("/items", a.adminListItems)
		r.Post("/items", a.createItem)
		r.Patch("/items/{id}", a.updateItem)
		r.Delete("/items/{id}", a.deleteItem)

		r.Get("/subscriptions/pending", a.listPending)
		r.Post("/subscriptions/{id}/approve", a.approve)
		r.Delete("/subscriptions/{id}", a.reject)
	})

	return r
}

func (a *API) healthz(w http.ResponseWriter, r *http.Request) {
	if a.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.health.Ping(ctx); err != nil {
			a.log.Warn("health check failed", zap.Error(err))
			respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NewServer wraps h with timeouts. The session event stream clears its own write deadline.
func NewServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}
