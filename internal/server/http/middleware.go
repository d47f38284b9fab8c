package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/netip"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/and161185/vazadinhas/internal/authctx"
	"github.com/and161185/vazadinhas/internal/errs"
)

type contextKey string

const clientIPContextKey contextKey = "client_ip"

// ExtractClientIP returns the direct peer address. Forwarding headers are
// honoured only when that peer is inside trusted; X-Forwarded-For is then read
// right to left and the first hop outside trusted wins.
func ExtractClientIP(r *http.Request, trusted []netip.Prefix) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		peer = host
	}
	if !isTrusted(peer, trusted) {
		return peer
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if _, err := netip.ParseAddr(hop); err != nil {
				break
			}
			if !isTrusted(hop, trusted) || i == 0 {
				return hop
			}
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if _, err := netip.ParseAddr(xri); err == nil {
			return xri
		}
	}
	return peer
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	if len(trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIPFromContext returns the IP stored by ClientIPMiddleware.
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPContextKey).(string)
	return ip
}

// ClientIPMiddleware stores the client IP in the request context.
func ClientIPMiddleware(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), clientIPContextKey, ExtractClientIP(r, trusted))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken reads the Authorization header. EventSource cannot set headers,
// so the access_token query parameter is accepted as a fallback.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}

// authenticate resolves the bearer token into a session when one is present.
// Invalid or revoked tokens leave the request anonymous.
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := bearerToken(r)
		if tok == "" {
			next.ServeHTTP(w, r)
			return
		}
		sess, err := a.identity.CurrentSession(r.Context(), tok)
		switch {
		case errors.Is(err, errs.ErrNotAuthenticated):
			next.ServeHTTP(w, r)
		case err != nil:
			a.respondWithError(w, r, err)
		default:
			next.ServeHTTP(w, r.WithContext(authctx.WithSession(r.Context(), sess)))
		}
	})
}

func (a *API) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authctx.SessionFromCtx(r.Context()); !ok {
			a.respondWithError(w, r, errs.ErrNotAuthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin gates the admin console: anonymous 401, non-admin 403.
func (a *API) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := authctx.SessionFromCtx(r.Context())
		if !ok {
			a.respondWithError(w, r, errs.ErrNotAuthenticated)
			return
		}
		if !sess.Admin {
			a.respondWithError(w, r, errs.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger writes one line per request. Bodies and headers are never logged.
func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		a.log.Info("http",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", ww.Status()),
			zap.Duration("dur", time.Since(start)),
			zap.String("ip", ClientIPFromContext(r.Context())),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// recoverer turns handler panics into 500 responses.
func (a *API) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rv := recover(); rv != nil {
				if rv == http.ErrAbortHandler {
					panic(rv)
				}
				a.log.Error("panic",
					zap.Any("reason", rv),
					zap.ByteString("stack", debug.Stack()),
					zap.String("path", r.URL.Path),
				)
				respondWithJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
