package httpserver

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/vazadinhas/internal/errs"
)

func TestExtractClientIP(t *testing.T) {
	t.Parallel()

	proxies := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}
	cases := []struct {
		name    string
		header  map[string]string
		remote  string
		trusted []netip.Prefix
		want    string
	}{
		{"forwarded ignored without trusted proxies", map[string]string{"X-Forwarded-For": "203.0.113.7"}, "192.0.2.10:1", nil, "192.0.2.10"},
		{"forwarded ignored from untrusted peer", map[string]string{"X-Forwarded-For": "203.0.113.7"}, "192.0.2.10:1", proxies, "192.0.2.10"},
		{"real ip ignored from untrusted peer", map[string]string{"X-Real-IP": "198.51.100.2"}, "192.0.2.10:1", proxies, "192.0.2.10"},
		{"rightmost untrusted hop", map[string]string{"X-Forwarded-For": "1.1.1.1, 203.0.113.7, 10.0.0.1"}, "10.0.0.2:1", proxies, "203.0.113.7"},
		{"all hops trusted", map[string]string{"X-Forwarded-For": "10.0.0.9, 10.0.0.1"}, "10.0.0.2:1", proxies, "10.0.0.9"},
		{"garbage hop falls back to real ip", map[string]string{"X-Forwarded-For": "nope", "X-Real-IP": "198.51.100.2"}, "10.0.0.2:1", proxies, "198.51.100.2"},
		{"real ip from trusted peer", map[string]string{"X-Real-IP": "198.51.100.2"}, "10.0.0.2:1", proxies, "198.51.100.2"},
		{"remote addr", nil, "192.0.2.10:5555", nil, "192.0.2.10"},
		{"ipv6 remote", nil, "[2001:db8::1]:443", nil, "2001:db8::1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remote
			for k, v := range tc.header {
				r.Header.Set(k, v)
			}
			require.Equal(t, tc.want, ExtractClientIP(r, tc.trusted))
		})
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/?access_token=q", nil)
	require.Equal(t, "q", bearerToken(r))

	r.Header.Set("Authorization", "bearer abc")
	require.Equal(t, "abc", bearerToken(r))

	r.Header.Set("Authorization", "Basic abc")
	require.Empty(t, bearerToken(r))
}

func TestRateLimiter_PerIP(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return now }

	require.True(t, rl.Allow("a"))
	require.True(t, rl.Allow("a"))
	require.False(t, rl.Allow("a"))
	require.True(t, rl.Allow("b"))

	now = now.Add(time.Second)
	require.True(t, rl.Allow("a"))
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: title", errs.ErrValidation), http.StatusBadRequest},
		{errs.ErrNotAuthenticated, http.StatusUnauthorized},
		{errs.ErrUnauthorized, http.StatusUnauthorized},
		{errs.ErrForbidden, http.StatusForbidden},
		{errs.ErrNotFound, http.StatusNotFound},
		{errs.ErrAlreadyExists, http.StatusConflict},
		{errs.ErrRateLimited, http.StatusTooManyRequests},
		{errs.Persistence("x", fmt.Errorf("conn lost")), http.StatusServiceUnavailable},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestRecoverer(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	h := env.api.recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}
