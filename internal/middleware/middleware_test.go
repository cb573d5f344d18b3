package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ancsystem/anc-notifier/internal/auth"
	"github.com/ancsystem/anc-notifier/internal/config"
	"github.com/ancsystem/anc-notifier/internal/logger"
	"github.com/ancsystem/anc-notifier/internal/middleware"
)

type memCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	ttls   map[string]time.Duration
	err    error
}

func newMemCounter() *memCounter {
	return &memCounter{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (c *memCounter) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	c.counts[key]++
	return c.counts[key], nil
}

func (c *memCounter) Expire(_ context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttls[key] = ttl
	return nil
}

func (c *memCounter) TTL(_ context.Context, key string) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttls[key], nil
}

func testConfig(enabled bool) *config.Config {
	cfg := &config.Config{}
	cfg.Security.RateLimiting.Enabled = enabled
	return cfg
}

var echoCaller = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(middleware.GetCaller(r.Context())))
})

func TestRateLimit(t *testing.T) {
	t.Parallel()

	rl := middleware.RateLimitConfig{Name: "test", Limit: 2, Window: time.Minute, KeyFn: middleware.IPKey}

	t.Run("blocks past the limit", func(t *testing.T) {
		t.Parallel()

		counter := newMemCounter()
		h := middleware.New(counter, logger.Nop(), testConfig(true)).RateLimit(rl)(echoCaller)

		for i := 0; i < 2; i++ {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
			require.Equal(t, http.StatusOK, rec.Code)
		}

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
		require.Equal(t, "60", rec.Header().Get("Retry-After"))
		require.JSONEq(t, `{"error":{"code":"resource-exhausted","message":"Too many requests. Please try again later."}}`, rec.Body.String())
		require.Equal(t, time.Minute, counter.ttls["ratelimit:test:192.0.2.1:1234"])
	})

	t.Run("disabled passes through", func(t *testing.T) {
		t.Parallel()

		counter := newMemCounter()
		h := middleware.New(counter, logger.Nop(), testConfig(false)).RateLimit(rl)(echoCaller)

		for i := 0; i < 5; i++ {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
			require.Equal(t, http.StatusOK, rec.Code)
		}
		require.Empty(t, counter.counts)
	})

	t.Run("counter failure lets requests through", func(t *testing.T) {
		t.Parallel()

		counter := newMemCounter()
		counter.err = errors.New("redis down")
		h := middleware.New(counter, logger.Nop(), testConfig(true)).RateLimit(rl)(echoCaller)

		for i := 0; i < 3; i++ {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
			require.Equal(t, http.StatusOK, rec.Code)
		}
	})
}

func TestCallerOrIPKey(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	require.Equal(t, "ip:203.0.113.7", middleware.CallerOrIPKey(req))

	req = req.WithContext(context.WithValue(req.Context(), middleware.CallerKey, "booking-app"))
	require.Equal(t, "caller:booking-app", middleware.CallerOrIPKey(req))
}

func TestCallerAuth(t *testing.T) {
	t.Parallel()

	mw := middleware.New(nil, logger.Nop(), testConfig(false))
	tokenSvc := auth.NewTokenService(config.CallableConfig{AuthSecret: "s3cret", Issuer: "anc-notifier"})
	h := mw.CallerAuth(tokenSvc)(echoCaller)

	t.Run("valid token", func(t *testing.T) {
		t.Parallel()

		token, _, err := tokenSvc.Issue("booking-app")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "booking-app", rec.Body.String())
	})

	t.Run("missing token", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), `"code":"unauthenticated"`)
	})

	t.Run("invalid token", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("no secret configured", func(t *testing.T) {
		t.Parallel()

		open := mw.CallerAuth(auth.NewTokenService(config.CallableConfig{}))(echoCaller)
		rec := httptest.NewRecorder()
		open.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRecover(t *testing.T) {
	t.Parallel()

	mw := middleware.New(nil, logger.Nop(), testConfig(false))
	h := mw.Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":{"code":"internal","message":"An unexpected error occurred"}}`, rec.Body.String())
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	mw := middleware.New(nil, logger.Nop(), testConfig(false))
	var seen string
	h := mw.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "req-123", seen)
	require.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
