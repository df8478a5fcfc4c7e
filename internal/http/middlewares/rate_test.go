package middlewares

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dropDatabas3/iridium/internal/rate"
	"github.com/dropDatabas3/iridium/internal/security/tokens"
)

type stubLimiter struct {
	lastKey string
	result  rate.Result
	err     error
}

func (s *stubLimiter) Allow(ctx context.Context, key string) (rate.Result, error) {
	s.lastKey = key
	return s.result, s.err
}

func okHandler() (http.HandlerFunc, *bool) {
	called := false
	return func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}, &called
}

func TestWithRateLimitNilLimiterPassesThrough(t *testing.T) {
	h, called := okHandler()
	rec := httptest.NewRecorder()
	ChainFunc(h, WithRateLimit(nil, "authn")).ServeHTTP(rec, httptest.NewRequest("POST", "/identities/authenticate", nil))

	assert.True(t, *called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWithRateLimitKeyHashesClientIP(t *testing.T) {
	lim := &stubLimiter{result: rate.Result{Allowed: true, Remaining: 9}}
	h, _ := okHandler()
	req := httptest.NewRequest("POST", "/identities/authenticate", nil)
	req.RemoteAddr = "203.0.113.7:4242"

	rec := httptest.NewRecorder()
	ChainFunc(h, WithRateLimit(lim, "authn")).ServeHTTP(rec, req)

	assert.Equal(t, "authn:"+tokens.SHA256Base64URL("203.0.113.7"), lim.lastKey)
	assert.NotContains(t, lim.lastKey, "203.0.113.7", "la IP cruda no viaja al backend")
	assert.Equal(t, "9", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestWithRateLimitBlocked(t *testing.T) {
	lim := &stubLimiter{result: rate.Result{Allowed: false, RetryAfter: 30 * time.Second}}
	h, called := okHandler()

	rec := httptest.NewRecorder()
	ChainFunc(h, WithRateLimit(lim, "reset")).ServeHTTP(rec, httptest.NewRequest("POST", "/passwords/reset", nil))

	assert.False(t, *called)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
}

func TestWithRateLimitFailsOpenOnBackendError(t *testing.T) {
	lim := &stubLimiter{err: errors.New("redis down")}
	h, called := okHandler()

	rec := httptest.NewRecorder()
	ChainFunc(h, WithRateLimit(lim, "authn")).ServeHTTP(rec, httptest.NewRequest("POST", "/identities/authenticate", nil))

	assert.True(t, *called)
	assert.Equal(t, http.StatusOK, rec.Code)
}
