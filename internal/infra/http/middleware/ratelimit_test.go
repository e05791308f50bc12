package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folioapp/api/internal/config"
	"github.com/folioapp/api/internal/ratelimit"
	"github.com/folioapp/api/pkg/logger"
)

func TestClientIdentifier(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "forwarded-for first entry wins",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2", "X-Real-IP": "198.51.100.1"},
			want:       "203.0.113.7",
		},
		{
			name:       "real-ip when no forwarded-for",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "198.51.100.1"},
			want:       "198.51.100.1",
		},
		{
			name:       "remote addr host",
			remoteAddr: "10.0.0.1:1234",
			want:       "10.0.0.1",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "10.0.0.1",
			want:       "10.0.0.1",
		},
		{
			name: "nothing derivable",
			want: "unknown",
		},
		{
			name:       "blank forwarded-for entry falls through",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": " , 10.0.0.2"},
			want:       "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIdentifier(r))
		})
	}
}

func TestPolicyRateLimit(t *testing.T) {
	policy := ratelimit.Policy{Name: "chat", Limit: 2, Window: time.Minute}

	newHandler := func(limiter ratelimit.Limiter) http.Handler {
		return PolicyRateLimit(limiter, policy, logger.NewNop())(okHandler())
	}

	t.Run("headers on every allowed response", func(t *testing.T) {
		handler := newHandler(ratelimit.NewMemoryLimiter())

		r := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
		r.RemoteAddr = "10.0.0.1:1000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	})

	t.Run("429 with retry-after on deny", func(t *testing.T) {
		handler := newHandler(ratelimit.NewMemoryLimiter())

		for i := 0; i < 2; i++ {
			r := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
			r.RemoteAddr = "10.0.0.2:1000"
			handler.ServeHTTP(httptest.NewRecorder(), r)
		}

		r := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
		r.RemoteAddr = "10.0.0.2:1000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
		assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
	})

	t.Run("distinct clients do not share quota", func(t *testing.T) {
		handler := newHandler(ratelimit.NewMemoryLimiter())

		for i := 0; i < 2; i++ {
			r := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
			r.RemoteAddr = "10.0.0.3:1000"
			handler.ServeHTTP(httptest.NewRecorder(), r)
		}

		r := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
		r.RemoteAddr = "10.0.0.4:1000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("limiter error admits the request", func(t *testing.T) {
		handler := newHandler(errorLimiter{})

		r := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
		r.RemoteAddr = "10.0.0.5:1000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

type errorLimiter struct{}

func (errorLimiter) Allow(context.Context, ratelimit.Policy, string) (*ratelimit.Result, error) {
	return nil, errors.New("store unavailable")
}

func TestIPRateLimiter(t *testing.T) {
	cfg := &config.RateLimitConfig{
		Enabled:         true,
		RequestsPerSec:  1,
		Burst:           2,
		CleanupInterval: time.Minute,
	}
	rl := NewIPRateLimiter(cfg, logger.NewNop())
	defer rl.Stop()

	handler := rl.Middleware()(okHandler())

	for i := 0; i < 2; i++ {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.0.0.9:1000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		require.Equal(t, http.StatusOK, w.Code)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.9:1000"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestIPRateLimitDisabled(t *testing.T) {
	mw, stop := IPRateLimit(&config.RateLimitConfig{Enabled: false}, logger.NewNop())
	defer stop()

	handler := mw(okHandler())
	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}
