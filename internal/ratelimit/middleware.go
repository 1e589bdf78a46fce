package ratelimit

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"agentsid/internal/platform/metrics"
	dErrors "agentsid/pkg/domain-errors"
	"agentsid/pkg/platform/httputil"
)

// Middleware applies per-IP sliding-window limits to verification
// endpoints. Limiter failures fail open: losing redis must not take the
// API down with it.
type Middleware struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type MiddlewareOption func(*Middleware)

func WithMetrics(m *metrics.Metrics) MiddlewareOption {
	return func(mw *Middleware) {
		mw.metrics = m
	}
}

func NewMiddleware(store Store, logger *slog.Logger, opts ...MiddlewareOption) *Middleware {
	mw := &Middleware{store: store, logger: logger}
	for _, opt := range opts {
		opt(mw)
	}
	if mw.logger == nil {
		mw.logger = slog.Default()
	}
	return mw
}

// Limit wraps a handler with an IP-keyed limit of limit requests per window.
func (m *Middleware) Limit(name string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.store == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := fmt.Sprintf("%s:%s", name, clientIP(r))
			result, err := m.store.Allow(r.Context(), key, limit, window)
			if err != nil {
				m.logger.ErrorContext(r.Context(), "rate limit check failed",
					"limiter", name, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				if m.metrics != nil {
					m.metrics.ObserveRateLimited(name)
				}
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited,
					fmt.Sprintf("rate limit exceeded: %d requests per %s", result.Limit, window)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
