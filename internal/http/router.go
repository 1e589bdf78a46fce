// Package httpapi assembles the HTTP surface: middleware stack, feature
// handlers, and the operational endpoints.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	collabhandler "agentsid/internal/collaboration/handler"
	endorsementhandler "agentsid/internal/endorsement/handler"
	"agentsid/internal/platform/middleware"
	profilehandler "agentsid/internal/profile/handler"
	"agentsid/internal/ratelimit"
	verificationhandler "agentsid/internal/verification/handler"
	"agentsid/pkg/platform/httputil"
)

// Config collects everything the router needs.
type Config struct {
	Logger *slog.Logger
	Auth   *middleware.Auth

	// Limiter is optional; nil disables request rate limiting.
	Limiter *ratelimit.Middleware

	Profiles      *profilehandler.Handler
	Verification  *verificationhandler.Handler
	Endorsements  *endorsementhandler.Handler
	Collaboration *collabhandler.Handler

	// Health reports dependency status for /healthz. Optional.
	Health func() map[string]string
}

// New builds the router. Verification endpoints sit behind an IP rate
// limit; everything else relies on the domain-level limits.
func New(cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(middleware.RequestID)
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogger(cfg.Logger))
	}
	if cfg.Auth != nil {
		r.Use(cfg.Auth.Populate)
	}

	r.Get("/healthz", healthHandler(cfg.Health))
	r.Handle("/metrics", promhttp.Handler())

	if cfg.Profiles != nil {
		cfg.Profiles.Register(r)
	}
	if cfg.Endorsements != nil {
		cfg.Endorsements.Register(r)
	}
	if cfg.Collaboration != nil {
		cfg.Collaboration.Register(r)
	}
	if cfg.Verification != nil {
		if cfg.Limiter != nil {
			r.Group(func(r chi.Router) {
				r.Use(cfg.Limiter.Limit("verification", 30, time.Minute))
				cfg.Verification.Register(r)
			})
		} else {
			cfg.Verification.Register(r)
		}
	}

	return r
}

func healthHandler(health func() map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{"status": "ok"}
		if health != nil {
			deps := health()
			body["dependencies"] = deps
			for _, status := range deps {
				if status != "ok" {
					body["status"] = "degraded"
				}
			}
		}
		httputil.WriteJSON(w, http.StatusOK, body)
	}
}
