// Package middleware carries the HTTP cross-cutting concerns: request
// ids, request logging, and session authentication.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"agentsid/internal/session"
	id "agentsid/pkg/domain"
	dErrors "agentsid/pkg/domain-errors"
	"agentsid/pkg/platform/httputil"
	"agentsid/pkg/requestcontext"
)

// RequestID assigns each request an id (honoring an inbound X-Request-ID)
// and stamps the request time into the context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithTime(ctx, time.Now())
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLogger logs one line per request after it completes.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(recorder, r)

			logger.InfoContext(r.Context(), "request handled",
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", requestcontext.RequestID(r.Context()),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Auth populates the request context from a session token carried either
// as a bearer Authorization header or the session cookie. An invalid token
// is treated as no token; endpoints that need a caller use RequireSession.
type Auth struct {
	sessions *session.Issuer
	logger   *slog.Logger
}

func NewAuth(sessions *session.Issuer, logger *slog.Logger) *Auth {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auth{sessions: sessions, logger: logger}
}

// Populate attaches the session to the context when a valid token is
// presented. It never rejects the request.
func (a *Auth) Populate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			if cookie, err := r.Cookie(session.CookieName); err == nil {
				token = cookie.Value
			}
		}
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := a.sessions.Validate(token)
		if err != nil {
			// Invalid tokens degrade to anonymous; protected endpoints
			// reject below.
			next.ServeHTTP(w, r)
			return
		}

		profileID, err := id.ParseProfileID(claims.ProfileID)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := requestcontext.WithSession(r.Context(), requestcontext.Session{
			ProfileID:  profileID,
			EntityType: claims.EntityType,
			Handle:     claims.Handle,
			Verified:   claims.Verified,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSession rejects requests without an authenticated session.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestcontext.SessionFrom(r.Context()).IsZero() {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "not authenticated"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return ""
}
