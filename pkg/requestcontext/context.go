// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them; services and handlers read
// them without importing net/http.
package requestcontext

import (
	"context"
	"time"

	id "agentsid/pkg/domain"
)

// Session carries the authenticated caller's identity as embedded in the
// session token. Zero value means "not authenticated".
type Session struct {
	ProfileID  id.ProfileID
	EntityType string
	Handle     string
	Verified   bool
}

// IsZero reports whether no session is present.
func (s Session) IsZero() bool {
	return s.ProfileID.IsNil()
}

type (
	sessionKey     struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

var (
	contextKeySession     = sessionKey{}
	contextKeyRequestID   = requestIDKey{}
	contextKeyRequestTime = requestTimeKey{}
)

// SessionFrom retrieves the authenticated session from the context.
// Returns the zero Session if the request is unauthenticated.
func SessionFrom(ctx context.Context) Session {
	if s, ok := ctx.Value(contextKeySession).(Session); ok {
		return s
	}
	return Session{}
}

// WithSession injects an authenticated session into the context.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKeySession, s)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() for non-HTTP contexts (workers, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(contextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests that need deterministic clocks.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, contextKeyRequestTime, t)
}
