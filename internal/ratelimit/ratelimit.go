// Package ratelimit provides sliding-window request limiting for the
// verification endpoints. The memory store is single-process; the redis
// store shares the window across replicas.
package ratelimit

import (
	"context"
	"time"
)

// Result reports a limit decision with enough detail for the client to
// compute a retry time.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Store counts events in a sliding window keyed by caller identity.
type Store interface {
	// Allow records one event for key and reports whether it fit inside
	// limit events per window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)

	// Reset clears the window for a key.
	Reset(ctx context.Context, key string) error
}
