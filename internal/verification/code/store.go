// Package code issues and redeems verification codes. Issuing a new code
// for a (subject, channel) pair invalidates any prior unclaimed code as
// part of the same logical step, so at most one live code exists per pair.
package code

import (
	"context"
	"time"

	"agentsid/internal/verification/models"
)

// Store persists verification codes. Replace must supersede prior codes
// for the same (subject, channel) and insert the new one atomically.
// Superseded rows are kept (marked claimed) so issuance counts for rate
// limiting come from the same store that records issuances.
type Store interface {
	// Replace invalidates unclaimed codes for (subject, channel) and
	// inserts c as one logical write.
	Replace(ctx context.Context, c *models.Code) error

	// FindLive returns the unclaimed, unexpired code for (subject, channel).
	// Returns sentinel.ErrNotFound when no live code exists.
	FindLive(ctx context.Context, subject string, channel models.Channel, now time.Time) (*models.Code, error)

	// MarkClaimed consumes a code. Returns sentinel.ErrAlreadyUsed if it was
	// already claimed and sentinel.ErrNotFound if it does not exist.
	MarkClaimed(ctx context.Context, codeValue string) error

	// CountIssuedSince counts codes issued for a subject on a channel after
	// the cutoff, claimed or not. Used for issuance rate limiting.
	CountIssuedSince(ctx context.Context, subject string, channel models.Channel, cutoff time.Time) (int, error)
}
