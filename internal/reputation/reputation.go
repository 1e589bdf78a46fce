// Package reputation derives profile tiers from received endorsements.
// Tier is never stored as client input; it is recomputed after every
// endorsement write and persisted as a denormalized read model.
package reputation

import (
	"context"
	"fmt"
	"log/slog"

	"agentsid/internal/profile/models"
	id "agentsid/pkg/domain"
)

// Tier thresholds on received endorsement count.
const (
	activeThreshold      = 3
	establishedThreshold = 10
	trustedThreshold     = 25
)

// TierForCount maps a received endorsement count to a tier.
func TierForCount(received int) models.Tier {
	switch {
	case received >= trustedThreshold:
		return models.TierTrusted
	case received >= establishedThreshold:
		return models.TierEstablished
	case received >= activeThreshold:
		return models.TierActive
	default:
		return models.TierNew
	}
}

// EndorsementCounter reports how many endorsements a profile has received.
type EndorsementCounter interface {
	CountReceived(ctx context.Context, profileID id.ProfileID) (int, error)
}

// TierWriter persists a recomputed tier.
type TierWriter interface {
	UpdateTier(ctx context.Context, profileID id.ProfileID, tier models.Tier) error
}

// Engine recomputes tiers from the endorsement ledger. Recompute is
// idempotent: running it twice with no intervening writes is a no-op.
type Engine struct {
	endorsements EndorsementCounter
	profiles     TierWriter
	logger       *slog.Logger
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func NewEngine(endorsements EndorsementCounter, profiles TierWriter, opts ...Option) (*Engine, error) {
	if endorsements == nil {
		return nil, fmt.Errorf("endorsement counter is required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("tier writer is required")
	}
	e := &Engine{endorsements: endorsements, profiles: profiles}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e, nil
}

// Recompute counts the profile's received endorsements and writes the
// resulting tier back. Returns the tier it settled on.
func (e *Engine) Recompute(ctx context.Context, profileID id.ProfileID) (models.Tier, error) {
	received, err := e.endorsements.CountReceived(ctx, profileID)
	if err != nil {
		return "", fmt.Errorf("count received endorsements: %w", err)
	}

	tier := TierForCount(received)
	if err := e.profiles.UpdateTier(ctx, profileID, tier); err != nil {
		return "", fmt.Errorf("update tier: %w", err)
	}

	e.logger.DebugContext(ctx, "reputation recomputed",
		"profile_id", profileID,
		"received", received,
		"tier", tier,
	)
	return tier, nil
}
