// Package store persists profiles. Memory and Postgres implementations
// share the Store interface; services depend on the interface only.
package store

import (
	"context"

	"agentsid/internal/profile/models"
	id "agentsid/pkg/domain"
)

// Store is the profile persistence contract. Handles are unique
// case-insensitively; lookups by handle fold case before matching.
type Store interface {
	// Create inserts a new profile. Returns sentinel.ErrConflict if the
	// handle is already taken (case-insensitive).
	Create(ctx context.Context, p *models.Profile) error

	// Update persists changes to an existing profile.
	Update(ctx context.Context, p *models.Profile) error

	// GetByID fetches a profile by ID. Returns sentinel.ErrNotFound if absent.
	GetByID(ctx context.Context, profileID id.ProfileID) (*models.Profile, error)

	// GetByHandle fetches a profile by case-insensitive handle.
	GetByHandle(ctx context.Context, handle string) (*models.Profile, error)

	// GetByLinkedInID fetches the profile bound to an external identity.
	GetByLinkedInID(ctx context.Context, linkedInID string) (*models.Profile, error)

	// List returns a filtered, sorted page of profiles.
	List(ctx context.Context, filter models.ListFilter) (*models.ListResult, error)

	// IncrementCounters adjusts the denormalized endorsement counters.
	IncrementCounters(ctx context.Context, profileID id.ProfileID, receivedDelta, givenDelta int) error

	// UpdateTier writes a recomputed reputation tier.
	UpdateTier(ctx context.Context, profileID id.ProfileID, tier models.Tier) error
}
