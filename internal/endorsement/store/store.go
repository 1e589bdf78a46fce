// Package store persists endorsements.
package store

import (
	"context"

	"agentsid/internal/endorsement/models"
	id "agentsid/pkg/domain"
)

// Store is the endorsement persistence contract. The (from, to, skill)
// triple is unique; Create returns sentinel.ErrConflict on a duplicate so
// the service's friendly pre-check cannot be raced around.
type Store interface {
	// Create inserts an endorsement. Returns sentinel.ErrConflict if the
	// (from, to, skill) triple already exists.
	Create(ctx context.Context, e *models.Endorsement) error

	// Exists reports whether from has already endorsed to for skill.
	// Skill comparison is exact; callers fold case before storage.
	Exists(ctx context.Context, from, to id.ProfileID, skill string) (bool, error)

	// ListReceived returns endorsements received by the profile, newest first.
	ListReceived(ctx context.Context, profileID id.ProfileID, limit int) ([]*models.Endorsement, error)

	// ListGiven returns endorsements given by the profile, newest first.
	ListGiven(ctx context.Context, profileID id.ProfileID, limit int) ([]*models.Endorsement, error)

	// CountReceived counts endorsements received by the profile.
	CountReceived(ctx context.Context, profileID id.ProfileID) (int, error)
}
