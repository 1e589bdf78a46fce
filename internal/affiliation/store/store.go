// Package store persists affiliations.
package store

import (
	"context"

	"agentsid/internal/affiliation/models"
	id "agentsid/pkg/domain"
)

// Store is the affiliation persistence contract.
type Store interface {
	// Create inserts an affiliation edge.
	Create(ctx context.Context, a *models.Affiliation) error

	// ActiveAffiliation returns the active, bilaterally confirmed edge
	// between parent org and child profile. Returns sentinel.ErrNotFound
	// when no such edge exists.
	ActiveAffiliation(ctx context.Context, parent, child id.ProfileID) (*models.Affiliation, error)

	// ListForProfile returns edges where the profile is parent or child.
	ListForProfile(ctx context.Context, profileID id.ProfileID) ([]*models.Affiliation, error)
}
