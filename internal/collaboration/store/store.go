// Package store persists collaboration records.
package store

import (
	"context"

	"agentsid/internal/collaboration/models"
	id "agentsid/pkg/domain"
)

// Store is the collaboration persistence contract. Pair lookups are
// undirected: Exists(a, b) and Exists(b, a) answer the same question.
type Store interface {
	// Create inserts a collaboration record.
	Create(ctx context.Context, c *models.Collaboration) error

	// Exists reports whether any collaboration links the two profiles,
	// in either direction.
	Exists(ctx context.Context, a, b id.ProfileID) (bool, error)

	// ListForProfile returns collaborations involving the profile, newest
	// first.
	ListForProfile(ctx context.Context, profileID id.ProfileID, limit int) ([]*models.Collaboration, error)
}
