package store

import (
	"context"
	"sync"

	"agentsid/internal/affiliation/models"
	id "agentsid/pkg/domain"
	"agentsid/pkg/platform/sentinel"
)

// MemoryStore keeps affiliations in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*models.Affiliation
}

func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Create(_ context.Context, a *models.Affiliation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *a
	s.records = append(s.records, &cp)
	return nil
}

func (s *MemoryStore) ActiveAffiliation(_ context.Context, parent, child id.ProfileID) (*models.Affiliation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.records {
		if a.ParentID == parent && a.ChildID == child && a.IsActive() {
			cp := *a
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) ListForProfile(_ context.Context, profileID id.ProfileID) ([]*models.Affiliation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Affiliation
	for _, a := range s.records {
		if a.ParentID == profileID || a.ChildID == profileID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}
