package store

import (
	"context"
	"sort"
	"sync"

	"agentsid/internal/collaboration/models"
	id "agentsid/pkg/domain"
)

// MemoryStore keeps collaborations in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*models.Collaboration
}

func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Create(_ context.Context, c *models.Collaboration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *c
	s.records = append(s.records, &cp)
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, a, b id.ProfileID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.records {
		if (c.ProfileA == a && c.ProfileB == b) || (c.ProfileA == b && c.ProfileB == a) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) ListForProfile(_ context.Context, profileID id.ProfileID, limit int) ([]*models.Collaboration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Collaboration
	for _, c := range s.records {
		if c.ProfileA == profileID || c.ProfileB == profileID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
