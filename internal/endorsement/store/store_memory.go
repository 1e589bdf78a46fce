package store

import (
	"context"
	"sort"
	"sync"

	"agentsid/internal/endorsement/models"
	id "agentsid/pkg/domain"
	"agentsid/pkg/platform/sentinel"
)

// MemoryStore keeps endorsements in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*models.Endorsement
}

func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Create(_ context.Context, e *models.Endorsement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.records {
		if existing.FromID == e.FromID && existing.ToID == e.ToID && existing.Skill == e.Skill {
			return sentinel.ErrConflict
		}
	}

	cp := *e
	s.records = append(s.records, &cp)
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, from, to id.ProfileID, skill string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.records {
		if e.FromID == from && e.ToID == to && e.Skill == skill {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) ListReceived(_ context.Context, profileID id.ProfileID, limit int) ([]*models.Endorsement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(e *models.Endorsement) bool { return e.ToID == profileID }, limit), nil
}

func (s *MemoryStore) ListGiven(_ context.Context, profileID id.ProfileID, limit int) ([]*models.Endorsement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(e *models.Endorsement) bool { return e.FromID == profileID }, limit), nil
}

func (s *MemoryStore) CountReceived(_ context.Context, profileID id.ProfileID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.records {
		if e.ToID == profileID {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) filter(keep func(*models.Endorsement) bool, limit int) []*models.Endorsement {
	var out []*models.Endorsement
	for _, e := range s.records {
		if keep(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
