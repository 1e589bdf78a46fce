package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"agentsid/internal/profile/models"
	id "agentsid/pkg/domain"
	"agentsid/pkg/platform/sentinel"
)

// MemoryStore keeps profiles in process memory. Used by unit tests and dev
// mode; it favors clarity over performance.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[id.ProfileID]*models.Profile
	byHandle map[string]id.ProfileID // key is the lowercased handle
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[id.ProfileID]*models.Profile),
		byHandle: make(map[string]id.ProfileID),
	}
}

func (s *MemoryStore) Create(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(p.Handle)
	if _, taken := s.byHandle[key]; taken {
		return sentinel.ErrConflict
	}

	cp := clone(p)
	s.profiles[cp.ID] = cp
	s.byHandle[key] = cp.ID
	return nil
}

func (s *MemoryStore) Update(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.profiles[p.ID]
	if !ok {
		return sentinel.ErrNotFound
	}

	oldKey := strings.ToLower(existing.Handle)
	newKey := strings.ToLower(p.Handle)
	if oldKey != newKey {
		if _, taken := s.byHandle[newKey]; taken {
			return sentinel.ErrConflict
		}
		delete(s.byHandle, oldKey)
		s.byHandle[newKey] = p.ID
	}

	s.profiles[p.ID] = clone(p)
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, profileID id.ProfileID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[profileID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(p), nil
}

func (s *MemoryStore) GetByHandle(_ context.Context, handle string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profileID, ok := s.byHandle[strings.ToLower(handle)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.profiles[profileID]), nil
}

func (s *MemoryStore) GetByLinkedInID(_ context.Context, linkedInID string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.profiles {
		if p.LinkedInID != "" && p.LinkedInID == linkedInID {
			return clone(p), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) List(_ context.Context, filter models.ListFilter) (*models.ListResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Profile
	for _, p := range s.profiles {
		if !matches(p, filter) {
			continue
		}
		matched = append(matched, clone(p))
	}

	sortProfiles(matched, filter.Sort)

	total := len(matched)
	start := filter.Offset
	if start > total {
		start = total
	}
	end := total
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}

	return &models.ListResult{Profiles: matched[start:end], Total: total}, nil
}

func (s *MemoryStore) IncrementCounters(_ context.Context, profileID id.ProfileID, receivedDelta, givenDelta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[profileID]
	if !ok {
		return sentinel.ErrNotFound
	}
	p.EndorsementCount += receivedDelta
	p.GivenCount += givenDelta
	p.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) UpdateTier(_ context.Context, profileID id.ProfileID, tier models.Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[profileID]
	if !ok {
		return sentinel.ErrNotFound
	}
	p.Tier = tier
	p.UpdatedAt = time.Now()
	return nil
}

func matches(p *models.Profile, f models.ListFilter) bool {
	if f.EntityType != "" && p.EntityType != f.EntityType {
		return false
	}
	if f.Tier != "" && p.Tier != f.Tier {
		return false
	}
	if f.Available && !p.IsAvailable {
		return false
	}
	if f.Skill != "" {
		found := false
		for _, skill := range p.Skills {
			if strings.EqualFold(skill, f.Skill) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.DisplayName), q) &&
			!strings.Contains(strings.ToLower(p.Handle), q) &&
			!strings.Contains(strings.ToLower(p.Headline), q) {
			return false
		}
	}
	return true
}

func sortProfiles(profiles []*models.Profile, by string) {
	switch by {
	case "name":
		sort.Slice(profiles, func(i, j int) bool {
			return profiles[i].DisplayName < profiles[j].DisplayName
		})
	case "endorsements":
		sort.Slice(profiles, func(i, j int) bool {
			return profiles[i].EndorsementCount > profiles[j].EndorsementCount
		})
	default: // recent
		sort.Slice(profiles, func(i, j int) bool {
			return profiles[i].CreatedAt.After(profiles[j].CreatedAt)
		})
	}
}

func clone(p *models.Profile) *models.Profile {
	cp := *p
	if p.Skills != nil {
		cp.Skills = append([]string(nil), p.Skills...)
	}
	if p.VerifiedAt != nil {
		t := *p.VerifiedAt
		cp.VerifiedAt = &t
	}
	return &cp
}
