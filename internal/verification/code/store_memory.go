package code

import (
	"context"
	"strings"
	"sync"
	"time"

	"agentsid/internal/verification/models"
	"agentsid/pkg/platform/sentinel"
)

// MemoryStore keeps verification codes in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	codes []*models.Code
}

func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Replace(_ context.Context, c *models.Code) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	subject := strings.ToLower(c.SubjectHandle)
	for _, existing := range s.codes {
		if strings.ToLower(existing.SubjectHandle) == subject &&
			existing.Channel == c.Channel && !existing.Claimed {
			existing.Claimed = true
		}
	}

	cp := *c
	s.codes = append(s.codes, &cp)
	return nil
}

func (s *MemoryStore) FindLive(_ context.Context, subject string, channel models.Channel, now time.Time) (*models.Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subject = strings.ToLower(subject)
	for _, c := range s.codes {
		if strings.ToLower(c.SubjectHandle) == subject && c.Channel == channel &&
			!c.Claimed && !c.Expired(now) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) MarkClaimed(_ context.Context, codeValue string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.codes {
		if c.Code == codeValue {
			if c.Claimed {
				return sentinel.ErrAlreadyUsed
			}
			c.Claimed = true
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (s *MemoryStore) CountIssuedSince(_ context.Context, subject string, channel models.Channel, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subject = strings.ToLower(subject)
	count := 0
	for _, c := range s.codes {
		if strings.ToLower(c.SubjectHandle) == subject && c.Channel == channel &&
			c.CreatedAt.After(cutoff) {
			count++
		}
	}
	return count, nil
}
