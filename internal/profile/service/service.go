// Package service exposes profile directory operations. Verification state
// and reputation are owned by the verification and reputation modules; this
// service only handles directory reads and owner edits.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"agentsid/internal/profile/models"
	"agentsid/internal/profile/store"
	id "agentsid/pkg/domain"
	dErrors "agentsid/pkg/domain-errors"
	"agentsid/pkg/platform/sentinel"
	platformstrings "agentsid/pkg/platform/strings"
	"agentsid/pkg/requestcontext"
)

const maxListLimit = 100

type Service struct {
	profiles store.Store
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(profiles store.Store, opts ...Option) (*Service, error) {
	if profiles == nil {
		return nil, fmt.Errorf("profile store is required")
	}

	svc := &Service{profiles: profiles}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc, nil
}

// GetByHandle fetches one profile by case-insensitive handle.
func (s *Service) GetByHandle(ctx context.Context, handle string) (*models.Profile, error) {
	p, err := s.profiles.GetByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fetch profile")
	}
	return p, nil
}

// GetByID fetches one profile by ID.
func (s *Service) GetByID(ctx context.Context, profileID id.ProfileID) (*models.Profile, error) {
	p, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fetch profile")
	}
	return p, nil
}

// List returns a filtered page of profiles. The limit is clamped to 100.
func (s *Service) List(ctx context.Context, filter models.ListFilter) (*models.ListResult, error) {
	if filter.Limit <= 0 || filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.EntityType != "" && !filter.EntityType.IsValid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown entity type")
	}

	result, err := s.profiles.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list profiles")
	}
	return result, nil
}

// ProfileUpdate carries the owner-editable fields. Nil pointers mean
// "leave unchanged" so partial updates don't clobber existing values.
type ProfileUpdate struct {
	DisplayName *string
	Headline    *string
	Bio         *string
	AvatarURL   *string
	Website     *string
	Skills      *[]string
	IsAvailable *bool
	RateSummary *string
}

// UpdateOwn applies an owner's edits to their profile. The handle,
// verification state, and reputation fields are not editable here.
func (s *Service) UpdateOwn(ctx context.Context, session requestcontext.Session, update ProfileUpdate) (*models.Profile, error) {
	if session.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	p, err := s.profiles.GetByID(ctx, session.ProfileID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fetch profile")
	}

	if update.DisplayName != nil {
		if *update.DisplayName == "" {
			return nil, dErrors.New(dErrors.CodeBadRequest, "display_name must not be empty")
		}
		p.DisplayName = *update.DisplayName
	}
	if update.Headline != nil {
		p.Headline = *update.Headline
	}
	if update.Bio != nil {
		p.Bio = *update.Bio
	}
	if update.AvatarURL != nil {
		p.AvatarURL = *update.AvatarURL
	}
	if update.Website != nil {
		p.Website = *update.Website
	}
	if update.Skills != nil {
		p.Skills = platformstrings.DedupeAndTrimLower(*update.Skills)
	}
	if update.IsAvailable != nil {
		p.IsAvailable = *update.IsAvailable
	}
	if update.RateSummary != nil {
		p.RateSummary = *update.RateSummary
	}

	now := requestcontext.Now(ctx)
	p.UpdatedAt = now
	p.LastActive = now

	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update profile")
	}

	s.logger.InfoContext(ctx, "profile updated",
		"profile_id", p.ID,
		"handle", p.Handle,
		"request_id", requestcontext.RequestID(ctx),
	)
	return p, nil
}
