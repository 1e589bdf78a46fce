// Package service records and queries collaborations. Writes come from
// trusted platform integrations only, authenticated with a service API
// key compared in constant time.
package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strings"

	"agentsid/internal/collaboration/models"
	"agentsid/internal/collaboration/store"
	profilestore "agentsid/internal/profile/store"
	id "agentsid/pkg/domain"
	dErrors "agentsid/pkg/domain-errors"
	"agentsid/pkg/requestcontext"
)

type Service struct {
	collaborations store.Store
	profiles       profilestore.Store
	apiKey         string
	logger         *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(collaborations store.Store, profiles profilestore.Store, apiKey string, opts ...Option) (*Service, error) {
	if collaborations == nil {
		return nil, fmt.Errorf("collaboration store is required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	s := &Service{collaborations: collaborations, profiles: profiles, apiKey: apiKey}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// RecordInput identifies the two participants by handle.
type RecordInput struct {
	HandleA     string
	HandleB     string
	Source      models.Source
	Context     string
	ExternalRef string
}

// Record asserts a collaboration between two profiles. The presented key
// must match the configured service key; with no key configured, writes
// are disabled entirely.
func (s *Service) Record(ctx context.Context, presentedKey string, in RecordInput) (*models.Collaboration, error) {
	if err := s.authorize(presentedKey); err != nil {
		return nil, err
	}
	if !in.Source.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown collaboration source %q", in.Source)
	}

	a, err := s.resolve(ctx, in.HandleA)
	if err != nil {
		return nil, err
	}
	b, err := s.resolve(ctx, in.HandleB)
	if err != nil {
		return nil, err
	}
	if a == b {
		return nil, dErrors.New(dErrors.CodeBadRequest, "a collaboration needs two distinct profiles")
	}

	c := &models.Collaboration{
		ID:          id.NewCollaborationID(),
		ProfileA:    a,
		ProfileB:    b,
		Source:      in.Source,
		Context:     in.Context,
		ExternalRef: in.ExternalRef,
		CreatedAt:   requestcontext.Now(ctx),
	}
	if err := s.collaborations.Create(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record collaboration")
	}

	s.logger.InfoContext(ctx, "collaboration recorded",
		"profile_a", c.ProfileA,
		"profile_b", c.ProfileB,
		"source", c.Source,
		"request_id", requestcontext.RequestID(ctx),
	)
	return c, nil
}

// Exists reports whether the two profiles share any collaboration record.
func (s *Service) Exists(ctx context.Context, a, b id.ProfileID) (bool, error) {
	return s.collaborations.Exists(ctx, a, b)
}

// ListForHandle returns collaborations involving the named profile.
func (s *Service) ListForHandle(ctx context.Context, handle string, limit int) ([]*models.Collaboration, error) {
	profileID, err := s.resolve(ctx, handle)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	out, err := s.collaborations.ListForProfile(ctx, profileID, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list collaborations")
	}
	return out, nil
}

func (s *Service) authorize(presentedKey string) error {
	if s.apiKey == "" {
		return dErrors.New(dErrors.CodeForbidden, "collaboration recording is disabled")
	}
	if subtle.ConstantTimeCompare([]byte(presentedKey), []byte(s.apiKey)) != 1 {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid api key")
	}
	return nil
}

func (s *Service) resolve(ctx context.Context, handle string) (id.ProfileID, error) {
	handle = strings.ToLower(strings.TrimSpace(handle))
	if handle == "" {
		return id.ProfileID{}, dErrors.New(dErrors.CodeBadRequest, "handle is required")
	}
	p, err := s.profiles.GetByHandle(ctx, handle)
	if err != nil {
		return id.ProfileID{}, dErrors.Newf(dErrors.CodeNotFound, "profile %q not found", handle)
	}
	return p.ID, nil
}
