// Package service implements the endorsement ledger. Creation is gated
// on verified participants and recorded collaboration history; accepted
// endorsements update denormalized counters and trigger a reputation
// recompute for the recipient.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"agentsid/internal/endorsement/models"
	"agentsid/internal/endorsement/store"
	"agentsid/internal/platform/metrics"
	profilestore "agentsid/internal/profile/store"
	"agentsid/internal/reputation"
	id "agentsid/pkg/domain"
	dErrors "agentsid/pkg/domain-errors"
	"agentsid/pkg/platform/sentinel"
	"agentsid/pkg/requestcontext"
)

// Rejection reasons, in precondition order. First failure wins.
var (
	ErrUnverifiedParticipant  = dErrors.New(dErrors.CodeForbidden, "both participants must be verified before endorsing")
	ErrNoCollaborationHistory = dErrors.New(dErrors.CodeForbidden, "no recorded collaboration between these profiles")
	ErrDuplicateEndorsement   = dErrors.New(dErrors.CodeConflict, "this skill has already been endorsed for this profile")
)

const maxSkillLength = 100

// CollaborationGate answers whether two profiles have worked together.
type CollaborationGate interface {
	Exists(ctx context.Context, a, b id.ProfileID) (bool, error)
}

type Service struct {
	endorsements   store.Store
	profiles       profilestore.Store
	collaborations CollaborationGate
	engine         *reputation.Engine
	metrics        *metrics.Metrics
	logger         *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(
	endorsements store.Store,
	profiles profilestore.Store,
	collaborations CollaborationGate,
	engine *reputation.Engine,
	opts ...Option,
) (*Service, error) {
	if endorsements == nil {
		return nil, fmt.Errorf("endorsement store is required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	if collaborations == nil {
		return nil, fmt.Errorf("collaboration gate is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("reputation engine is required")
	}
	s := &Service{
		endorsements:   endorsements,
		profiles:       profiles,
		collaborations: collaborations,
		engine:         engine,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Create records an endorsement from the session profile to the named
// recipient. Preconditions run in a fixed order so callers always see
// the same reason for the same state: unverified participant, then
// missing collaboration, then duplicate skill.
func (s *Service) Create(ctx context.Context, fromID id.ProfileID, toHandle, skill, note string) (*models.Endorsement, error) {
	skill = strings.ToLower(strings.TrimSpace(skill))
	if skill == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "skill is required")
	}
	if len(skill) > maxSkillLength {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "skill must be at most %d characters", maxSkillLength)
	}

	from, err := s.profiles.GetByID(ctx, fromID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "endorsing profile not found")
	}
	to, err := s.profiles.GetByHandle(ctx, toHandle)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "profile %q not found", toHandle)
	}
	if from.ID == to.ID {
		return nil, dErrors.New(dErrors.CodeBadRequest, "cannot endorse yourself")
	}

	if !from.IsVerified() || !to.IsVerified() {
		s.recordOutcome("rejected_unverified")
		return nil, ErrUnverifiedParticipant
	}

	collaborated, err := s.collaborations.Exists(ctx, from.ID, to.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check collaboration history")
	}
	if !collaborated {
		s.recordOutcome("rejected_no_collaboration")
		return nil, ErrNoCollaborationHistory
	}

	exists, err := s.endorsements.Exists(ctx, from.ID, to.ID, skill)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing endorsements")
	}
	if exists {
		s.recordOutcome("rejected_duplicate")
		return nil, ErrDuplicateEndorsement
	}

	e := &models.Endorsement{
		ID:        id.NewEndorsementID(),
		FromID:    from.ID,
		ToID:      to.ID,
		Skill:     skill,
		Note:      strings.TrimSpace(note),
		CreatedAt: requestcontext.Now(ctx),
	}
	// The unique (from, to, skill) constraint closes the race between the
	// pre-check above and this insert.
	if err := s.endorsements.Create(ctx, e); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.recordOutcome("rejected_duplicate")
			return nil, ErrDuplicateEndorsement
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record endorsement")
	}

	// Counters and tier are denormalized read models; they follow a
	// successful insert, never precede it.
	if err := s.profiles.IncrementCounters(ctx, to.ID, 1, 0); err != nil {
		s.logger.ErrorContext(ctx, "failed to increment received counter",
			"profile_id", to.ID, "error", err)
	}
	if err := s.profiles.IncrementCounters(ctx, from.ID, 0, 1); err != nil {
		s.logger.ErrorContext(ctx, "failed to increment given counter",
			"profile_id", from.ID, "error", err)
	}
	if _, err := s.engine.Recompute(ctx, to.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to recompute reputation",
			"profile_id", to.ID, "error", err)
	}

	s.recordOutcome("accepted")
	s.logger.InfoContext(ctx, "endorsement recorded",
		"from", from.Handle,
		"to", to.Handle,
		"skill", skill,
		"request_id", requestcontext.RequestID(ctx),
	)
	return e, nil
}

// ListForHandle returns endorsements received by or given by the profile.
func (s *Service) ListForHandle(ctx context.Context, handle string, direction models.Direction, limit int) ([]*models.Endorsement, error) {
	if direction == "" {
		direction = models.DirectionReceived
	}
	if !direction.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown direction %q", direction)
	}
	p, err := s.profiles.GetByHandle(ctx, handle)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "profile %q not found", handle)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var out []*models.Endorsement
	if direction == models.DirectionGiven {
		out, err = s.endorsements.ListGiven(ctx, p.ID, limit)
	} else {
		out, err = s.endorsements.ListReceived(ctx, p.ID, limit)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list endorsements")
	}
	return out, nil
}

func (s *Service) recordOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveEndorsement(outcome)
	}
}
