package oauth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"agentsid/internal/platform/metrics"
	profilemodels "agentsid/internal/profile/models"
	profilestore "agentsid/internal/profile/store"
	"agentsid/internal/session"
	id "agentsid/pkg/domain"
	dErrors "agentsid/pkg/domain-errors"
	"agentsid/pkg/handle"
	"agentsid/pkg/platform/audit"
	"agentsid/pkg/platform/sentinel"
	"agentsid/pkg/requestcontext"
)

const handleRetries = 5

// Outcome bundles the verified profile with its fresh session token.
type Outcome struct {
	Profile *profilemodels.Profile
	Token   string
}

// Service runs the OAuth identity flow. The provider's authentication is
// the proof; the external subject id binds permanently to one profile.
type Service struct {
	provider Provider
	profiles profilestore.Store
	sessions *session.Issuer
	audit    audit.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithServiceMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAudit(p audit.Publisher) Option {
	return func(s *Service) {
		s.audit = p
	}
}

func New(provider Provider, profiles profilestore.Store, sessions *session.Issuer, opts ...Option) (*Service, error) {
	if provider == nil {
		return nil, fmt.Errorf("oauth provider is required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session issuer is required")
	}
	s := &Service{provider: provider, profiles: profiles, sessions: sessions}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// NewState mints the CSRF state value set as a short-lived cookie at flow
// start.
func NewState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Complete finishes the callback leg: state check, token exchange,
// identity fetch, profile bind, session issue. State absence or mismatch
// is a hard failure before any provider call.
func (s *Service) Complete(ctx context.Context, expectedState, presentedState, authCode, redirectURI string) (*Outcome, error) {
	if expectedState == "" || presentedState == "" ||
		subtle.ConstantTimeCompare([]byte(expectedState), []byte(presentedState)) != 1 {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "state mismatch")
	}
	if authCode == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "authorization code is required")
	}

	token, err := s.provider.Exchange(ctx, authCode, redirectURI)
	if err != nil {
		s.observe("unverified")
		s.logger.WarnContext(ctx, "oauth token exchange failed", "error", err)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "identity provider verification failed")
	}

	identity, err := s.provider.UserInfo(ctx, token)
	if err != nil {
		s.observe("unverified")
		s.logger.WarnContext(ctx, "oauth userinfo fetch failed", "error", err)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "identity provider verification failed")
	}

	profile, err := s.bind(ctx, identity)
	if err != nil {
		return nil, err
	}

	sessionToken, err := s.sessions.Issue(profile, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session")
	}

	s.observe("verified")
	if s.metrics != nil {
		s.metrics.ObserveSessionIssued("linkedin_oauth")
	}
	if s.audit != nil {
		s.audit.Emit(ctx, audit.Event{
			Category:  audit.CategorySecurity,
			Action:    "human_verified",
			ProfileID: profile.ID.String(),
			Handle:    profile.Handle,
			Outcome:   "verified",
			Detail:    map[string]string{"method": string(profilemodels.MethodLinkedInOAuth)},
		})
	}
	s.logger.InfoContext(ctx, "human verified via oauth",
		"handle", profile.Handle,
		"profile_id", profile.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &Outcome{Profile: profile, Token: sessionToken}, nil
}

// bind finds the profile already holding this provider subject, or creates
// a new human profile with a derived handle. The binding is permanent:
// repeated logins with the same subject converge on one profile.
func (s *Service) bind(ctx context.Context, identity *Identity) (*profilemodels.Profile, error) {
	now := requestcontext.Now(ctx)

	existing, err := s.profiles.GetByLinkedInID(ctx, identity.Subject)
	switch {
	case err == nil:
		if identity.AvatarURL != "" {
			existing.AvatarURL = identity.AvatarURL
		}
		existing.LastActive = now
		existing.UpdatedAt = now
		if err := s.profiles.Update(ctx, existing); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to refresh profile")
		}
		return existing, nil
	case errors.Is(err, sentinel.ErrNotFound):
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up identity binding")
	}

	profile := &profilemodels.Profile{
		ID:                 id.NewProfileID(),
		EntityType:         profilemodels.EntityHuman,
		DisplayName:        identity.Name,
		Email:              identity.Email,
		AvatarURL:          identity.AvatarURL,
		LinkedInID:         identity.Subject,
		Skills:             []string{},
		VerificationStatus: profilemodels.StatusVerified,
		VerificationMethod: profilemodels.MethodLinkedInOAuth,
		VerifiedAt:         &now,
		Tier:               profilemodels.TierNew,
		CreatedAt:          now,
		UpdatedAt:          now,
		LastActive:         now,
	}

	base := handle.Derive(identity.Name)
	profile.Handle = base
	for attempt := 0; ; attempt++ {
		err := s.profiles.Create(ctx, profile)
		if err == nil {
			return profile, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create profile")
		}
		if attempt >= handleRetries {
			return nil, dErrors.New(dErrors.CodeConflict, "could not find a free handle, try again")
		}
		profile.Handle = handle.Disambiguate(base)
	}
}

func (s *Service) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveVerification("linkedin_oauth", outcome)
	}
}
