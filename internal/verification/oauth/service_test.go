package oauth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	profilemodels "agentsid/internal/profile/models"
	profilestore "agentsid/internal/profile/store"
	"agentsid/internal/session"
	id "agentsid/pkg/domain"
	dErrors "agentsid/pkg/domain-errors"
)

type fakeProvider struct {
	identity    *Identity
	exchangeErr error
	userInfoErr error
}

func (f *fakeProvider) Exchange(_ context.Context, _, _ string) (string, error) {
	if f.exchangeErr != nil {
		return "", f.exchangeErr
	}
	return "access-token", nil
}

func (f *fakeProvider) UserInfo(_ context.Context, _ string) (*Identity, error) {
	if f.userInfoErr != nil {
		return nil, f.userInfoErr
	}
	return f.identity, nil
}

type ServiceSuite struct {
	suite.Suite
	profiles *profilestore.MemoryStore
	provider *fakeProvider
	service  *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.profiles = profilestore.NewMemory()
	s.provider = &fakeProvider{
		identity: &Identity{
			Subject:   "li-12345",
			Name:      "Jane Smith",
			Email:     "jane@example.com",
			AvatarURL: "https://cdn.example.com/jane.jpg",
		},
	}

	issuer, err := session.NewIssuer("test-secret", time.Hour)
	s.Require().NoError(err)

	s.service, err = New(s.provider, s.profiles, issuer)
	s.Require().NoError(err)
}

func (s *ServiceSuite) complete() (*Outcome, error) {
	return s.service.Complete(context.Background(), "state-1", "state-1", "auth-code", "https://app/callback")
}

func (s *ServiceSuite) TestStateChecks() {
	cases := map[string][2]string{
		"mismatch":       {"state-1", "state-2"},
		"missing cookie": {"", "state-1"},
		"missing query":  {"state-1", ""},
		"both missing":   {"", ""},
	}
	for name, pair := range cases {
		s.Run(name, func() {
			_, err := s.service.Complete(context.Background(), pair[0], pair[1], "auth-code", "uri")
			s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))
		})
	}
}

func (s *ServiceSuite) TestCreatesProfileWithDerivedHandle() {
	outcome, err := s.complete()
	s.Require().NoError(err)

	s.Equal("janesmith", outcome.Profile.Handle)
	s.Equal(profilemodels.EntityHuman, outcome.Profile.EntityType)
	s.Equal("li-12345", outcome.Profile.LinkedInID)
	s.True(outcome.Profile.IsVerified())
	s.Equal(profilemodels.MethodLinkedInOAuth, outcome.Profile.VerificationMethod)
	s.NotEmpty(outcome.Token)
}

func (s *ServiceSuite) TestIdempotentPerProviderSubject() {
	first, err := s.complete()
	s.Require().NoError(err)

	// Second login with the same subject reuses the profile even though
	// the display name (and so the derived handle) changed.
	s.provider.identity.Name = "Jane Smith-Jones"
	s.provider.identity.AvatarURL = "https://cdn.example.com/jane2.jpg"

	second, err := s.complete()
	s.Require().NoError(err)
	s.Equal(first.Profile.ID, second.Profile.ID)
	s.Equal(first.Profile.Handle, second.Profile.Handle)
	s.Equal("https://cdn.example.com/jane2.jpg", second.Profile.AvatarURL)
}

func (s *ServiceSuite) TestHandleCollisionGetsSuffix() {
	s.Require().NoError(s.profiles.Create(context.Background(), &profilemodels.Profile{
		ID:         id.NewProfileID(),
		EntityType: profilemodels.EntityAgent,
		Handle:     "janesmith",
	}))

	outcome, err := s.complete()
	s.Require().NoError(err)
	s.NotEqual("janesmith", outcome.Profile.Handle)
	s.Regexp(`^janesmith\d+$`, outcome.Profile.Handle)
}

func (s *ServiceSuite) TestProviderFailuresAreUnauthorized() {
	s.Run("exchange fails", func() {
		s.provider.exchangeErr = errors.New("provider down")
		_, err := s.complete()
		s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))
		s.provider.exchangeErr = nil
	})

	s.Run("userinfo fails", func() {
		s.provider.userInfoErr = errors.New("provider down")
		_, err := s.complete()
		s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))
		s.provider.userInfoErr = nil
	})
}

func (s *ServiceSuite) TestNewStateIsUniqueAndHex() {
	a, err := NewState()
	s.Require().NoError(err)
	b, err := NewState()
	s.Require().NoError(err)
	s.NotEqual(a, b)
	s.Regexp(`^[0-9a-f]{32}$`, a)
}
