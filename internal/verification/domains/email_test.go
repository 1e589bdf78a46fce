package domains

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	affiliationmodels "agentsid/internal/affiliation/models"
	affiliationstore "agentsid/internal/affiliation/store"
	"agentsid/internal/platform/email"
	profilemodels "agentsid/internal/profile/models"
	profilestore "agentsid/internal/profile/store"
	"agentsid/internal/verification/code"
	id "agentsid/pkg/domain"
	dErrors "agentsid/pkg/domain-errors"
	"agentsid/pkg/requestcontext"
)

type EmailSuite struct {
	suite.Suite
	profiles     *profilestore.MemoryStore
	affiliations *affiliationstore.MemoryStore
	codes        *code.MemoryStore
	sender       *email.MemorySender
	verifier     *EmailVerifier

	org    *profilemodels.Profile
	caller requestcontext.Session
}

func TestEmailSuite(t *testing.T) {
	suite.Run(t, new(EmailSuite))
}

func (s *EmailSuite) SetupTest() {
	s.profiles = profilestore.NewMemory()
	s.affiliations = affiliationstore.NewMemory()
	s.codes = code.NewMemory()
	s.sender = &email.MemorySender{}

	generator, err := code.NewGenerator(s.codes)
	s.Require().NoError(err)

	s.verifier, err = NewEmailVerifier(s.profiles, s.affiliations, s.codes, generator, s.sender)
	s.Require().NoError(err)

	s.org = &profilemodels.Profile{
		ID:          id.NewProfileID(),
		EntityType:  profilemodels.EntityOrg,
		Handle:      "acme",
		DisplayName: "Acme Corp",
		Domain:      "acme.com",
	}
	s.Require().NoError(s.profiles.Create(context.Background(), s.org))

	human := id.NewProfileID()
	s.caller = requestcontext.Session{
		ProfileID:  human,
		EntityType: string(profilemodels.EntityHuman),
		Handle:     "jane",
		Verified:   true,
	}
	s.Require().NoError(s.affiliations.Create(context.Background(), &affiliationmodels.Affiliation{
		ID:                id.NewAffiliationID(),
		ParentID:          s.org.ID,
		ChildID:           human,
		Type:              affiliationmodels.TypeEmployment,
		Status:            affiliationmodels.StatusActive,
		ConfirmedByParent: true,
		ConfirmedByChild:  true,
	}))
}

func (s *EmailSuite) TestAuthorization() {
	ctx := context.Background()

	s.Run("anonymous caller", func() {
		err := s.verifier.SendCode(ctx, requestcontext.Session{}, "acme", "jane@acme.com")
		s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))
	})

	s.Run("agent caller", func() {
		agent := requestcontext.Session{
			ProfileID:  id.NewProfileID(),
			EntityType: string(profilemodels.EntityAgent),
		}
		err := s.verifier.SendCode(ctx, agent, "acme", "jane@acme.com")
		s.Equal(dErrors.CodeForbidden, dErrors.CodeOf(err))
	})

	s.Run("human without affiliation", func() {
		stranger := requestcontext.Session{
			ProfileID:  id.NewProfileID(),
			EntityType: string(profilemodels.EntityHuman),
		}
		err := s.verifier.SendCode(ctx, stranger, "acme", "jane@acme.com")
		s.Equal(dErrors.CodeForbidden, dErrors.CodeOf(err))
	})

	s.Run("unknown org", func() {
		err := s.verifier.SendCode(ctx, s.caller, "ghost", "jane@acme.com")
		s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
	})
}

func (s *EmailSuite) TestDomainMustMatch() {
	ctx := context.Background()

	err := s.verifier.SendCode(ctx, s.caller, "acme", "jane@gmail.com")
	s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(err))

	// Case-insensitive on the domain part.
	err = s.verifier.SendCode(ctx, s.caller, "acme", "jane@ACME.com")
	s.NoError(err)
	s.Len(s.sender.Messages, 1)
}

func (s *EmailSuite) TestInvalidAddressRejected() {
	err := s.verifier.SendCode(context.Background(), s.caller, "acme", "not-an-email")
	s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(err))
	s.Empty(s.sender.Messages)
}

func (s *EmailSuite) TestRateLimitWindow() {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), base)

	for i := 0; i < 3; i++ {
		s.Require().NoError(s.verifier.SendCode(ctx, s.caller, "acme", "jane@acme.com"))
	}

	// 4th within 60 minutes of the first is rejected.
	err := s.verifier.SendCode(ctx, s.caller, "acme", "jane@acme.com")
	s.Equal(dErrors.CodeRateLimited, dErrors.CodeOf(err))

	// 61 minutes after the first, the window has rolled.
	later := requestcontext.WithTime(context.Background(), base.Add(61*time.Minute))
	s.NoError(s.verifier.SendCode(later, s.caller, "acme", "jane@acme.com"))
}

func (s *EmailSuite) TestVerifyFlow() {
	ctx := context.Background()

	s.Require().NoError(s.verifier.SendCode(ctx, s.caller, "acme", "jane@acme.com"))
	s.Require().Len(s.sender.Messages, 1)

	live, err := s.codes.FindLive(ctx, "acme", "domain_email", time.Now())
	s.Require().NoError(err)
	s.Contains(s.sender.Messages[0].HTML, live.Code)

	s.Run("wrong code", func() {
		result, err := s.verifier.VerifyCode(ctx, s.caller, "acme", "000000")
		s.Require().NoError(err)
		s.False(result.Verified)
	})

	s.Run("correct code verifies the org", func() {
		result, err := s.verifier.VerifyCode(ctx, s.caller, "acme", live.Code)
		s.Require().NoError(err)
		s.True(result.Verified)

		org, err := s.profiles.GetByHandle(ctx, "acme")
		s.Require().NoError(err)
		s.True(org.IsVerified())
		s.Equal(profilemodels.MethodDomainEmail, org.VerificationMethod)
	})

	s.Run("code is single use", func() {
		result, err := s.verifier.VerifyCode(ctx, s.caller, "acme", live.Code)
		s.Require().NoError(err)
		s.False(result.Verified)
	})
}

func (s *EmailSuite) TestMethodNeverDowngradesFromDNS() {
	ctx := context.Background()

	s.org.VerificationStatus = profilemodels.StatusVerified
	s.org.VerificationMethod = profilemodels.MethodDNS
	s.Require().NoError(s.profiles.Update(ctx, s.org))

	s.Require().NoError(s.verifier.SendCode(ctx, s.caller, "acme", "jane@acme.com"))
	live, err := s.codes.FindLive(ctx, "acme", "domain_email", time.Now())
	s.Require().NoError(err)

	result, err := s.verifier.VerifyCode(ctx, s.caller, "acme", live.Code)
	s.Require().NoError(err)
	s.True(result.Verified)

	org, err := s.profiles.GetByHandle(ctx, "acme")
	s.Require().NoError(err)
	s.Equal(profilemodels.MethodDNS, org.VerificationMethod,
		"dns is stronger than domain_email and must be kept")
}

func (s *EmailSuite) TestSendFailureIsUnavailable() {
	s.sender.Err = contextDeadlineErr{}

	err := s.verifier.SendCode(context.Background(), s.caller, "acme", "jane@acme.com")
	s.Equal(dErrors.CodeUnavailable, dErrors.CodeOf(err))
}

type contextDeadlineErr struct{}

func (contextDeadlineErr) Error() string { return "dispatch timed out" }
