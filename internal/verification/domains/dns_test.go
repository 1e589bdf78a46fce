package domains

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	affiliationmodels "agentsid/internal/affiliation/models"
	affiliationstore "agentsid/internal/affiliation/store"
	profilemodels "agentsid/internal/profile/models"
	profilestore "agentsid/internal/profile/store"
	id "agentsid/pkg/domain"
	dErrors "agentsid/pkg/domain-errors"
	"agentsid/pkg/requestcontext"
)

type fakeResolver struct {
	records map[string][]string
	err     error
}

func (f *fakeResolver) LookupTXT(_ context.Context, name string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records[name], nil
}

type DNSSuite struct {
	suite.Suite
	profiles     *profilestore.MemoryStore
	affiliations *affiliationstore.MemoryStore
	resolver     *fakeResolver
	verifier     *DNSVerifier

	caller requestcontext.Session
}

func TestDNSSuite(t *testing.T) {
	suite.Run(t, new(DNSSuite))
}

func (s *DNSSuite) SetupTest() {
	s.profiles = profilestore.NewMemory()
	s.affiliations = affiliationstore.NewMemory()
	s.resolver = &fakeResolver{records: map[string][]string{}}

	var err error
	s.verifier, err = NewDNSVerifier(s.profiles, s.affiliations, WithResolver(s.resolver))
	s.Require().NoError(err)

	human := id.NewProfileID()
	s.caller = requestcontext.Session{
		ProfileID:  human,
		EntityType: string(profilemodels.EntityHuman),
		Handle:     "jane",
		Verified:   true,
	}
	s.seedOrg("acme", "example.com", human)
}

func (s *DNSSuite) seedOrg(handle, domain string, affiliated id.ProfileID) *profilemodels.Profile {
	org := &profilemodels.Profile{
		ID:         id.NewProfileID(),
		EntityType: profilemodels.EntityOrg,
		Handle:     handle,
		Domain:     domain,
	}
	s.Require().NoError(s.profiles.Create(context.Background(), org))
	s.Require().NoError(s.affiliations.Create(context.Background(), &affiliationmodels.Affiliation{
		ID:                id.NewAffiliationID(),
		ParentID:          org.ID,
		ChildID:           affiliated,
		Type:              affiliationmodels.TypeEmployment,
		Status:            affiliationmodels.StatusActive,
		ConfirmedByParent: true,
		ConfirmedByChild:  true,
	}))
	return org
}

func (s *DNSSuite) TestExactRecordVerifies() {
	s.resolver.records["example.com"] = []string{
		"v=spf1 include:_spf.google.com ~all",
		"agentsid-verify=acme",
	}

	result, err := s.verifier.Verify(context.Background(), s.caller, "acme")
	s.Require().NoError(err)
	s.True(result.Verified)
	s.Equal("dns", result.Method)

	org, err := s.profiles.GetByHandle(context.Background(), "acme")
	s.Require().NoError(err)
	s.True(org.IsVerified())
	s.Equal(profilemodels.MethodDNS, org.VerificationMethod)
}

func (s *DNSSuite) TestWrongHandleReportsExpectedVsFound() {
	// The record proves "acme", not "acme2".
	s.resolver.records["example.com"] = []string{"agentsid-verify=acme"}
	org2 := s.seedOrg("acme2", "example.com", s.caller.ProfileID)

	result, err := s.verifier.Verify(context.Background(), s.caller, "acme2")
	s.Require().NoError(err)
	s.False(result.Verified)
	s.Equal("agentsid-verify=acme2", result.ExpectedRecord)
	s.Equal([]string{"agentsid-verify=acme"}, result.FoundRecords)

	fresh, err := s.profiles.GetByID(context.Background(), org2.ID)
	s.Require().NoError(err)
	s.False(fresh.IsVerified())
}

func (s *DNSSuite) TestResolverErrorReportsUnverified() {
	s.resolver.err = errors.New("NXDOMAIN")

	result, err := s.verifier.Verify(context.Background(), s.caller, "acme")
	s.Require().NoError(err, "resolver faults are guidance, not 5xx")
	s.False(result.Verified)
	s.Equal("agentsid-verify=acme", result.ExpectedRecord)
	s.NotEmpty(result.Hint)
}

func (s *DNSSuite) TestFoundRecordsPreviewIsBounded() {
	var records []string
	for i := 0; i < foundRecordsPreview+5; i++ {
		records = append(records, fmt.Sprintf("unrelated-record-%d", i))
	}
	s.resolver.records["example.com"] = records

	result, err := s.verifier.Verify(context.Background(), s.caller, "acme")
	s.Require().NoError(err)
	s.False(result.Verified)
	s.Len(result.FoundRecords, foundRecordsPreview)
}

func (s *DNSSuite) TestReverificationIsIdempotent() {
	s.resolver.records["example.com"] = []string{"agentsid-verify=acme"}

	for i := 0; i < 2; i++ {
		result, err := s.verifier.Verify(context.Background(), s.caller, "acme")
		s.Require().NoError(err)
		s.True(result.Verified)
	}
}

func (s *DNSSuite) TestAuthorizationPrecedesVerification() {
	s.resolver.records["example.com"] = []string{"agentsid-verify=acme"}

	stranger := requestcontext.Session{
		ProfileID:  id.NewProfileID(),
		EntityType: string(profilemodels.EntityHuman),
	}
	_, err := s.verifier.Verify(context.Background(), stranger, "acme")
	s.Equal(dErrors.CodeForbidden, dErrors.CodeOf(err))
}

func (s *DNSSuite) TestOrgWithoutDomain() {
	org := &profilemodels.Profile{
		ID:         id.NewProfileID(),
		EntityType: profilemodels.EntityOrg,
		Handle:     "nodomain",
	}
	s.Require().NoError(s.profiles.Create(context.Background(), org))
	s.Require().NoError(s.affiliations.Create(context.Background(), &affiliationmodels.Affiliation{
		ID:                id.NewAffiliationID(),
		ParentID:          org.ID,
		ChildID:           s.caller.ProfileID,
		Status:            affiliationmodels.StatusActive,
		ConfirmedByParent: true,
		ConfirmedByChild:  true,
	}))

	_, err := s.verifier.Verify(context.Background(), s.caller, "nodomain")
	s.Equal(dErrors.CodeBadRequest, dErrors.CodeOf(err))
}
