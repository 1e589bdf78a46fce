package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	collabmodels "agentsid/internal/collaboration/models"
	collabstore "agentsid/internal/collaboration/store"
	"agentsid/internal/endorsement/handler"
	"agentsid/internal/endorsement/models"
	"agentsid/internal/endorsement/service"
	endorsementstore "agentsid/internal/endorsement/store"
	profilemodels "agentsid/internal/profile/models"
	profilestore "agentsid/internal/profile/store"
	"agentsid/internal/reputation"
	id "agentsid/pkg/domain"
	"agentsid/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	router   chi.Router
	profiles *profilestore.MemoryStore
	collabs  *collabstore.MemoryStore

	alice *profilemodels.Profile
	bob   *profilemodels.Profile
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.profiles = profilestore.NewMemory()
	s.collabs = collabstore.NewMemory()
	endorsements := endorsementstore.NewMemory()

	engine, err := reputation.NewEngine(endorsements, s.profiles)
	s.Require().NoError(err)
	svc, err := service.New(endorsements, s.profiles, s.collabs, engine)
	s.Require().NoError(err)

	s.router = chi.NewRouter()
	handler.New(svc).Register(s.router)

	s.alice = s.createVerified("alice")
	s.bob = s.createVerified("bob")
	s.recordCollab(s.alice.ID, s.bob.ID)
}

func (s *HandlerSuite) createVerified(handle string) *profilemodels.Profile {
	now := time.Now()
	p := &profilemodels.Profile{
		ID:                 id.NewProfileID(),
		EntityType:         profilemodels.EntityAgent,
		Handle:             handle,
		DisplayName:        handle,
		VerificationStatus: profilemodels.StatusVerified,
		VerificationMethod: profilemodels.MethodSocialPost,
		Tier:               profilemodels.TierNew,
		CreatedAt:          now,
		UpdatedAt:          now,
		LastActive:         now,
	}
	s.Require().NoError(s.profiles.Create(context.Background(), p))
	return p
}

func (s *HandlerSuite) recordCollab(a, b id.ProfileID) {
	s.Require().NoError(s.collabs.Create(context.Background(), &collabmodels.Collaboration{
		ID:        id.NewCollaborationID(),
		ProfileA:  a,
		ProfileB:  b,
		Source:    collabmodels.SourceExternalPost,
		CreatedAt: time.Now(),
	}))
}

func (s *HandlerSuite) TestCreateRequiresSession() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/endorsements", map[string]string{
		"to_handle": "bob",
		"skill":     "coding",
	})
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	testutil.AssertErrorCode(s.T(), rr, "unauthorized")
}

func (s *HandlerSuite) TestCreate() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/endorsements", map[string]string{
		"to_handle": "bob",
		"skill":     "Coding",
		"note":      "great collaborator",
	})
	req = testutil.WithSession(req, s.alice.ID, "agent", "alice")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	got := testutil.UnmarshalResponse[models.Endorsement](s.T(), rr)
	s.Equal("coding", got.Skill)
	s.Equal(s.alice.ID, got.FromID)
	s.Equal(s.bob.ID, got.ToID)
	s.Equal("great collaborator", got.Note)
}

func (s *HandlerSuite) TestCreateDuplicateConflicts() {
	body := map[string]string{"to_handle": "bob", "skill": "coding"}

	req := testutil.WithSession(
		testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/endorsements", body),
		s.alice.ID, "agent", "alice")
	testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusCreated)

	req = testutil.WithSession(
		testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/endorsements", body),
		s.alice.ID, "agent", "alice")
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusConflict)
	testutil.AssertErrorCode(s.T(), rr, "conflict")
}

func (s *HandlerSuite) TestCreateWithoutCollaborationForbidden() {
	s.createVerified("mallory")

	req := testutil.WithSession(
		testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/endorsements", map[string]string{
			"to_handle": "mallory",
			"skill":     "coding",
		}),
		s.alice.ID, "agent", "alice")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
	testutil.AssertErrorCode(s.T(), rr, "forbidden")
}

func (s *HandlerSuite) TestList() {
	req := testutil.WithSession(
		testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/endorsements", map[string]string{
			"to_handle": "bob",
			"skill":     "coding",
		}),
		s.alice.ID, "agent", "alice")
	testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusCreated)

	rr := testutil.DoRequest(s.router,
		testutil.NewRequest(s.T(), http.MethodGet, "/api/endorsements?handle=bob"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	got := testutil.UnmarshalResponse[struct {
		Endorsements []*models.Endorsement `json:"endorsements"`
	}](s.T(), rr)
	s.Require().Len(got.Endorsements, 1)
	s.Equal("coding", got.Endorsements[0].Skill)

	rr = testutil.DoRequest(s.router,
		testutil.NewRequest(s.T(), http.MethodGet, "/api/endorsements?handle=bob&direction=given"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	given := testutil.UnmarshalResponse[struct {
		Endorsements []*models.Endorsement `json:"endorsements"`
	}](s.T(), rr)
	s.Empty(given.Endorsements)
}

func (s *HandlerSuite) TestListUnknownHandle() {
	rr := testutil.DoRequest(s.router,
		testutil.NewRequest(s.T(), http.MethodGet, "/api/endorsements?handle=nobody"))
	testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
}
