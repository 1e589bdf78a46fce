package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	affiliationstore "agentsid/internal/affiliation/store"
	collabmodels "agentsid/internal/collaboration/models"
	collabservice "agentsid/internal/collaboration/service"
	collabstore "agentsid/internal/collaboration/store"
	"agentsid/internal/profile/handler"
	"agentsid/internal/profile/models"
	"agentsid/internal/profile/service"
	profilestore "agentsid/internal/profile/store"
	id "agentsid/pkg/domain"
	"agentsid/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	router   chi.Router
	profiles *profilestore.MemoryStore
	collabs  *collabstore.MemoryStore
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.profiles = profilestore.NewMemory()
	s.collabs = collabstore.NewMemory()

	svc, err := service.New(s.profiles)
	s.Require().NoError(err)
	collabSvc, err := collabservice.New(s.collabs, s.profiles, "test-key")
	s.Require().NoError(err)

	s.router = chi.NewRouter()
	handler.New(svc, affiliationstore.NewMemory(), collabSvc).Register(s.router)
}

func (s *HandlerSuite) createProfile(handle string, entityType models.EntityType) *models.Profile {
	now := time.Now()
	p := &models.Profile{
		ID:                 id.NewProfileID(),
		EntityType:         entityType,
		Handle:             handle,
		DisplayName:        handle,
		Skills:             []string{"coding"},
		VerificationStatus: models.StatusVerified,
		VerificationMethod: models.MethodSocialPost,
		Tier:               models.TierNew,
		CreatedAt:          now,
		UpdatedAt:          now,
		LastActive:         now,
	}
	s.Require().NoError(s.profiles.Create(context.Background(), p))
	return p
}

func (s *HandlerSuite) TestGetByHandle() {
	s.createProfile("clara", models.EntityAgent)

	rr := testutil.DoRequest(s.router,
		testutil.NewRequest(s.T(), http.MethodGet, "/api/profiles/CLARA"))

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	got := testutil.UnmarshalResponse[models.Profile](s.T(), rr)
	s.Equal("clara", got.Handle)
	s.Equal(models.EntityAgent, got.EntityType)
}

func (s *HandlerSuite) TestGetUnknownHandle() {
	rr := testutil.DoRequest(s.router,
		testutil.NewRequest(s.T(), http.MethodGet, "/api/profiles/nobody"))

	testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	testutil.AssertErrorCode(s.T(), rr, "not_found")
}

func (s *HandlerSuite) TestListFilters() {
	s.createProfile("clara", models.EntityAgent)
	s.createProfile("jane", models.EntityHuman)

	rr := testutil.DoRequest(s.router,
		testutil.NewRequest(s.T(), http.MethodGet, "/api/profiles?entity_type=human"))

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	got := testutil.UnmarshalResponse[struct {
		Profiles []*models.Profile `json:"profiles"`
		Total    int               `json:"total"`
	}](s.T(), rr)
	s.Require().Len(got.Profiles, 1)
	s.Equal("jane", got.Profiles[0].Handle)
	s.Equal(1, got.Total)
}

func (s *HandlerSuite) TestListRejectsUnknownEntityType() {
	rr := testutil.DoRequest(s.router,
		testutil.NewRequest(s.T(), http.MethodGet, "/api/profiles?entity_type=robot"))

	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
}

func (s *HandlerSuite) TestMe() {
	p := s.createProfile("clara", models.EntityAgent)

	req := testutil.WithSession(
		testutil.NewRequest(s.T(), http.MethodGet, "/api/me"),
		p.ID, "agent", "clara")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	got := testutil.UnmarshalResponse[models.Profile](s.T(), rr)
	s.Equal(p.ID, got.ID)
}

func (s *HandlerSuite) TestMeRequiresSession() {
	rr := testutil.DoRequest(s.router,
		testutil.NewRequest(s.T(), http.MethodGet, "/api/me"))
	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
}

func (s *HandlerSuite) TestUpdateOwnProfile() {
	p := s.createProfile("clara", models.EntityAgent)

	req := testutil.WithSession(
		testutil.NewJSONRequest(s.T(), http.MethodPatch, "/api/profiles/clara", map[string]any{
			"headline":     "distributed systems",
			"skills":       []string{"Go", "go", " SQL "},
			"is_available": true,
		}),
		p.ID, "agent", "clara")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	got := testutil.UnmarshalResponse[models.Profile](s.T(), rr)
	s.Equal("distributed systems", got.Headline)
	s.Equal([]string{"go", "sql"}, got.Skills)
	s.True(got.IsAvailable)
}

func (s *HandlerSuite) TestUpdateSomeoneElseForbidden() {
	s.createProfile("clara", models.EntityAgent)
	other := s.createProfile("mallory", models.EntityAgent)

	req := testutil.WithSession(
		testutil.NewJSONRequest(s.T(), http.MethodPatch, "/api/profiles/clara", map[string]any{
			"headline": "hijacked",
		}),
		other.ID, "agent", "mallory")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
	testutil.AssertErrorCode(s.T(), rr, "forbidden")
}

func (s *HandlerSuite) TestListCollaborations() {
	a := s.createProfile("clara", models.EntityAgent)
	b := s.createProfile("jane", models.EntityHuman)
	s.Require().NoError(s.collabs.Create(context.Background(), &collabmodels.Collaboration{
		ID:        id.NewCollaborationID(),
		ProfileA:  a.ID,
		ProfileB:  b.ID,
		Source:    collabmodels.SourceThread,
		CreatedAt: time.Now(),
	}))

	rr := testutil.DoRequest(s.router,
		testutil.NewRequest(s.T(), http.MethodGet, "/api/profiles/jane/collaborations"))

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	got := testutil.UnmarshalResponse[struct {
		Collaborations []*collabmodels.Collaboration `json:"collaborations"`
	}](s.T(), rr)
	s.Require().Len(got.Collaborations, 1)
	s.Equal(collabmodels.SourceThread, got.Collaborations[0].Source)
}
