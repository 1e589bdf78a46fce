//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"agentsid/internal/profile/models"
	"agentsid/internal/profile/store"
	id "agentsid/pkg/domain"
	"agentsid/pkg/platform/sentinel"
	"agentsid/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.pg = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.pg.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateAll(context.Background()))
}

func makeProfile(handle string) *models.Profile {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Profile{
		ID:                 id.NewProfileID(),
		EntityType:         models.EntityAgent,
		Handle:             handle,
		DisplayName:        "Test " + handle,
		Skills:             []string{"coding", "research"},
		VerificationStatus: models.StatusUnverified,
		VerificationMethod: models.MethodNone,
		Tier:               models.TierNew,
		CreatedAt:          now,
		UpdatedAt:          now,
		LastActive:         now,
	}
}

func (s *PostgresStoreSuite) TestCreateAndGetByID() {
	ctx := context.Background()
	p := makeProfile("clara")
	verifiedAt := time.Now().UTC().Truncate(time.Microsecond)
	p.VerificationStatus = models.StatusVerified
	p.VerificationMethod = models.MethodSocialPost
	p.VerifiedAt = &verifiedAt
	p.Platform = "moltbook"
	p.Model = "gpt-5"

	s.Require().NoError(s.store.Create(ctx, p))

	got, err := s.store.GetByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.ID, got.ID)
	s.Equal("clara", got.Handle)
	s.Equal([]string{"coding", "research"}, got.Skills)
	s.Equal(models.MethodSocialPost, got.VerificationMethod)
	s.Require().NotNil(got.VerifiedAt)
	s.WithinDuration(verifiedAt, *got.VerifiedAt, time.Millisecond)
	s.Equal("moltbook", got.Platform)
}

func (s *PostgresStoreSuite) TestGetByHandleIsCaseInsensitive() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, makeProfile("clara")))

	got, err := s.store.GetByHandle(ctx, "CLARA")
	s.Require().NoError(err)
	s.Equal("clara", got.Handle)
}

func (s *PostgresStoreSuite) TestDuplicateHandleConflicts() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, makeProfile("clara")))

	dup := makeProfile("Clara")
	err := s.store.Create(ctx, dup)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestGetByLinkedInID() {
	ctx := context.Background()
	p := makeProfile("jane")
	p.EntityType = models.EntityHuman
	p.LinkedInID = "li-subject-1"
	s.Require().NoError(s.store.Create(ctx, p))

	got, err := s.store.GetByLinkedInID(ctx, "li-subject-1")
	s.Require().NoError(err)
	s.Equal(p.ID, got.ID)

	// An empty linkedin_id never matches, even when rows carry one.
	_, err = s.store.GetByLinkedInID(ctx, "")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestGetMissingReturnsNotFound() {
	_, err := s.store.GetByID(context.Background(), id.NewProfileID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdate() {
	ctx := context.Background()
	p := makeProfile("clara")
	s.Require().NoError(s.store.Create(ctx, p))

	p.Headline = "distributed systems"
	p.Skills = []string{"go"}
	p.IsAvailable = true
	s.Require().NoError(s.store.Update(ctx, p))

	got, err := s.store.GetByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal("distributed systems", got.Headline)
	s.Equal([]string{"go"}, got.Skills)
	s.True(got.IsAvailable)
}

func (s *PostgresStoreSuite) TestUpdateMissingReturnsNotFound() {
	err := s.store.Update(context.Background(), makeProfile("ghost"))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestCountersAndTier() {
	ctx := context.Background()
	p := makeProfile("clara")
	s.Require().NoError(s.store.Create(ctx, p))

	s.Require().NoError(s.store.IncrementCounters(ctx, p.ID, 1, 0))
	s.Require().NoError(s.store.IncrementCounters(ctx, p.ID, 1, 2))
	s.Require().NoError(s.store.UpdateTier(ctx, p.ID, models.TierActive))

	got, err := s.store.GetByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(2, got.EndorsementCount)
	s.Equal(2, got.GivenCount)
	s.Equal(models.TierActive, got.Tier)
}

func (s *PostgresStoreSuite) TestListFilters() {
	ctx := context.Background()

	agent := makeProfile("agent-one")
	agent.IsAvailable = true
	s.Require().NoError(s.store.Create(ctx, agent))

	human := makeProfile("jane")
	human.EntityType = models.EntityHuman
	human.Skills = []string{"design"}
	s.Require().NoError(s.store.Create(ctx, human))

	byType, err := s.store.List(ctx, models.ListFilter{EntityType: models.EntityHuman})
	s.Require().NoError(err)
	s.Require().Len(byType.Profiles, 1)
	s.Equal("jane", byType.Profiles[0].Handle)
	s.Equal(1, byType.Total)

	bySkill, err := s.store.List(ctx, models.ListFilter{Skill: "Design"})
	s.Require().NoError(err)
	s.Require().Len(bySkill.Profiles, 1)
	s.Equal("jane", bySkill.Profiles[0].Handle)

	available, err := s.store.List(ctx, models.ListFilter{Available: true})
	s.Require().NoError(err)
	s.Require().Len(available.Profiles, 1)
	s.Equal("agent-one", available.Profiles[0].Handle)

	search, err := s.store.List(ctx, models.ListFilter{Search: "agent"})
	s.Require().NoError(err)
	s.Require().Len(search.Profiles, 1)
	s.Equal("agent-one", search.Profiles[0].Handle)
}

func (s *PostgresStoreSuite) TestListPagination() {
	ctx := context.Background()
	for _, h := range []string{"a1", "a2", "a3"} {
		s.Require().NoError(s.store.Create(ctx, makeProfile(h)))
	}

	page, err := s.store.List(ctx, models.ListFilter{Limit: 2})
	s.Require().NoError(err)
	s.Len(page.Profiles, 2)
	s.Equal(3, page.Total)

	rest, err := s.store.List(ctx, models.ListFilter{Limit: 2, Offset: 2})
	s.Require().NoError(err)
	s.Len(rest.Profiles, 1)
	s.Equal(3, rest.Total)
}
