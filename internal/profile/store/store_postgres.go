package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"agentsid/internal/profile/models"
	id "agentsid/pkg/domain"
	"agentsid/pkg/platform/sentinel"
)

// PostgresStore persists profiles in PostgreSQL. Handle uniqueness is
// enforced by a unique index on lower(handle); this store is pure I/O and
// maps constraint violations to sentinel errors for the service layer.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const profileColumns = `
	id, entity_type, handle, display_name, headline, bio, avatar_url, skills,
	verification_status, verification_method, verified_at,
	platform, model, operator, website,
	email, linkedin_id, linkedin_url, domain,
	tier, endorsement_count, given_count,
	is_available, rate_summary,
	created_at, updated_at, last_active
`

func (s *PostgresStore) Create(ctx context.Context, p *models.Profile) error {
	query := `
		INSERT INTO profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID.String(), p.EntityType, p.Handle, p.DisplayName, p.Headline, p.Bio,
		p.AvatarURL, pq.Array(p.Skills),
		p.VerificationStatus, p.VerificationMethod, p.VerifiedAt,
		p.Platform, p.Model, p.Operator, p.Website,
		p.Email, p.LinkedInID, p.LinkedInURL, p.Domain,
		p.Tier, p.EndorsementCount, p.GivenCount,
		p.IsAvailable, p.RateSummary,
		p.CreatedAt, p.UpdatedAt, p.LastActive,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, p *models.Profile) error {
	query := `
		UPDATE profiles SET
			entity_type = $2, handle = $3, display_name = $4, headline = $5,
			bio = $6, avatar_url = $7, skills = $8,
			verification_status = $9, verification_method = $10, verified_at = $11,
			platform = $12, model = $13, operator = $14, website = $15,
			email = $16, linkedin_id = $17, linkedin_url = $18, domain = $19,
			tier = $20, endorsement_count = $21, given_count = $22,
			is_available = $23, rate_summary = $24,
			updated_at = $25, last_active = $26
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		p.ID.String(), p.EntityType, p.Handle, p.DisplayName, p.Headline,
		p.Bio, p.AvatarURL, pq.Array(p.Skills),
		p.VerificationStatus, p.VerificationMethod, p.VerifiedAt,
		p.Platform, p.Model, p.Operator, p.Website,
		p.Email, p.LinkedInID, p.LinkedInURL, p.Domain,
		p.Tier, p.EndorsementCount, p.GivenCount,
		p.IsAvailable, p.RateSummary,
		p.UpdatedAt, p.LastActive,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, profileID id.ProfileID) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	return scanProfile(s.db.QueryRowContext(ctx, query, profileID.String()))
}

func (s *PostgresStore) GetByHandle(ctx context.Context, handle string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE lower(handle) = lower($1)`
	return scanProfile(s.db.QueryRowContext(ctx, query, handle))
}

func (s *PostgresStore) GetByLinkedInID(ctx context.Context, linkedInID string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE linkedin_id = $1 AND linkedin_id <> ''`
	return scanProfile(s.db.QueryRowContext(ctx, query, linkedInID))
}

func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter) (*models.ListResult, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.EntityType != "" {
		conds = append(conds, "entity_type = "+arg(filter.EntityType))
	}
	if filter.Tier != "" {
		conds = append(conds, "tier = "+arg(filter.Tier))
	}
	if filter.Available {
		conds = append(conds, "is_available = TRUE")
	}
	if filter.Skill != "" {
		conds = append(conds, arg(strings.ToLower(filter.Skill))+" = ANY(skills)")
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf(
			"(display_name ILIKE %s OR handle ILIKE %s OR headline ILIKE %s)", p, p, p))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM profiles"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count profiles: %w", err)
	}

	order := " ORDER BY created_at DESC"
	switch filter.Sort {
	case "name":
		order = " ORDER BY display_name ASC"
	case "endorsements":
		order = " ORDER BY endorsement_count DESC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := "SELECT " + profileColumns + " FROM profiles" + where + order +
		" LIMIT " + arg(limit) + " OFFSET " + arg(filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	return &models.ListResult{Profiles: profiles, Total: total}, nil
}

func (s *PostgresStore) IncrementCounters(ctx context.Context, profileID id.ProfileID, receivedDelta, givenDelta int) error {
	query := `
		UPDATE profiles
		SET endorsement_count = endorsement_count + $2,
		    given_count = given_count + $3,
		    updated_at = now()
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query, profileID.String(), receivedDelta, givenDelta)
	if err != nil {
		return fmt.Errorf("increment counters: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment counters: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateTier(ctx context.Context, profileID id.ProfileID, tier models.Tier) error {
	query := `UPDATE profiles SET tier = $2, updated_at = now() WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query, profileID.String(), tier)
	if err != nil {
		return fmt.Errorf("update tier: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update tier: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	var (
		p     models.Profile
		rawID string
	)
	err := row.Scan(
		&rawID, &p.EntityType, &p.Handle, &p.DisplayName, &p.Headline, &p.Bio,
		&p.AvatarURL, pq.Array(&p.Skills),
		&p.VerificationStatus, &p.VerificationMethod, &p.VerifiedAt,
		&p.Platform, &p.Model, &p.Operator, &p.Website,
		&p.Email, &p.LinkedInID, &p.LinkedInURL, &p.Domain,
		&p.Tier, &p.EndorsementCount, &p.GivenCount,
		&p.IsAvailable, &p.RateSummary,
		&p.CreatedAt, &p.UpdatedAt, &p.LastActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	profileID, err := id.ParseProfileID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	p.ID = profileID
	return &p, nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
