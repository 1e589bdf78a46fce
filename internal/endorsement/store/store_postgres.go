package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"agentsid/internal/endorsement/models"
	id "agentsid/pkg/domain"
	"agentsid/pkg/platform/sentinel"
)

// PostgresStore persists endorsements in PostgreSQL. The table carries a
// unique index on (from_id, to_id, skill) which backs duplicate detection.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, e *models.Endorsement) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO endorsements (id, from_id, to_id, skill, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID.String(), e.FromID.String(), e.ToID.String(), e.Skill, e.Note, e.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert endorsement: %w", err)
	}
	return nil
}

func (s *PostgresStore) Exists(ctx context.Context, from, to id.ProfileID, skill string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM endorsements WHERE from_id = $1 AND to_id = $2 AND skill = $3
		)
	`, from.String(), to.String(), skill).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check endorsement exists: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ListReceived(ctx context.Context, profileID id.ProfileID, limit int) ([]*models.Endorsement, error) {
	return s.list(ctx, "to_id", profileID, limit)
}

func (s *PostgresStore) ListGiven(ctx context.Context, profileID id.ProfileID, limit int) ([]*models.Endorsement, error) {
	return s.list(ctx, "from_id", profileID, limit)
}

func (s *PostgresStore) CountReceived(ctx context.Context, profileID id.ProfileID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM endorsements WHERE to_id = $1`,
		profileID.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count endorsements: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) list(ctx context.Context, column string, profileID id.ProfileID, limit int) ([]*models.Endorsement, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
		SELECT id, from_id, to_id, skill, note, created_at
		FROM endorsements
		WHERE %s = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, column)

	rows, err := s.db.QueryContext(ctx, query, profileID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("list endorsements: %w", err)
	}
	defer rows.Close()

	var out []*models.Endorsement
	for rows.Next() {
		var (
			e       models.Endorsement
			rawID   string
			rawFrom string
			rawTo   string
		)
		if err := rows.Scan(&rawID, &rawFrom, &rawTo, &e.Skill, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan endorsement: %w", err)
		}
		if e.ID, err = id.ParseEndorsementID(rawID); err != nil {
			return nil, fmt.Errorf("parse endorsement id: %w", err)
		}
		if e.FromID, err = id.ParseProfileID(rawFrom); err != nil {
			return nil, fmt.Errorf("parse profile id: %w", err)
		}
		if e.ToID, err = id.ParseProfileID(rawTo); err != nil {
			return nil, fmt.Errorf("parse profile id: %w", err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate endorsements: %w", err)
	}
	return out, nil
}
