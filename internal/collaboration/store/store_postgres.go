package store

import (
	"context"
	"database/sql"
	"fmt"

	"agentsid/internal/collaboration/models"
	id "agentsid/pkg/domain"
)

// PostgresStore persists collaborations in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Collaboration) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collaborations (id, profile_a, profile_b, source, context, external_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID.String(), c.ProfileA.String(), c.ProfileB.String(), c.Source, c.Context, c.ExternalRef, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert collaboration: %w", err)
	}
	return nil
}

func (s *PostgresStore) Exists(ctx context.Context, a, b id.ProfileID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM collaborations
			WHERE (profile_a = $1 AND profile_b = $2)
			   OR (profile_a = $2 AND profile_b = $1)
		)
	`, a.String(), b.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check collaboration exists: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ListForProfile(ctx context.Context, profileID id.ProfileID, limit int) ([]*models.Collaboration, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, profile_a, profile_b, source, context, external_ref, created_at
		FROM collaborations
		WHERE profile_a = $1 OR profile_b = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, profileID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("list collaborations: %w", err)
	}
	defer rows.Close()

	var out []*models.Collaboration
	for rows.Next() {
		var (
			c     models.Collaboration
			rawID string
			rawA  string
			rawB  string
		)
		if err := rows.Scan(&rawID, &rawA, &rawB, &c.Source, &c.Context, &c.ExternalRef, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan collaboration: %w", err)
		}
		if c.ID, err = id.ParseCollaborationID(rawID); err != nil {
			return nil, fmt.Errorf("parse collaboration id: %w", err)
		}
		if c.ProfileA, err = id.ParseProfileID(rawA); err != nil {
			return nil, fmt.Errorf("parse profile id: %w", err)
		}
		if c.ProfileB, err = id.ParseProfileID(rawB); err != nil {
			return nil, fmt.Errorf("parse profile id: %w", err)
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collaborations: %w", err)
	}
	return out, nil
}
