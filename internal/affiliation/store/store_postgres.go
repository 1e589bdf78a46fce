package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"agentsid/internal/affiliation/models"
	id "agentsid/pkg/domain"
	"agentsid/pkg/platform/sentinel"
)

// PostgresStore persists affiliations in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const affiliationColumns = `id, parent_id, child_id, type, status, role,
	confirmed_by_parent, confirmed_by_child, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, a *models.Affiliation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO affiliations (id, parent_id, child_id, type, status, role,
			confirmed_by_parent, confirmed_by_child, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, a.ID.String(), a.ParentID.String(), a.ChildID.String(), a.Type, a.Status,
		a.Role, a.ConfirmedByParent, a.ConfirmedByChild, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert affiliation: %w", err)
	}
	return nil
}

func (s *PostgresStore) ActiveAffiliation(ctx context.Context, parent, child id.ProfileID) (*models.Affiliation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+affiliationColumns+`
		FROM affiliations
		WHERE parent_id = $1 AND child_id = $2
		  AND status = 'active'
		  AND confirmed_by_parent AND confirmed_by_child
		LIMIT 1
	`, parent.String(), child.String())

	a, err := scanAffiliation(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (s *PostgresStore) ListForProfile(ctx context.Context, profileID id.ProfileID) ([]*models.Affiliation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+affiliationColumns+`
		FROM affiliations
		WHERE parent_id = $1 OR child_id = $1
		ORDER BY created_at DESC
	`, profileID.String())
	if err != nil {
		return nil, fmt.Errorf("list affiliations: %w", err)
	}
	defer rows.Close()

	var out []*models.Affiliation
	for rows.Next() {
		a, err := scanAffiliation(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate affiliations: %w", err)
	}
	return out, nil
}

func scanAffiliation(scan func(...any) error) (*models.Affiliation, error) {
	var (
		a         models.Affiliation
		rawID     string
		rawParent string
		rawChild  string
	)
	err := scan(&rawID, &rawParent, &rawChild, &a.Type, &a.Status, &a.Role,
		&a.ConfirmedByParent, &a.ConfirmedByChild, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if a.ID, err = id.ParseAffiliationID(rawID); err != nil {
		return nil, fmt.Errorf("parse affiliation id: %w", err)
	}
	if a.ParentID, err = id.ParseProfileID(rawParent); err != nil {
		return nil, fmt.Errorf("parse profile id: %w", err)
	}
	if a.ChildID, err = id.ParseProfileID(rawChild); err != nil {
		return nil, fmt.Errorf("parse profile id: %w", err)
	}
	return &a, nil
}
