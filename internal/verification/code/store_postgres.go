package code

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"agentsid/internal/verification/models"
	"agentsid/pkg/platform/sentinel"
)

// PostgresStore persists verification codes in PostgreSQL. Supersede and
// insert run in one transaction so two live codes can never coexist for a
// (subject, channel) pair, even under concurrent claim attempts.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Replace(ctx context.Context, c *models.Code) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace code: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE verification_codes
		SET claimed = TRUE
		WHERE lower(subject_handle) = lower($1) AND channel = $2 AND claimed = FALSE
	`, c.SubjectHandle, c.Channel)
	if err != nil {
		return fmt.Errorf("supersede codes: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO verification_codes (code, subject_handle, channel, email, expires_at, claimed, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6)
	`, c.Code, c.SubjectHandle, c.Channel, c.Email, c.ExpiresAt, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert code: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace code: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindLive(ctx context.Context, subject string, channel models.Channel, now time.Time) (*models.Code, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT code, subject_handle, channel, email, expires_at, claimed, created_at
		FROM verification_codes
		WHERE lower(subject_handle) = lower($1)
		  AND channel = $2
		  AND claimed = FALSE
		  AND (expires_at IS NULL OR expires_at > $3)
		ORDER BY created_at DESC
		LIMIT 1
	`, subject, channel, now)

	c, err := scanCode(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *PostgresStore) MarkClaimed(ctx context.Context, codeValue string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE verification_codes SET claimed = TRUE
		WHERE code = $1 AND claimed = FALSE
	`, codeValue)
	if err != nil {
		return fmt.Errorf("mark code claimed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark code claimed: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM verification_codes WHERE code = $1)`,
			codeValue,
		).Scan(&exists); err != nil {
			return fmt.Errorf("mark code claimed: %w", err)
		}
		if exists {
			return sentinel.ErrAlreadyUsed
		}
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CountIssuedSince(ctx context.Context, subject string, channel models.Channel, cutoff time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM verification_codes
		WHERE lower(subject_handle) = lower($1) AND channel = $2 AND created_at > $3
	`, subject, channel, cutoff).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count issued codes: %w", err)
	}
	return count, nil
}

func scanCode(row *sql.Row) (*models.Code, error) {
	var c models.Code
	err := row.Scan(&c.Code, &c.SubjectHandle, &c.Channel, &c.Email, &c.ExpiresAt, &c.Claimed, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
