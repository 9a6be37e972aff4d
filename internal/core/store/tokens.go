package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmail/domaincheck/internal/core"
	"github.com/jmail/domaincheck/internal/metrics"
)

const upsertTokenSQL = `INSERT INTO oauth_tokens (
		user_email, access_token, refresh_token, expiry_date, scope,
		token_type, user_name, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_email) DO UPDATE SET
		access_token = excluded.access_token,
		refresh_token = CASE
			WHEN excluded.refresh_token = '' THEN oauth_tokens.refresh_token
			ELSE excluded.refresh_token
		END,
		expiry_date = excluded.expiry_date,
		scope = excluded.scope,
		token_type = excluded.token_type,
		user_name = excluded.user_name,
		updated_at = excluded.updated_at`

const selectTokenColumns = `SELECT user_email, access_token, refresh_token, expiry_date,
		scope, token_type, user_name, created_at, updated_at FROM oauth_tokens`

// UpsertToken inserts or merges a token record.
func (s *Store) UpsertToken(ctx context.Context, rec core.TokenRecord) (core.TokenRecord, error) {
	if s == nil || s.DB == nil {
		return core.TokenRecord{}, errors.New("store is not initialized")
	}

	email, err := normalizeEmail(rec.UserEmail)
	if err != nil {
		return core.TokenRecord{}, err
	}
	rec.UserEmail = email

	stamp := core.FormatTimestamp(s.now())
	if rec.CreatedAt == "" {
		rec.CreatedAt = stamp
	}
	rec.UpdatedAt = stamp

	_, err = s.DB.ExecContext(ctx, upsertTokenSQL,
		rec.UserEmail, rec.AccessToken, rec.RefreshToken, rec.ExpiryDate, rec.Scope,
		rec.TokenType, rec.UserName, rec.CreatedAt, rec.UpdatedAt,
	)
	metrics.RecordTokenWrite(s.driver, err == nil)
	if err != nil {
		return core.TokenRecord{}, fmt.Errorf("upsert token for %s: %w", email, err)
	}

	return s.GetToken(ctx, email)
}

// GetToken returns the record stored for email or ErrNotFound.
func (s *Store) GetToken(ctx context.Context, email string) (core.TokenRecord, error) {
	if s == nil || s.DB == nil {
		return core.TokenRecord{}, errors.New("store is not initialized")
	}

	email, err := normalizeEmail(email)
	if err != nil {
		return core.TokenRecord{}, err
	}

	row := s.DB.QueryRowContext(ctx, selectTokenColumns+` WHERE user_email = ?`, email)
	rec, err := scanToken(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.TokenRecord{}, ErrNotFound
	}
	if err != nil {
		return core.TokenRecord{}, fmt.Errorf("load token for %s: %w", email, err)
	}
	return rec, nil
}

// ListTokens returns every record ordered by email.
func (s *Store) ListTokens(ctx context.Context) ([]core.TokenRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	rows, err := s.DB.QueryContext(ctx, selectTokenColumns+` ORDER BY user_email`)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var out []core.TokenRecord
	for rows.Next() {
		rec, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner) (core.TokenRecord, error) {
	var rec core.TokenRecord
	err := row.Scan(
		&rec.UserEmail, &rec.AccessToken, &rec.RefreshToken, &rec.ExpiryDate,
		&rec.Scope, &rec.TokenType, &rec.UserName, &rec.CreatedAt, &rec.UpdatedAt,
	)
	return rec, err
}
