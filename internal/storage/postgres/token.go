package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	itypes "github.com/buidl-renaissance/appblocks/internal/types"
)

func (p *PostgresBackend) CreateAccessToken(ctx context.Context, token itypes.AccessTokenCreate) (*itypes.AccessToken, error) {
	query := `
		INSERT INTO access_tokens (token_id, user_id, app_block_id, scopes, expires_at, last_used_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, token_id, user_id, app_block_id, scopes, expires_at, last_used_at, created_at, updated_at`

	now := time.Now()
	var created itypes.AccessToken
	var scopesRaw string
	err := p.pool.QueryRow(ctx, query,
		token.TokenID,
		token.UserID,
		token.AppBlockID,
		token.Scopes.Serialize(),
		token.ExpiresAt,
		now,
		now,
		now,
	).Scan(
		&created.ID,
		&created.TokenID,
		&created.UserID,
		&created.AppBlockID,
		&scopesRaw,
		&created.ExpiresAt,
		&created.LastUsedAt,
		&created.CreatedAt,
		&created.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}
	created.Scopes = itypes.ParseStringList(scopesRaw)
	return &created, nil
}

func (p *PostgresBackend) GetAccessToken(ctx context.Context, tokenID string) (*itypes.AccessToken, error) {
	query := `
		SELECT id, token_id, user_id, app_block_id, scopes, expires_at, last_used_at, created_at, updated_at, revoked_at
		FROM access_tokens
		WHERE token_id = $1`

	var token itypes.AccessToken
	var scopesRaw string
	err := p.pool.QueryRow(ctx, query, tokenID).Scan(
		&token.ID,
		&token.TokenID,
		&token.UserID,
		&token.AppBlockID,
		&scopesRaw,
		&token.ExpiresAt,
		&token.LastUsedAt,
		&token.CreatedAt,
		&token.UpdatedAt,
		&token.RevokedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}
	token.Scopes = itypes.ParseStringList(scopesRaw)
	return &token, nil
}

func (p *PostgresBackend) RevokeAccessToken(ctx context.Context, tokenID string) error {
	query := `
		UPDATE access_tokens
		SET revoked_at = $1, updated_at = $1
		WHERE token_id = $2`

	_, err := p.pool.Exec(ctx, query, time.Now(), tokenID)
	return err
}

func (p *PostgresBackend) RevokeAllAccessTokens(ctx context.Context, userID string) error {
	query := `
		UPDATE access_tokens
		SET revoked_at = $1, updated_at = $1
		WHERE user_id = $2`

	_, err := p.pool.Exec(ctx, query, time.Now(), userID)
	return err
}

func (p *PostgresBackend) UpdateAccessTokenLastUsed(ctx context.Context, tokenID string) error {
	query := `
		UPDATE access_tokens
		SET last_used_at = $1, updated_at = $1
		WHERE token_id = $2`

	_, err := p.pool.Exec(ctx, query, time.Now(), tokenID)
	return err
}

func (p *PostgresBackend) GetActiveAccessTokens(ctx context.Context, userID string) ([]itypes.AccessToken, error) {
	query := `
		SELECT id, token_id, user_id, app_block_id, scopes, expires_at, last_used_at, created_at, updated_at, revoked_at
		FROM access_tokens
		WHERE user_id = $1
		AND revoked_at IS NULL
		AND expires_at > $2
		ORDER BY created_at DESC`

	rows, err := p.pool.Query(ctx, query, userID, time.Now())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []itypes.AccessToken
	for rows.Next() {
		var token itypes.AccessToken
		var scopesRaw string
		err := rows.Scan(
			&token.ID,
			&token.TokenID,
			&token.UserID,
			&token.AppBlockID,
			&scopesRaw,
			&token.ExpiresAt,
			&token.LastUsedAt,
			&token.CreatedAt,
			&token.UpdatedAt,
			&token.RevokedAt,
		)
		if err != nil {
			return nil, err
		}
		token.Scopes = itypes.ParseStringList(scopesRaw)
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tokens, nil
}
