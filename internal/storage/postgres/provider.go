package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	itypes "github.com/buidl-renaissance/appblocks/internal/types"
)

func (p *PostgresBackend) CreateProviderTx(ctx context.Context, dbTx pgx.Tx, cfg itypes.ProviderConfig) (*itypes.ProviderConfig, error) {
	query := `
		INSERT INTO app_block_providers (
			app_block_id, base_api_url, api_version, auth_methods, rate_limit_per_minute, status
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING app_block_id, base_api_url, api_version, auth_methods, rate_limit_per_minute, status, created_at, updated_at`

	var created itypes.ProviderConfig
	var authMethodsRaw string
	err := dbTx.QueryRow(ctx, query,
		cfg.AppBlockID,
		cfg.BaseAPIURL,
		cfg.APIVersion,
		cfg.AuthMethods.Serialize(),
		cfg.RateLimitPerMinute,
		cfg.Status,
	).Scan(
		&created.AppBlockID,
		&created.BaseAPIURL,
		&created.APIVersion,
		&authMethodsRaw,
		&created.RateLimitPerMinute,
		&created.Status,
		&created.CreatedAt,
		&created.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider config: %w", err)
	}
	created.AuthMethods = itypes.ParseStringList(authMethodsRaw)
	return &created, nil
}

func (p *PostgresBackend) ReplaceProviderScopesTx(ctx context.Context, dbTx pgx.Tx, appBlockID uuid.UUID, scopes []itypes.Scope) error {
	if _, err := dbTx.Exec(ctx, `DELETE FROM provider_scopes WHERE app_block_id = $1`, appBlockID); err != nil {
		return fmt.Errorf("failed to clear provider scopes: %w", err)
	}
	for _, s := range scopes {
		_, err := dbTx.Exec(ctx, `
			INSERT INTO provider_scopes (app_block_id, name, description, required_role, is_public_read)
			VALUES ($1, $2, $3, $4, $5)`,
			appBlockID, s.Name, s.Description, s.RequiredRole, s.IsPublicRead)
		if err != nil {
			return fmt.Errorf("failed to insert provider scope %s: %w", s.Name, err)
		}
	}
	return nil
}

func (p *PostgresBackend) GetProviderConfig(ctx context.Context, appBlockID uuid.UUID) (*itypes.ProviderConfig, error) {
	query := `
		SELECT app_block_id, base_api_url, api_version, auth_methods, rate_limit_per_minute, status, created_at, updated_at
		FROM app_block_providers
		WHERE app_block_id = $1`

	var cfg itypes.ProviderConfig
	var authMethodsRaw string
	err := p.pool.QueryRow(ctx, query, appBlockID).Scan(
		&cfg.AppBlockID,
		&cfg.BaseAPIURL,
		&cfg.APIVersion,
		&authMethodsRaw,
		&cfg.RateLimitPerMinute,
		&cfg.Status,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get provider config: %w", err)
	}
	cfg.AuthMethods = itypes.ParseStringList(authMethodsRaw)
	return &cfg, nil
}

func (p *PostgresBackend) GetProviderScopes(ctx context.Context, appBlockID uuid.UUID) ([]itypes.Scope, error) {
	query := `
		SELECT name, description, required_role, is_public_read
		FROM provider_scopes
		WHERE app_block_id = $1
		ORDER BY name`

	rows, err := p.pool.Query(ctx, query, appBlockID)
	if err != nil {
		return nil, fmt.Errorf("failed to query provider scopes: %w", err)
	}
	defer rows.Close()

	return scanScopes(rows)
}

func (p *PostgresBackend) UpdateProviderConfig(ctx context.Context, appBlockID uuid.UUID, updates itypes.ProviderUpdateDto) (*itypes.ProviderConfig, error) {
	query := `
		UPDATE app_block_providers
		SET base_api_url = COALESCE($2, base_api_url),
			api_version = COALESCE($3, api_version),
			auth_methods = COALESCE($4, auth_methods),
			rate_limit_per_minute = COALESCE($5, rate_limit_per_minute),
			status = COALESCE($6, status),
			updated_at = NOW()
		WHERE app_block_id = $1
		RETURNING app_block_id, base_api_url, api_version, auth_methods, rate_limit_per_minute, status, created_at, updated_at`

	var authMethodsParam *string
	if updates.AuthMethods != nil {
		serialized := itypes.StringList(updates.AuthMethods).Serialize()
		authMethodsParam = &serialized
	}

	var cfg itypes.ProviderConfig
	var authMethodsRaw string
	err := p.pool.QueryRow(ctx, query,
		appBlockID,
		updates.BaseAPIURL,
		updates.APIVersion,
		authMethodsParam,
		updates.RateLimitPerMinute,
		updates.Status,
	).Scan(
		&cfg.AppBlockID,
		&cfg.BaseAPIURL,
		&cfg.APIVersion,
		&authMethodsRaw,
		&cfg.RateLimitPerMinute,
		&cfg.Status,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update provider config: %w", err)
	}
	cfg.AuthMethods = itypes.ParseStringList(authMethodsRaw)
	return &cfg, nil
}

func (p *PostgresBackend) DeleteProviderTx(ctx context.Context, dbTx pgx.Tx, appBlockID uuid.UUID) error {
	if _, err := dbTx.Exec(ctx, `DELETE FROM provider_scopes WHERE app_block_id = $1`, appBlockID); err != nil {
		return fmt.Errorf("failed to delete provider scopes: %w", err)
	}
	if _, err := dbTx.Exec(ctx, `DELETE FROM registry_entries WHERE app_block_id = $1`, appBlockID); err != nil {
		return fmt.Errorf("failed to delete registry entry: %w", err)
	}
	if _, err := dbTx.Exec(ctx, `DELETE FROM app_block_providers WHERE app_block_id = $1`, appBlockID); err != nil {
		return fmt.Errorf("failed to delete provider config: %w", err)
	}
	return nil
}

func (p *PostgresBackend) FindActiveProviders(ctx context.Context) ([]itypes.ProviderConfig, error) {
	query := `
		SELECT app_block_id, base_api_url, api_version, auth_methods, rate_limit_per_minute, status, created_at, updated_at
		FROM app_block_providers
		WHERE status = $1`

	rows, err := p.pool.Query(ctx, query, itypes.ProviderStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to query active providers: %w", err)
	}
	defer rows.Close()

	var configs []itypes.ProviderConfig
	for rows.Next() {
		var cfg itypes.ProviderConfig
		var authMethodsRaw string
		err := rows.Scan(
			&cfg.AppBlockID,
			&cfg.BaseAPIURL,
			&cfg.APIVersion,
			&authMethodsRaw,
			&cfg.RateLimitPerMinute,
			&cfg.Status,
			&cfg.CreatedAt,
			&cfg.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		cfg.AuthMethods = itypes.ParseStringList(authMethodsRaw)
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}
