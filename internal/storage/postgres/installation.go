package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	itypes "github.com/buidl-renaissance/appblocks/internal/types"
)

const connectorInstallationColumns = `id, app_block_id, connector_id, granted_scopes, auth_type, status, last_used_at, expires_at, created_at, updated_at`
const appBlockInstallationColumns = `id, consumer_id, provider_id, granted_scopes, auth_type, status, approved_at, last_used_at, expires_at, created_at, updated_at`

// UpsertConnectorInstallation converges concurrent installs for the same
// (app block, connector) pair onto a single live row. The conflict target is
// the partial unique index over live statuses, so terminal rows stay behind
// as history and a fresh install creates a new row.
func (p *PostgresBackend) UpsertConnectorInstallation(ctx context.Context, inst itypes.ConnectorInstallation) (*itypes.ConnectorInstallation, error) {
	query := `
		INSERT INTO connector_installations (
			id, app_block_id, connector_id, granted_scopes, auth_type, status, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (app_block_id, connector_id) WHERE status IN ('pending', 'active', 'error')
		DO UPDATE SET
			granted_scopes = EXCLUDED.granted_scopes,
			auth_type = EXCLUDED.auth_type,
			status = EXCLUDED.status,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
		RETURNING ` + connectorInstallationColumns

	if inst.ID == uuid.Nil {
		inst.ID = uuid.New()
	}

	row := p.pool.QueryRow(ctx, query,
		inst.ID,
		inst.AppBlockID,
		inst.ConnectorID,
		inst.GrantedScopes.Serialize(),
		inst.AuthType,
		inst.Status,
		inst.ExpiresAt,
	)
	created, err := scanConnectorInstallation(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert connector installation: %w", err)
	}
	return created, nil
}

func (p *PostgresBackend) GetConnectorInstallation(ctx context.Context, id uuid.UUID) (*itypes.ConnectorInstallation, error) {
	query := `SELECT ` + connectorInstallationColumns + ` FROM connector_installations WHERE id = $1`

	inst, err := scanConnectorInstallation(p.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get connector installation: %w", err)
	}
	return inst, nil
}

func (p *PostgresBackend) FindConnectorInstallations(ctx context.Context, appBlockID uuid.UUID) ([]itypes.ConnectorInstallation, error) {
	query := `SELECT ` + connectorInstallationColumns + `
		FROM connector_installations
		WHERE app_block_id = $1
		ORDER BY created_at DESC`

	rows, err := p.pool.Query(ctx, query, appBlockID)
	if err != nil {
		return nil, fmt.Errorf("failed to query connector installations: %w", err)
	}
	defer rows.Close()

	var installations []itypes.ConnectorInstallation
	for rows.Next() {
		inst, err := scanConnectorInstallation(rows)
		if err != nil {
			return nil, err
		}
		installations = append(installations, *inst)
	}
	return installations, rows.Err()
}

func (p *PostgresBackend) UpdateConnectorInstallationStatus(ctx context.Context, id uuid.UUID, status itypes.InstallationStatus) error {
	query := `
		UPDATE connector_installations
		SET status = $2, updated_at = NOW()
		WHERE id = $1`

	_, err := p.pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update connector installation status: %w", err)
	}
	return nil
}

func (p *PostgresBackend) TouchConnectorInstallation(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE connector_installations
		SET last_used_at = NOW(), updated_at = NOW()
		WHERE id = $1`

	_, err := p.pool.Exec(ctx, query, id)
	return err
}

func (p *PostgresBackend) UpsertAppBlockInstallation(ctx context.Context, inst itypes.AppBlockInstallation) (*itypes.AppBlockInstallation, error) {
	query := `
		INSERT INTO app_block_installations (
			id, consumer_id, provider_id, granted_scopes, auth_type, status, approved_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (consumer_id, provider_id) WHERE status IN ('pending', 'active', 'error')
		DO UPDATE SET
			granted_scopes = EXCLUDED.granted_scopes,
			auth_type = EXCLUDED.auth_type,
			status = EXCLUDED.status,
			approved_at = EXCLUDED.approved_at,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
		RETURNING ` + appBlockInstallationColumns

	if inst.ID == uuid.Nil {
		inst.ID = uuid.New()
	}

	row := p.pool.QueryRow(ctx, query,
		inst.ID,
		inst.ConsumerID,
		inst.ProviderID,
		inst.GrantedScopes.Serialize(),
		inst.AuthType,
		inst.Status,
		inst.ApprovedAt,
		inst.ExpiresAt,
	)
	created, err := scanAppBlockInstallation(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert app block installation: %w", err)
	}
	return created, nil
}

func (p *PostgresBackend) GetAppBlockInstallation(ctx context.Context, id uuid.UUID) (*itypes.AppBlockInstallation, error) {
	query := `SELECT ` + appBlockInstallationColumns + ` FROM app_block_installations WHERE id = $1`

	inst, err := scanAppBlockInstallation(p.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get app block installation: %w", err)
	}
	return inst, nil
}

func (p *PostgresBackend) FindAppBlockInstallationsByConsumer(ctx context.Context, consumerID uuid.UUID) ([]itypes.AppBlockInstallation, error) {
	return p.findAppBlockInstallations(ctx, `consumer_id`, consumerID)
}

func (p *PostgresBackend) FindAppBlockInstallationsByProvider(ctx context.Context, providerID uuid.UUID) ([]itypes.AppBlockInstallation, error) {
	return p.findAppBlockInstallations(ctx, `provider_id`, providerID)
}

func (p *PostgresBackend) findAppBlockInstallations(ctx context.Context, column string, id uuid.UUID) ([]itypes.AppBlockInstallation, error) {
	query := `SELECT ` + appBlockInstallationColumns + `
		FROM app_block_installations
		WHERE ` + column + ` = $1
		ORDER BY created_at DESC`

	rows, err := p.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query app block installations: %w", err)
	}
	defer rows.Close()

	var installations []itypes.AppBlockInstallation
	for rows.Next() {
		inst, err := scanAppBlockInstallation(rows)
		if err != nil {
			return nil, err
		}
		installations = append(installations, *inst)
	}
	return installations, rows.Err()
}

func (p *PostgresBackend) UpdateAppBlockInstallationStatus(ctx context.Context, id uuid.UUID, status itypes.InstallationStatus, approvedAt *time.Time) error {
	query := `
		UPDATE app_block_installations
		SET status = $2, approved_at = COALESCE($3, approved_at), updated_at = NOW()
		WHERE id = $1`

	_, err := p.pool.Exec(ctx, query, id, status, approvedAt)
	if err != nil {
		return fmt.Errorf("failed to update app block installation status: %w", err)
	}
	return nil
}

func (p *PostgresBackend) TouchAppBlockInstallation(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE app_block_installations
		SET last_used_at = NOW(), updated_at = NOW()
		WHERE id = $1`

	_, err := p.pool.Exec(ctx, query, id)
	return err
}

func (p *PostgresBackend) SetProviderInstallationsStatus(ctx context.Context, providerID uuid.UUID, from itypes.InstallationStatus, to itypes.InstallationStatus) (int64, error) {
	query := `
		UPDATE app_block_installations
		SET status = $3, updated_at = NOW()
		WHERE provider_id = $1 AND status = $2`

	tag, err := p.pool.Exec(ctx, query, providerID, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to update provider installations: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RevokeInstallationsForAppBlockTx revokes every live installation where the
// app block is consumer or provider, on both the connector and app-block
// tables. Rows are kept for the audit trail.
func (p *PostgresBackend) RevokeInstallationsForAppBlockTx(ctx context.Context, dbTx pgx.Tx, appBlockID uuid.UUID) (int64, error) {
	var total int64

	tag, err := dbTx.Exec(ctx, `
		UPDATE connector_installations
		SET status = 'revoked', updated_at = NOW()
		WHERE app_block_id = $1 AND status IN ('pending', 'active', 'error')`, appBlockID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke connector installations: %w", err)
	}
	total += tag.RowsAffected()

	tag, err = dbTx.Exec(ctx, `
		UPDATE app_block_installations
		SET status = 'revoked', updated_at = NOW()
		WHERE (consumer_id = $1 OR provider_id = $1) AND status IN ('pending', 'active', 'error')`, appBlockID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke app block installations: %w", err)
	}
	total += tag.RowsAffected()

	return total, nil
}

func (p *PostgresBackend) ExpireOverdueInstallations(ctx context.Context, now time.Time) (int64, error) {
	var total int64

	tag, err := p.pool.Exec(ctx, `
		UPDATE connector_installations
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'active' AND expires_at IS NOT NULL AND expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire connector installations: %w", err)
	}
	total += tag.RowsAffected()

	tag, err = p.pool.Exec(ctx, `
		UPDATE app_block_installations
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'active' AND expires_at IS NOT NULL AND expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire app block installations: %w", err)
	}
	total += tag.RowsAffected()

	return total, nil
}

func scanConnectorInstallation(row pgx.Row) (*itypes.ConnectorInstallation, error) {
	var inst itypes.ConnectorInstallation
	var scopesRaw string
	err := row.Scan(
		&inst.ID,
		&inst.AppBlockID,
		&inst.ConnectorID,
		&scopesRaw,
		&inst.AuthType,
		&inst.Status,
		&inst.LastUsedAt,
		&inst.ExpiresAt,
		&inst.CreatedAt,
		&inst.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inst.GrantedScopes = itypes.ParseStringList(scopesRaw)
	return &inst, nil
}

func scanAppBlockInstallation(row pgx.Row) (*itypes.AppBlockInstallation, error) {
	var inst itypes.AppBlockInstallation
	var scopesRaw string
	err := row.Scan(
		&inst.ID,
		&inst.ConsumerID,
		&inst.ProviderID,
		&scopesRaw,
		&inst.AuthType,
		&inst.Status,
		&inst.ApprovedAt,
		&inst.LastUsedAt,
		&inst.ExpiresAt,
		&inst.CreatedAt,
		&inst.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inst.GrantedScopes = itypes.ParseStringList(scopesRaw)
	return &inst, nil
}
