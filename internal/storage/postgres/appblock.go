package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	itypes "github.com/buidl-renaissance/appblocks/internal/types"
)

func (p *PostgresBackend) CreateAppBlock(ctx context.Context, block itypes.AppBlock) (*itypes.AppBlock, error) {
	query := `
		INSERT INTO app_blocks (id, name, owner_id, icon, service_identity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, owner_id, icon, service_identity, created_at, updated_at`

	if block.ID == uuid.Nil {
		block.ID = uuid.New()
	}

	var created itypes.AppBlock
	err := p.pool.QueryRow(ctx, query,
		block.ID,
		block.Name,
		block.OwnerID,
		block.Icon,
		block.ServiceIdentity,
	).Scan(
		&created.ID,
		&created.Name,
		&created.OwnerID,
		&created.Icon,
		&created.ServiceIdentity,
		&created.CreatedAt,
		&created.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create app block: %w", err)
	}
	return &created, nil
}

func (p *PostgresBackend) FindAppBlockById(ctx context.Context, id uuid.UUID) (*itypes.AppBlock, error) {
	query := `
		SELECT id, name, owner_id, icon, service_identity, created_at, updated_at
		FROM app_blocks
		WHERE id = $1`

	var block itypes.AppBlock
	err := p.pool.QueryRow(ctx, query, id).Scan(
		&block.ID,
		&block.Name,
		&block.OwnerID,
		&block.Icon,
		&block.ServiceIdentity,
		&block.CreatedAt,
		&block.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get app block: %w", err)
	}
	return &block, nil
}

func (p *PostgresBackend) FindAppBlocksByOwner(ctx context.Context, ownerID string) ([]itypes.AppBlock, error) {
	query := `
		SELECT id, name, owner_id, icon, service_identity, created_at, updated_at
		FROM app_blocks
		WHERE owner_id = $1
		ORDER BY created_at DESC`

	rows, err := p.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query app blocks: %w", err)
	}
	defer rows.Close()

	var blocks []itypes.AppBlock
	for rows.Next() {
		var block itypes.AppBlock
		err := rows.Scan(
			&block.ID,
			&block.Name,
			&block.OwnerID,
			&block.Icon,
			&block.ServiceIdentity,
			&block.CreatedAt,
			&block.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, rows.Err()
}

// DeleteAppBlockTx removes the app block row and its provider surface and
// registry listing. Installations are revoked (not deleted) by the caller
// in the same transaction so the audit trail survives.
func (p *PostgresBackend) DeleteAppBlockTx(ctx context.Context, dbTx pgx.Tx, id uuid.UUID) error {
	if _, err := dbTx.Exec(ctx, `DELETE FROM registry_entries WHERE app_block_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete registry entry: %w", err)
	}
	if _, err := dbTx.Exec(ctx, `DELETE FROM provider_scopes WHERE app_block_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete provider scopes: %w", err)
	}
	if _, err := dbTx.Exec(ctx, `DELETE FROM app_block_providers WHERE app_block_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete provider config: %w", err)
	}
	if _, err := dbTx.Exec(ctx, `DELETE FROM app_blocks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete app block: %w", err)
	}
	return nil
}
