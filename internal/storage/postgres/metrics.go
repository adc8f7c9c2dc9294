package postgres

import (
	"context"
	"fmt"
)

func (p *PostgresBackend) CountInstallationsByConnector(ctx context.Context) (map[string]int64, error) {
	query := `
		SELECT connector_id, COUNT(*)
		FROM connector_installations
		WHERE status = 'active'
		GROUP BY connector_id`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count connector installations: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var id string
		var count int64
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		counts[id] = count
	}
	return counts, rows.Err()
}

func (p *PostgresBackend) CountInstallationsByProvider(ctx context.Context) (map[string]int64, error) {
	query := `
		SELECT provider_id, COUNT(*)
		FROM app_block_installations
		WHERE status = 'active'
		GROUP BY provider_id`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count app block installations: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var id string
		var count int64
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		counts[id] = count
	}
	return counts, rows.Err()
}
