package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	itypes "github.com/buidl-renaissance/appblocks/internal/types"
)

func (p *PostgresBackend) FindConnectors(ctx context.Context, activeOnly bool) ([]itypes.Connector, error) {
	query := `
		SELECT id, name, description, icon, auth_methods, active, created_at, updated_at
		FROM connectors
		WHERE ($1 = false OR active = true)
		ORDER BY name`

	rows, err := p.pool.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to query connectors: %w", err)
	}
	defer rows.Close()

	var connectors []itypes.Connector
	for rows.Next() {
		c, err := scanConnector(rows)
		if err != nil {
			return nil, err
		}
		connectors = append(connectors, c)
	}
	return connectors, rows.Err()
}

func (p *PostgresBackend) FindConnectorById(ctx context.Context, id string) (*itypes.Connector, error) {
	query := `
		SELECT id, name, description, icon, auth_methods, active, created_at, updated_at
		FROM connectors
		WHERE id = $1`

	row := p.pool.QueryRow(ctx, query, id)
	c, err := scanConnectorRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get connector: %w", err)
	}
	return &c, nil
}

func (p *PostgresBackend) GetConnectorScopes(ctx context.Context, connectorID string) ([]itypes.Scope, error) {
	query := `
		SELECT name, description, required_role, is_public_read
		FROM connector_scopes
		WHERE connector_id = $1
		ORDER BY name`

	rows, err := p.pool.Query(ctx, query, connectorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query connector scopes: %w", err)
	}
	defer rows.Close()

	return scanScopes(rows)
}

func (p *PostgresBackend) GetConnectorRecipes(ctx context.Context, connectorID string) ([]itypes.ConnectorRecipe, error) {
	query := `
		SELECT id, connector_id, name, description, scopes
		FROM connector_recipes
		WHERE connector_id = $1
		ORDER BY name`

	rows, err := p.pool.Query(ctx, query, connectorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query connector recipes: %w", err)
	}
	defer rows.Close()

	var recipes []itypes.ConnectorRecipe
	for rows.Next() {
		var r itypes.ConnectorRecipe
		var scopesRaw string
		if err := rows.Scan(&r.ID, &r.ConnectorID, &r.Name, &r.Description, &scopesRaw); err != nil {
			return nil, err
		}
		r.Scopes = itypes.ParseStringList(scopesRaw)
		recipes = append(recipes, r)
	}
	return recipes, rows.Err()
}

func (p *PostgresBackend) GetConnectorRecipe(ctx context.Context, connectorID string, recipeID string) (*itypes.ConnectorRecipe, error) {
	query := `
		SELECT id, connector_id, name, description, scopes
		FROM connector_recipes
		WHERE connector_id = $1 AND id = $2`

	var r itypes.ConnectorRecipe
	var scopesRaw string
	err := p.pool.QueryRow(ctx, query, connectorID, recipeID).Scan(
		&r.ID,
		&r.ConnectorID,
		&r.Name,
		&r.Description,
		&scopesRaw,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get connector recipe: %w", err)
	}
	r.Scopes = itypes.ParseStringList(scopesRaw)
	return &r, nil
}

func scanConnector(rows pgx.Rows) (itypes.Connector, error) {
	var c itypes.Connector
	var authMethodsRaw string
	err := rows.Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.Icon,
		&authMethodsRaw,
		&c.Active,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return itypes.Connector{}, err
	}
	c.AuthMethods = itypes.ParseStringList(authMethodsRaw)
	return c, nil
}

func scanConnectorRow(row pgx.Row) (itypes.Connector, error) {
	var c itypes.Connector
	var authMethodsRaw string
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.Icon,
		&authMethodsRaw,
		&c.Active,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return itypes.Connector{}, err
	}
	c.AuthMethods = itypes.ParseStringList(authMethodsRaw)
	return c, nil
}

func scanScopes(rows pgx.Rows) ([]itypes.Scope, error) {
	var scopes []itypes.Scope
	for rows.Next() {
		var s itypes.Scope
		if err := rows.Scan(&s.Name, &s.Description, &s.RequiredRole, &s.IsPublicRead); err != nil {
			return nil, err
		}
		scopes = append(scopes, s)
	}
	return scopes, rows.Err()
}
