package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	itypes "github.com/buidl-renaissance/appblocks/internal/types"
)

func (p *PostgresBackend) CreateRegistryEntry(ctx context.Context, entry itypes.RegistryEntry) (*itypes.RegistryEntry, error) {
	query := `
		INSERT INTO registry_entries (
			app_block_id, slug, title, description, category, tags, visibility, installable, requires_approval
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING app_block_id, slug, title, description, category, tags, visibility, installable, requires_approval, created_at, updated_at`

	row := p.pool.QueryRow(ctx, query,
		entry.AppBlockID,
		entry.Slug,
		entry.Title,
		entry.Description,
		entry.Category,
		entry.Tags.Serialize(),
		entry.Visibility,
		entry.Installable,
		entry.RequiresApproval,
	)
	created, err := scanRegistryEntryRow(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry entry: %w", err)
	}
	return created, nil
}

func (p *PostgresBackend) UpdateRegistryEntry(ctx context.Context, appBlockID uuid.UUID, updates itypes.RegistryUpdateDto) (*itypes.RegistryEntry, error) {
	query := `
		UPDATE registry_entries
		SET title = COALESCE($2, title),
			description = COALESCE($3, description),
			category = COALESCE($4, category),
			tags = COALESCE($5, tags),
			visibility = COALESCE($6, visibility),
			installable = COALESCE($7, installable),
			requires_approval = COALESCE($8, requires_approval),
			updated_at = NOW()
		WHERE app_block_id = $1
		RETURNING app_block_id, slug, title, description, category, tags, visibility, installable, requires_approval, created_at, updated_at`

	var tagsParam *string
	if updates.Tags != nil {
		serialized := itypes.StringList(updates.Tags).Serialize()
		tagsParam = &serialized
	}

	row := p.pool.QueryRow(ctx, query,
		appBlockID,
		updates.Title,
		updates.Description,
		updates.Category,
		tagsParam,
		updates.Visibility,
		updates.Installable,
		updates.RequiresApproval,
	)
	updated, err := scanRegistryEntryRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update registry entry: %w", err)
	}
	return updated, nil
}

func (p *PostgresBackend) DeleteRegistryEntry(ctx context.Context, appBlockID uuid.UUID) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM registry_entries WHERE app_block_id = $1`, appBlockID)
	if err != nil {
		return fmt.Errorf("failed to delete registry entry: %w", err)
	}
	return nil
}

func (p *PostgresBackend) GetRegistryEntry(ctx context.Context, appBlockID uuid.UUID) (*itypes.RegistryEntry, error) {
	query := `
		SELECT app_block_id, slug, title, description, category, tags, visibility, installable, requires_approval, created_at, updated_at
		FROM registry_entries
		WHERE app_block_id = $1`

	row := p.pool.QueryRow(ctx, query, appBlockID)
	entry, err := scanRegistryEntryRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get registry entry: %w", err)
	}
	return entry, nil
}

func (p *PostgresBackend) FindRegistryEntryBySlug(ctx context.Context, slug string) (*itypes.RegistryEntryWithProvider, error) {
	query := `
		SELECT app_block_id, slug, title, description, category, tags, visibility, installable, requires_approval, created_at, updated_at
		FROM registry_entries
		WHERE slug = $1`

	row := p.pool.QueryRow(ctx, query, slug)
	entry, err := scanRegistryEntryRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get registry entry by slug: %w", err)
	}

	result := &itypes.RegistryEntryWithProvider{RegistryEntry: *entry}

	provider, err := p.GetProviderConfig(ctx, entry.AppBlockID)
	if err != nil {
		return nil, err
	}
	result.Provider = provider

	scopes, err := p.GetProviderScopes(ctx, entry.AppBlockID)
	if err != nil {
		return nil, err
	}
	result.Scopes = scopes

	return result, nil
}

// FindRegistryEntries applies the client filters on top of the server-side
// visibility rule: public entries for everyone, private and unlisted entries
// only for the owner.
func (p *PostgresBackend) FindRegistryEntries(ctx context.Context, filters itypes.RegistryFilters, viewerOwnerID string, take int, skip int) (itypes.RegistryPaginatedList, error) {
	query := `
		SELECT r.app_block_id, r.slug, r.title, r.description, r.category, r.tags, r.visibility, r.installable, r.requires_approval, r.created_at, r.updated_at,
		COUNT(*) OVER() AS total_count
		FROM registry_entries r
		JOIN app_blocks b ON b.id = r.app_block_id
		WHERE (r.visibility = 'public' OR b.owner_id = $1)
		AND ($2::text IS NULL OR r.category = $2)
		AND ($3::text IS NULL OR r.title ILIKE '%' || $3 || '%' OR r.description ILIKE '%' || $3 || '%')
		AND ($4::text IS NULL OR r.visibility = $4)
		AND ($5 = false OR r.installable = true)
		AND ($6::text[] IS NULL OR r.tags::jsonb ?| $6::text[])
		ORDER BY r.created_at DESC
		LIMIT $7 OFFSET $8`

	var tagsParam []string
	if len(filters.Tags) > 0 {
		tagsParam = []string(filters.Tags)
	}

	rows, err := p.pool.Query(ctx, query,
		viewerOwnerID,
		filters.Category,
		filters.Query,
		filters.Visibility,
		filters.InstallableOnly,
		tagsParam,
		take,
		skip,
	)
	if err != nil {
		return itypes.RegistryPaginatedList{}, fmt.Errorf("failed to query registry entries: %w", err)
	}
	defer rows.Close()

	var entries []itypes.RegistryEntry
	var totalCount int
	for rows.Next() {
		var e itypes.RegistryEntry
		var tagsRaw string
		err := rows.Scan(
			&e.AppBlockID,
			&e.Slug,
			&e.Title,
			&e.Description,
			&e.Category,
			&tagsRaw,
			&e.Visibility,
			&e.Installable,
			&e.RequiresApproval,
			&e.CreatedAt,
			&e.UpdatedAt,
			&totalCount,
		)
		if err != nil {
			return itypes.RegistryPaginatedList{}, err
		}
		e.Tags = itypes.ParseStringList(tagsRaw)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return itypes.RegistryPaginatedList{}, err
	}

	return itypes.RegistryPaginatedList{
		Entries:    entries,
		TotalCount: totalCount,
	}, nil
}

func scanRegistryEntryRow(row pgx.Row) (*itypes.RegistryEntry, error) {
	var e itypes.RegistryEntry
	var tagsRaw string
	err := row.Scan(
		&e.AppBlockID,
		&e.Slug,
		&e.Title,
		&e.Description,
		&e.Category,
		&tagsRaw,
		&e.Visibility,
		&e.Installable,
		&e.RequiresApproval,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Tags = itypes.ParseStringList(tagsRaw)
	return &e, nil
}
