package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	itypes "github.com/buidl-renaissance/appblocks/internal/types"
)

type DatabaseStorage interface {
	Close() error

	// Connector catalog (seeded, read-mostly)
	FindConnectors(ctx context.Context, activeOnly bool) ([]itypes.Connector, error)
	FindConnectorById(ctx context.Context, id string) (*itypes.Connector, error)
	GetConnectorScopes(ctx context.Context, connectorID string) ([]itypes.Scope, error)
	GetConnectorRecipes(ctx context.Context, connectorID string) ([]itypes.ConnectorRecipe, error)
	GetConnectorRecipe(ctx context.Context, connectorID string, recipeID string) (*itypes.ConnectorRecipe, error)

	// App blocks
	CreateAppBlock(ctx context.Context, block itypes.AppBlock) (*itypes.AppBlock, error)
	FindAppBlockById(ctx context.Context, id uuid.UUID) (*itypes.AppBlock, error)
	FindAppBlocksByOwner(ctx context.Context, ownerID string) ([]itypes.AppBlock, error)
	DeleteAppBlockTx(ctx context.Context, dbTx pgx.Tx, id uuid.UUID) error

	// Provider surface
	CreateProviderTx(ctx context.Context, dbTx pgx.Tx, cfg itypes.ProviderConfig) (*itypes.ProviderConfig, error)
	ReplaceProviderScopesTx(ctx context.Context, dbTx pgx.Tx, appBlockID uuid.UUID, scopes []itypes.Scope) error
	GetProviderConfig(ctx context.Context, appBlockID uuid.UUID) (*itypes.ProviderConfig, error)
	GetProviderScopes(ctx context.Context, appBlockID uuid.UUID) ([]itypes.Scope, error)
	UpdateProviderConfig(ctx context.Context, appBlockID uuid.UUID, updates itypes.ProviderUpdateDto) (*itypes.ProviderConfig, error)
	DeleteProviderTx(ctx context.Context, dbTx pgx.Tx, appBlockID uuid.UUID) error
	FindActiveProviders(ctx context.Context) ([]itypes.ProviderConfig, error)

	// Registry
	CreateRegistryEntry(ctx context.Context, entry itypes.RegistryEntry) (*itypes.RegistryEntry, error)
	UpdateRegistryEntry(ctx context.Context, appBlockID uuid.UUID, updates itypes.RegistryUpdateDto) (*itypes.RegistryEntry, error)
	DeleteRegistryEntry(ctx context.Context, appBlockID uuid.UUID) error
	GetRegistryEntry(ctx context.Context, appBlockID uuid.UUID) (*itypes.RegistryEntry, error)
	FindRegistryEntryBySlug(ctx context.Context, slug string) (*itypes.RegistryEntryWithProvider, error)
	FindRegistryEntries(ctx context.Context, filters itypes.RegistryFilters, viewerOwnerID string, take int, skip int) (itypes.RegistryPaginatedList, error)

	// Connector installations
	UpsertConnectorInstallation(ctx context.Context, inst itypes.ConnectorInstallation) (*itypes.ConnectorInstallation, error)
	GetConnectorInstallation(ctx context.Context, id uuid.UUID) (*itypes.ConnectorInstallation, error)
	FindConnectorInstallations(ctx context.Context, appBlockID uuid.UUID) ([]itypes.ConnectorInstallation, error)
	UpdateConnectorInstallationStatus(ctx context.Context, id uuid.UUID, status itypes.InstallationStatus) error
	TouchConnectorInstallation(ctx context.Context, id uuid.UUID) error

	// App block installations
	UpsertAppBlockInstallation(ctx context.Context, inst itypes.AppBlockInstallation) (*itypes.AppBlockInstallation, error)
	GetAppBlockInstallation(ctx context.Context, id uuid.UUID) (*itypes.AppBlockInstallation, error)
	FindAppBlockInstallationsByConsumer(ctx context.Context, consumerID uuid.UUID) ([]itypes.AppBlockInstallation, error)
	FindAppBlockInstallationsByProvider(ctx context.Context, providerID uuid.UUID) ([]itypes.AppBlockInstallation, error)
	UpdateAppBlockInstallationStatus(ctx context.Context, id uuid.UUID, status itypes.InstallationStatus, approvedAt *time.Time) error
	TouchAppBlockInstallation(ctx context.Context, id uuid.UUID) error
	SetProviderInstallationsStatus(ctx context.Context, providerID uuid.UUID, from itypes.InstallationStatus, to itypes.InstallationStatus) (int64, error)
	RevokeInstallationsForAppBlockTx(ctx context.Context, dbTx pgx.Tx, appBlockID uuid.UUID) (int64, error)
	ExpireOverdueInstallations(ctx context.Context, now time.Time) (int64, error)

	// Access tokens
	CreateAccessToken(ctx context.Context, token itypes.AccessTokenCreate) (*itypes.AccessToken, error)
	GetAccessToken(ctx context.Context, tokenID string) (*itypes.AccessToken, error)
	RevokeAccessToken(ctx context.Context, tokenID string) error
	RevokeAllAccessTokens(ctx context.Context, userID string) error
	UpdateAccessTokenLastUsed(ctx context.Context, tokenID string) error
	GetActiveAccessTokens(ctx context.Context, userID string) ([]itypes.AccessToken, error)

	// Collector queries
	CountInstallationsByConnector(ctx context.Context) (map[string]int64, error)
	CountInstallationsByProvider(ctx context.Context) (map[string]int64, error)

	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
	Pool() *pgxpool.Pool
}
