package service_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/mock"

	"github.com/buidl-renaissance/appblocks/internal/storage"
	itypes "github.com/buidl-renaissance/appblocks/internal/types"
)

var _ storage.DatabaseStorage = (*MockDatabaseStorage)(nil)

// MockDatabaseStorage is a mock implementation of storage.DatabaseStorage
type MockDatabaseStorage struct {
	mock.Mock
}

func (m *MockDatabaseStorage) Close() error {
	return nil
}

func (m *MockDatabaseStorage) Pool() *pgxpool.Pool {
	return nil
}

func (m *MockDatabaseStorage) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx, nil)
}

func (m *MockDatabaseStorage) FindConnectors(ctx context.Context, activeOnly bool) ([]itypes.Connector, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]itypes.Connector), args.Error(1)
}

func (m *MockDatabaseStorage) FindConnectorById(ctx context.Context, id string) (*itypes.Connector, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*itypes.Connector), args.Error(1)
}

func (m *MockDatabaseStorage) GetConnectorScopes(ctx context.Context, connectorID string) ([]itypes.Scope, error) {
	args := m.Called(ctx, connectorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]itypes.Scope), args.Error(1)
}

func (m *MockDatabaseStorage) GetConnectorRecipes(ctx context.Context, connectorID string) ([]itypes.ConnectorRecipe, error) {
	args := m.Called(ctx, connectorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]itypes.ConnectorRecipe), args.Error(1)
}

func (m *MockDatabaseStorage) GetConnectorRecipe(ctx context.Context, connectorID string, recipeID string) (*itypes.ConnectorRecipe, error) {
	args := m.Called(ctx, connectorID, recipeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*itypes.ConnectorRecipe), args.Error(1)
}

func (m *MockDatabaseStorage) CreateAppBlock(ctx context.Context, block itypes.AppBlock) (*itypes.AppBlock, error) {
	args := m.Called(ctx, block)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*itypes.AppBlock), args.Error(1)
}

func (m *MockDatabaseStorage) FindAppBlockById(ctx context.Context, id uuid.UUID) (*itypes.AppBlock, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*itypes.AppBlock), args.Error(1)
}

func (m *MockDatabaseStorage) FindAppBlocksByOwner(ctx context.Context, ownerID string) ([]itypes.AppBlock, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]itypes.AppBlock), args.Error(1)
}

func (m *MockDatabaseStorage) DeleteAppBlockTx(ctx context.Context, dbTx pgx.Tx, id uuid.UUID) error {
	args := m.Called(ctx, dbTx, id)
	return args.Error(0)
}

func (m *MockDatabaseStorage) CreateProviderTx(ctx context.Context, dbTx pgx.Tx, cfg itypes.ProviderConfig) (*itypes.ProviderConfig, error) {
	args := m.Called(ctx, dbTx, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*itypes.ProviderConfig), args.Error(1)
}

func (m *MockDatabaseStorage) ReplaceProviderScopesTx(ctx context.Context, dbTx pgx.Tx, appBlockID uuid.UUID, scopes []itypes.Scope) error {
	args := m.Called(ctx, dbTx, appBlockID, scopes)
	return args.Error(0)
}

func (m *MockDatabaseStorage) GetProviderConfig(ctx context.Context, appBlockID uuid.UUID) (*itypes.ProviderConfig, error) {
	args := m.Called(ctx, appBlockID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*itypes.ProviderConfig), args.Error(1)
}

func (m *MockDatabaseStorage) GetProviderScopes(ctx context.Context, appBlockID uuid.UUID) ([]itypes.Scope, error) {
	args := m.Called(ctx, appBlockID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]itypes.Scope), args.Error(1)
}

func (m *MockDatabaseStorage) UpdateProviderConfig(ctx context.Context, appBlockID uuid.UUID, updates itypes.ProviderUpdateDto) (*itypes.ProviderConfig, error) {
	args := m.Called(ctx, appBlockID, updates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*itypes.ProviderConfig), args.Error(1)
}

func (m *MockDatabaseStorage) DeleteProviderTx(ctx context.Context, dbTx pgx.Tx, appBlockID uuid.UUID) error {
	args := m.Called(ctx, dbTx, appBlockID)
	return args.Error(0)
}

func (m *MockDatabaseStorage) FindActiveProviders(ctx context.Context) ([]itypes.ProviderConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]itypes.ProviderConfig), args.Error(1)
}

func (m *MockDatabaseStorage) CreateRegistryEntry(ctx context.Context, entry itypes.RegistryEntry) (*itypes.RegistryEntry, error) {
	args := m.Called(ctx, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*itypes.RegistryEntry), args.Error(1)
}

func (m *MockDatabaseStorage) UpdateRegistryEntry(ctx context.Context, appBlockID uuid.UUID, updates itypes.RegistryUpdateDto) (*itypes.RegistryEntry, error) {
	args := m.Called(ctx, appBlockID, updates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*itypes.RegistryEntry), args.Error(1)
}

func (m *MockDatabaseStorage) DeleteRegistryEntry(ctx context.Context, appBlockID uuid.UUID) error {
	args := m.Called(ctx, appBlockID)
	return args.Error(0)
}

func (m *MockDatabaseStorage) GetRegistryEntry(ctx context.Context, appBlockID uuid.UUID) (*itypes.RegistryEntry, error) {
	args := m.Called(ctx, appBlockID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*itypes.RegistryEntry), args.Error(1)
}

func (m *MockDatabaseStorage) FindRegistryEntryBySlug(ctx context.Context, slug string) (*itypes.RegistryEntryWithProvider, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*itypes.RegistryEntryWithProvider), args.Error(1)
}

func (m *MockDatabaseStorage) FindRegistryEntries(ctx context.Context, filters itypes.RegistryFilters, viewerOwnerID string, take int, skip int) (itypes.RegistryPaginatedList, error) {
	args := m.Called(ctx, filters, viewerOwnerID, take, skip)
	return args.Get(0).(itypes.RegistryPaginatedList), args.Error(1)
}

func (m *MockDatabaseStorage) UpsertConnectorInstallation(ctx context.Context, inst itypes.ConnectorInstallation) (*itypes.ConnectorInstallation, error) {
	args := m.Called(ctx, inst)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*itypes.ConnectorInstallation), args.Error(1)
}

func (m *MockDatabaseStorage) GetConnectorInstallation(ctx context.Context, id uuid.UUID) (*itypes.ConnectorInstallation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*itypes.ConnectorInstallation), args.Error(1)
}

func (m *MockDatabaseStorage) FindConnectorInstallations(ctx context.Context, appBlockID uuid.UUID) ([]itypes.ConnectorInstallation, error) {
	args := m.Called(ctx, appBlockID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]itypes.ConnectorInstallation), args.Error(1)
}

func (m *MockDatabaseStorage) UpdateConnectorInstallationStatus(ctx context.Context, id uuid.UUID, status itypes.InstallationStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockDatabaseStorage) TouchConnectorInstallation(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDatabaseStorage) UpsertAppBlockInstallation(ctx context.Context, inst itypes.AppBlockInstallation) (*itypes.AppBlockInstallation, error) {
	args := m.Called(ctx, inst)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*itypes.AppBlockInstallation), args.Error(1)
}

func (m *MockDatabaseStorage) GetAppBlockInstallation(ctx context.Context, id uuid.UUID) (*itypes.AppBlockInstallation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*itypes.AppBlockInstallation), args.Error(1)
}

func (m *MockDatabaseStorage) FindAppBlockInstallationsByConsumer(ctx context.Context, consumerID uuid.UUID) ([]itypes.AppBlockInstallation, error) {
	args := m.Called(ctx, consumerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]itypes.AppBlockInstallation), args.Error(1)
}

func (m *MockDatabaseStorage) FindAppBlockInstallationsByProvider(ctx context.Context, providerID uuid.UUID) ([]itypes.AppBlockInstallation, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]itypes.AppBlockInstallation), args.Error(1)
}

func (m *MockDatabaseStorage) UpdateAppBlockInstallationStatus(ctx context.Context, id uuid.UUID, status itypes.InstallationStatus, approvedAt *time.Time) error {
	args := m.Called(ctx, id, status, approvedAt)
	return args.Error(0)
}

func (m *MockDatabaseStorage) TouchAppBlockInstallation(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDatabaseStorage) SetProviderInstallationsStatus(ctx context.Context, providerID uuid.UUID, from itypes.InstallationStatus, to itypes.InstallationStatus) (int64, error) {
	args := m.Called(ctx, providerID, from, to)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDatabaseStorage) RevokeInstallationsForAppBlockTx(ctx context.Context, dbTx pgx.Tx, appBlockID uuid.UUID) (int64, error) {
	args := m.Called(ctx, dbTx, appBlockID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDatabaseStorage) ExpireOverdueInstallations(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDatabaseStorage) CreateAccessToken(ctx context.Context, token itypes.AccessTokenCreate) (*itypes.AccessToken, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*itypes.AccessToken), args.Error(1)
}

func (m *MockDatabaseStorage) GetAccessToken(ctx context.Context, tokenID string) (*itypes.AccessToken, error) {
	args := m.Called(ctx, tokenID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*itypes.AccessToken), args.Error(1)
}

func (m *MockDatabaseStorage) RevokeAccessToken(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

func (m *MockDatabaseStorage) RevokeAllAccessTokens(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockDatabaseStorage) UpdateAccessTokenLastUsed(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

func (m *MockDatabaseStorage) GetActiveAccessTokens(ctx context.Context, userID string) ([]itypes.AccessToken, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]itypes.AccessToken), args.Error(1)
}

func (m *MockDatabaseStorage) CountInstallationsByConnector(ctx context.Context) (map[string]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *MockDatabaseStorage) CountInstallationsByProvider(ctx context.Context) (map[string]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}
