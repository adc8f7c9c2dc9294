package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/buidl-renaissance/appblocks/internal/service"
	itypes "github.com/buidl-renaissance/appblocks/internal/types"
)

var (
	ownerIdentity    = itypes.Identity{UserID: "user-1", Role: itypes.RoleCreator}
	memberIdentity   = itypes.Identity{UserID: "user-1", Role: itypes.RoleMember}
	strangerIdentity = itypes.Identity{UserID: "user-2", Role: itypes.RoleCreator}
)

func newInstaller(t *testing.T, db *MockDatabaseStorage) *service.InstallationService {
	t.Helper()
	catalog, err := service.NewCatalogService(db)
	require.NoError(t, err)
	installer, err := service.NewInstallationService(db, catalog)
	require.NoError(t, err)
	return installer
}

func ownedBlock(id uuid.UUID, owner string) *itypes.AppBlock {
	return &itypes.AppBlock{ID: id, Name: "test block", OwnerID: owner}
}

func eventsConnector() *itypes.Connector {
	return &itypes.Connector{
		ID:     "events",
		Name:   "Events",
		Active: true,
	}
}

func eventsScopes() []itypes.Scope {
	return []itypes.Scope{
		{Name: "events.read", RequiredRole: itypes.RoleMember, IsPublicRead: true},
		{Name: "events.rsvp", RequiredRole: itypes.RoleMember},
		{Name: "events.publish", RequiredRole: itypes.RoleCreator},
	}
}

func TestInstallConnector_GrantsAcceptedScopes(t *testing.T) {
	db := new(MockDatabaseStorage)
	installer := newInstaller(t, db)
	blockID := uuid.New()

	db.On("FindAppBlockById", mock.Anything, blockID).Return(ownedBlock(blockID, "user-1"), nil)
	db.On("FindConnectorById", mock.Anything, "events").Return(eventsConnector(), nil)
	db.On("GetConnectorScopes", mock.Anything, "events").Return(eventsScopes(), nil)
	db.On("UpsertConnectorInstallation", mock.Anything, mock.MatchedBy(func(inst itypes.ConnectorInstallation) bool {
		return inst.Status == itypes.InstallationStatusActive &&
			inst.GrantedScopes.Contains("events.read") &&
			inst.GrantedScopes.Contains("events.publish")
	})).Return(&itypes.ConnectorInstallation{
		ID:            uuid.New(),
		AppBlockID:    blockID,
		ConnectorID:   "events",
		GrantedScopes: itypes.StringList{"events.publish", "events.read"},
		Status:        itypes.InstallationStatusActive,
	}, nil)

	result, err := installer.InstallConnector(context.Background(), ownerIdentity, blockID, itypes.ConnectorInstallDto{
		ConnectorID: "events",
		Scopes:      []string{"events.read", "events.publish"},
		AuthType:    "user",
	})

	require.NoError(t, err)
	assert.Empty(t, result.Rejected)
	assert.Equal(t, itypes.InstallationStatusActive, result.Installation.Status)
	db.AssertExpectations(t)
}

func TestInstallConnector_UnknownScopeFailsWithoutRow(t *testing.T) {
	db := new(MockDatabaseStorage)
	installer := newInstaller(t, db)
	blockID := uuid.New()

	db.On("FindAppBlockById", mock.Anything, blockID).Return(ownedBlock(blockID, "user-1"), nil)
	db.On("FindConnectorById", mock.Anything, "events").Return(eventsConnector(), nil)
	db.On("GetConnectorScopes", mock.Anything, "events").Return(eventsScopes(), nil)

	_, err := installer.InstallConnector(context.Background(), ownerIdentity, blockID, itypes.ConnectorInstallDto{
		ConnectorID: "events",
		Scopes:      []string{"events.read", "events.teleport"},
		AuthType:    "user",
	})

	require.Error(t, err)
	ve, ok := service.AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, ve.Names, "events.teleport")
	db.AssertNotCalled(t, "UpsertConnectorInstallation", mock.Anything, mock.Anything)
}

func TestInstallConnector_RoleInsufficientScopeDropped(t *testing.T) {
	db := new(MockDatabaseStorage)
	installer := newInstaller(t, db)
	blockID := uuid.New()

	db.On("FindAppBlockById", mock.Anything, blockID).Return(ownedBlock(blockID, "user-1"), nil)
	db.On("FindConnectorById", mock.Anything, "events").Return(eventsConnector(), nil)
	db.On("GetConnectorScopes", mock.Anything, "events").Return(eventsScopes(), nil)
	db.On("UpsertConnectorInstallation", mock.Anything, mock.MatchedBy(func(inst itypes.ConnectorInstallation) bool {
		return !inst.GrantedScopes.Contains("events.publish")
	})).Return(&itypes.ConnectorInstallation{
		ID:            uuid.New(),
		GrantedScopes: itypes.StringList{"events.read"},
		Status:        itypes.InstallationStatusActive,
	}, nil)

	result, err := installer.InstallConnector(context.Background(), memberIdentity, blockID, itypes.ConnectorInstallDto{
		ConnectorID: "events",
		Scopes:      []string{"events.read", "events.publish"},
		AuthType:    "user",
	})

	require.NoError(t, err)
	assert.Equal(t, itypes.StringList{"events.publish"}, result.Rejected)
	db.AssertExpectations(t)
}

func TestInstallConnector_UndeclaredAuthMethodRejected(t *testing.T) {
	db := new(MockDatabaseStorage)
	installer := newInstaller(t, db)
	blockID := uuid.New()

	userOnly := eventsConnector()
	userOnly.ID = "collab"
	userOnly.AuthMethods = itypes.StringList{"user"}

	db.On("FindAppBlockById", mock.Anything, blockID).Return(ownedBlock(blockID, "user-1"), nil)
	db.On("FindConnectorById", mock.Anything, "collab").Return(userOnly, nil)

	_, err := installer.InstallConnector(context.Background(), ownerIdentity, blockID, itypes.ConnectorInstallDto{
		ConnectorID: "collab",
		Scopes:      []string{"events.read"},
		AuthType:    "service",
	})

	require.Error(t, err)
	ve, ok := service.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "auth_type", ve.Field)
	db.AssertNotCalled(t, "UpsertConnectorInstallation", mock.Anything, mock.Anything)
}

func TestInstallConnector_NotOwner(t *testing.T) {
	db := new(MockDatabaseStorage)
	installer := newInstaller(t, db)
	blockID := uuid.New()

	db.On("FindAppBlockById", mock.Anything, blockID).Return(ownedBlock(blockID, "user-1"), nil)

	_, err := installer.InstallConnector(context.Background(), strangerIdentity, blockID, itypes.ConnectorInstallDto{
		ConnectorID: "events",
		Scopes:      []string{"events.read"},
		AuthType:    "user",
	})

	assert.ErrorIs(t, err, service.ErrNotOwner)
}

func TestInstallAppBlock_PendingWhenApprovalRequired(t *testing.T) {
	db := new(MockDatabaseStorage)
	installer := newInstaller(t, db)
	consumerID := uuid.New()
	providerID := uuid.New()

	db.On("FindAppBlockById", mock.Anything, consumerID).Return(ownedBlock(consumerID, "user-1"), nil)
	db.On("GetProviderConfig", mock.Anything, providerID).Return(&itypes.ProviderConfig{
		AppBlockID:  providerID,
		Status:      itypes.ProviderStatusActive,
		AuthMethods: itypes.StringList{"user", "service"},
	}, nil)
	db.On("GetRegistryEntry", mock.Anything, providerID).Return(&itypes.RegistryEntry{
		AppBlockID:       providerID,
		Installable:      true,
		RequiresApproval: true,
	}, nil)
	db.On("GetProviderScopes", mock.Anything, providerID).Return([]itypes.Scope{
		{Name: "photos.read", RequiredRole: itypes.RoleMember},
	}, nil)
	db.On("UpsertAppBlockInstallation", mock.Anything, mock.MatchedBy(func(inst itypes.AppBlockInstallation) bool {
		return inst.Status == itypes.InstallationStatusPending
	})).Return(&itypes.AppBlockInstallation{
		ID:         uuid.New(),
		ConsumerID: consumerID,
		ProviderID: providerID,
		Status:     itypes.InstallationStatusPending,
	}, nil)

	result, err := installer.InstallAppBlock(context.Background(), ownerIdentity, consumerID, itypes.AppBlockInstallDto{
		ProviderAppBlockID: providerID,
		Scopes:             []string{"photos.read"},
		AuthType:           "user",
	})

	require.NoError(t, err)
	assert.Equal(t, itypes.InstallationStatusPending, result.Installation.Status)
	db.AssertExpectations(t)
}

func TestInstallAppBlock_UnsupportedAuthMethod(t *testing.T) {
	db := new(MockDatabaseStorage)
	installer := newInstaller(t, db)
	consumerID := uuid.New()
	providerID := uuid.New()

	db.On("FindAppBlockById", mock.Anything, consumerID).Return(ownedBlock(consumerID, "user-1"), nil)
	// no declared auth methods: user-delegated only
	db.On("GetProviderConfig", mock.Anything, providerID).Return(&itypes.ProviderConfig{
		AppBlockID: providerID,
		Status:     itypes.ProviderStatusActive,
	}, nil)

	_, err := installer.InstallAppBlock(context.Background(), ownerIdentity, consumerID, itypes.AppBlockInstallDto{
		ProviderAppBlockID: providerID,
		Scopes:             []string{"photos.read"},
		AuthType:           "service",
	})

	require.Error(t, err)
	_, ok := service.AsValidationError(err)
	assert.True(t, ok)
}

func TestInstallAppBlock_SelfInstallRejected(t *testing.T) {
	db := new(MockDatabaseStorage)
	installer := newInstaller(t, db)
	blockID := uuid.New()

	db.On("FindAppBlockById", mock.Anything, blockID).Return(ownedBlock(blockID, "user-1"), nil)

	_, err := installer.InstallAppBlock(context.Background(), ownerIdentity, blockID, itypes.AppBlockInstallDto{
		ProviderAppBlockID: blockID,
		Scopes:             []string{"photos.read"},
		AuthType:           "user",
	})

	_, ok := service.AsValidationError(err)
	assert.True(t, ok)
}

func TestApprove_OnlyProviderOwnerFromPending(t *testing.T) {
	db := new(MockDatabaseStorage)
	installer := newInstaller(t, db)
	consumerID := uuid.New()
	providerID := uuid.New()
	instID := uuid.New()

	db.On("GetAppBlockInstallation", mock.Anything, instID).Return(&itypes.AppBlockInstallation{
		ID:         instID,
		ConsumerID: consumerID,
		ProviderID: providerID,
		Status:     itypes.InstallationStatusPending,
	}, nil)
	db.On("FindAppBlockById", mock.Anything, providerID).Return(ownedBlock(providerID, "user-1"), nil)
	db.On("UpdateAppBlockInstallationStatus", mock.Anything, instID, itypes.InstallationStatusActive, mock.Anything).Return(nil)

	inst, err := installer.Approve(context.Background(), ownerIdentity, instID)
	require.NoError(t, err)
	assert.Equal(t, itypes.InstallationStatusActive, inst.Status)
	assert.NotNil(t, inst.ApprovedAt)
}

func TestApprove_NonPendingIsConflict(t *testing.T) {
	db := new(MockDatabaseStorage)
	installer := newInstaller(t, db)
	providerID := uuid.New()
	instID := uuid.New()

	db.On("GetAppBlockInstallation", mock.Anything, instID).Return(&itypes.AppBlockInstallation{
		ID:         instID,
		ProviderID: providerID,
		Status:     itypes.InstallationStatusActive,
	}, nil)
	db.On("FindAppBlockById", mock.Anything, providerID).Return(ownedBlock(providerID, "user-1"), nil)

	_, err := installer.Approve(context.Background(), ownerIdentity, instID)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
}

func TestRevoke_IdempotentOnTerminal(t *testing.T) {
	db := new(MockDatabaseStorage)
	installer := newInstaller(t, db)
	blockID := uuid.New()
	instID := uuid.New()

	db.On("GetConnectorInstallation", mock.Anything, instID).Return(&itypes.ConnectorInstallation{
		ID:         instID,
		AppBlockID: blockID,
		Status:     itypes.InstallationStatusRevoked,
	}, nil)
	db.On("FindAppBlockById", mock.Anything, blockID).Return(ownedBlock(blockID, "user-1"), nil)

	err := installer.RevokeConnectorInstallation(context.Background(), ownerIdentity, instID)
	require.NoError(t, err)
	db.AssertNotCalled(t, "UpdateConnectorInstallationStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestRevokeAppBlockInstallation_EitherOwnerMayRevoke(t *testing.T) {
	db := new(MockDatabaseStorage)
	installer := newInstaller(t, db)
	consumerID := uuid.New()
	providerID := uuid.New()
	instID := uuid.New()

	db.On("GetAppBlockInstallation", mock.Anything, instID).Return(&itypes.AppBlockInstallation{
		ID:         instID,
		ConsumerID: consumerID,
		ProviderID: providerID,
		Status:     itypes.InstallationStatusActive,
	}, nil)
	// caller owns the provider side only
	db.On("FindAppBlockById", mock.Anything, consumerID).Return(ownedBlock(consumerID, "someone-else"), nil)
	db.On("FindAppBlockById", mock.Anything, providerID).Return(ownedBlock(providerID, "user-1"), nil)
	db.On("UpdateAppBlockInstallationStatus", mock.Anything, instID, itypes.InstallationStatusRevoked, mock.Anything).Return(nil)

	err := installer.RevokeAppBlockInstallation(context.Background(), ownerIdentity, instID)
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestDeleteAppBlock_CascadeRevokesInOneTransaction(t *testing.T) {
	db := new(MockDatabaseStorage)
	installer := newInstaller(t, db)
	blockID := uuid.New()

	db.On("FindAppBlockById", mock.Anything, blockID).Return(ownedBlock(blockID, "user-1"), nil)
	db.On("WithTransaction", mock.Anything, mock.Anything).Return(nil)
	db.On("RevokeInstallationsForAppBlockTx", mock.Anything, mock.Anything, blockID).Return(int64(3), nil)
	db.On("DeleteAppBlockTx", mock.Anything, mock.Anything, blockID).Return(nil)

	err := installer.DeleteAppBlock(context.Background(), ownerIdentity, blockID)
	require.NoError(t, err)
	db.AssertExpectations(t)
}
