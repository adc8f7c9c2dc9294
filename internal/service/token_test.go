package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/buidl-renaissance/appblocks/internal/service"
	itypes "github.com/buidl-renaissance/appblocks/internal/types"
)

const testJWTSecret = "test-secret-do-not-use"

func newAuth(t *testing.T, db *MockDatabaseStorage) *service.AuthService {
	t.Helper()
	auth, err := service.NewAuthService(db, nil, testJWTSecret)
	require.NoError(t, err)
	return auth
}

func TestSessionTokenRoundTrip(t *testing.T) {
	auth := newAuth(t, new(MockDatabaseStorage))

	token, expiresAt, err := auth.GenerateSessionToken(itypes.Identity{UserID: "user-1", Role: itypes.RoleCreator})
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	identity, err := auth.ValidateSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.UserID)
	assert.Equal(t, itypes.RoleCreator, identity.Role)
}

func TestValidateSessionToken_WrongSecret(t *testing.T) {
	auth := newAuth(t, new(MockDatabaseStorage))
	other, err := service.NewAuthService(new(MockDatabaseStorage), nil, "different-secret")
	require.NoError(t, err)

	token, _, err := other.GenerateSessionToken(itypes.Identity{UserID: "user-1", Role: itypes.RoleMember})
	require.NoError(t, err)

	_, err = auth.ValidateSessionToken(token)
	assert.Error(t, err)
}

func stubGrants(db *MockDatabaseStorage, blockID uuid.UUID, connector []itypes.ConnectorInstallation, blocks []itypes.AppBlockInstallation) {
	db.On("FindConnectorInstallations", mock.Anything, blockID).Return(connector, nil)
	db.On("FindAppBlockInstallationsByConsumer", mock.Anything, blockID).Return(blocks, nil)
}

func TestIssueAccessToken_IntersectsRequestedWithGrants(t *testing.T) {
	db := new(MockDatabaseStorage)
	auth := newAuth(t, db)
	blockID := uuid.New()

	db.On("FindAppBlockById", mock.Anything, blockID).Return(ownedBlock(blockID, "user-1"), nil)
	stubGrants(db, blockID, []itypes.ConnectorInstallation{
		{
			ID:            uuid.New(),
			Status:        itypes.InstallationStatusActive,
			GrantedScopes: itypes.StringList{"events.read", "events.publish"},
		},
	}, nil)
	db.On("CreateAccessToken", mock.Anything, mock.MatchedBy(func(create itypes.AccessTokenCreate) bool {
		return len(create.Scopes) == 1 && create.Scopes.Contains("events.read")
	})).Return(&itypes.AccessToken{}, nil)

	resp, err := auth.IssueAccessToken(context.Background(), ownerIdentity, itypes.TokenRequestDto{
		GrantType:  "user_session",
		AppBlockID: blockID,
		// events.teleport was never granted; requesting it must not widen
		Scopes: []string{"events.read", "events.teleport"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"events.read"}, resp.Scopes)
	assert.Equal(t, "Bearer", resp.TokenType)
	db.AssertExpectations(t)
}

func TestIssueAccessToken_NoRequestedScopesGetsFullUnion(t *testing.T) {
	db := new(MockDatabaseStorage)
	auth := newAuth(t, db)
	blockID := uuid.New()

	db.On("FindAppBlockById", mock.Anything, blockID).Return(ownedBlock(blockID, "user-1"), nil)
	stubGrants(db, blockID,
		[]itypes.ConnectorInstallation{
			{ID: uuid.New(), Status: itypes.InstallationStatusActive, GrantedScopes: itypes.StringList{"events.read"}},
		},
		[]itypes.AppBlockInstallation{
			{ID: uuid.New(), Status: itypes.InstallationStatusActive, GrantedScopes: itypes.StringList{"photos.read"}},
		})
	db.On("CreateAccessToken", mock.Anything, mock.Anything).Return(&itypes.AccessToken{}, nil)

	resp, err := auth.IssueAccessToken(context.Background(), ownerIdentity, itypes.TokenRequestDto{
		GrantType:  "user_session",
		AppBlockID: blockID,
	})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"events.read", "photos.read"}, resp.Scopes)
}

func TestIssueAccessToken_NonActiveGrantsContributeNothing(t *testing.T) {
	db := new(MockDatabaseStorage)
	auth := newAuth(t, db)
	blockID := uuid.New()
	expired := time.Now().Add(-time.Hour)

	db.On("FindAppBlockById", mock.Anything, blockID).Return(ownedBlock(blockID, "user-1"), nil)
	stubGrants(db, blockID,
		[]itypes.ConnectorInstallation{
			{ID: uuid.New(), Status: itypes.InstallationStatusError, GrantedScopes: itypes.StringList{"events.read"}},
			{ID: uuid.New(), Status: itypes.InstallationStatusActive, GrantedScopes: itypes.StringList{"events.rsvp"}, ExpiresAt: &expired},
		},
		[]itypes.AppBlockInstallation{
			{ID: uuid.New(), Status: itypes.InstallationStatusPending, GrantedScopes: itypes.StringList{"photos.read"}},
		})
	db.On("CreateAccessToken", mock.Anything, mock.Anything).Return(&itypes.AccessToken{}, nil)

	resp, err := auth.IssueAccessToken(context.Background(), ownerIdentity, itypes.TokenRequestDto{
		GrantType:  "user_session",
		AppBlockID: blockID,
	})

	// Empty effective set is a successful issuance, not an error.
	require.NoError(t, err)
	assert.Empty(t, resp.Scopes)
}

func TestIssueAccessToken_NotOwner(t *testing.T) {
	db := new(MockDatabaseStorage)
	auth := newAuth(t, db)
	blockID := uuid.New()

	db.On("FindAppBlockById", mock.Anything, blockID).Return(ownedBlock(blockID, "user-1"), nil)

	_, err := auth.IssueAccessToken(context.Background(), strangerIdentity, itypes.TokenRequestDto{
		GrantType:  "user_session",
		AppBlockID: blockID,
	})
	assert.ErrorIs(t, err, service.ErrNotOwner)
}

func TestValidateAccessToken_RevokedTokenRejected(t *testing.T) {
	db := new(MockDatabaseStorage)
	auth := newAuth(t, db)
	blockID := uuid.New()

	db.On("FindAppBlockById", mock.Anything, blockID).Return(ownedBlock(blockID, "user-1"), nil)
	stubGrants(db, blockID, []itypes.ConnectorInstallation{
		{ID: uuid.New(), Status: itypes.InstallationStatusActive, GrantedScopes: itypes.StringList{"events.read"}},
	}, nil)
	db.On("CreateAccessToken", mock.Anything, mock.Anything).Return(&itypes.AccessToken{}, nil)

	resp, err := auth.IssueAccessToken(context.Background(), ownerIdentity, itypes.TokenRequestDto{
		GrantType:  "user_session",
		AppBlockID: blockID,
	})
	require.NoError(t, err)

	revokedAt := time.Now().Add(-time.Minute)
	db.On("GetAccessToken", mock.Anything, mock.Anything).Return(&itypes.AccessToken{
		UserID:    "user-1",
		RevokedAt: &revokedAt,
	}, nil)

	_, err = auth.ValidateAccessToken(context.Background(), resp.AccessToken)
	assert.Error(t, err)
}

func TestValidateAccessToken_HappyPath(t *testing.T) {
	db := new(MockDatabaseStorage)
	auth := newAuth(t, db)
	blockID := uuid.New()

	db.On("FindAppBlockById", mock.Anything, blockID).Return(ownedBlock(blockID, "user-1"), nil)
	stubGrants(db, blockID, []itypes.ConnectorInstallation{
		{ID: uuid.New(), Status: itypes.InstallationStatusActive, GrantedScopes: itypes.StringList{"events.read"}},
	}, nil)
	db.On("CreateAccessToken", mock.Anything, mock.Anything).Return(&itypes.AccessToken{}, nil)

	resp, err := auth.IssueAccessToken(context.Background(), ownerIdentity, itypes.TokenRequestDto{
		GrantType:  "user_session",
		AppBlockID: blockID,
	})
	require.NoError(t, err)

	db.On("GetAccessToken", mock.Anything, mock.Anything).Return(&itypes.AccessToken{UserID: "user-1"}, nil)
	db.On("UpdateAccessTokenLastUsed", mock.Anything, mock.Anything).Return(nil)

	claims, err := auth.ValidateAccessToken(context.Background(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, blockID, claims.AppBlockID)
	assert.Equal(t, []string{"events.read"}, claims.Scopes)
}

func TestRevokeAccessToken_OwnershipEnforced(t *testing.T) {
	db := new(MockDatabaseStorage)
	auth := newAuth(t, db)

	db.On("GetAccessToken", mock.Anything, "tok-1").Return(&itypes.AccessToken{
		TokenID: "tok-1",
		UserID:  "someone-else",
	}, nil)

	err := auth.RevokeAccessToken(context.Background(), ownerIdentity, "tok-1")
	assert.ErrorIs(t, err, service.ErrNotOwner)
	db.AssertNotCalled(t, "RevokeAccessToken", mock.Anything, mock.Anything)
}
