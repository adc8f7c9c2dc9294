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

func newRegistry(t *testing.T, db *MockDatabaseStorage) *service.RegistryService {
	t.Helper()
	registry, err := service.NewRegistryService(db)
	require.NoError(t, err)
	return registry
}

func TestBrowse_TagFilterReachesStorageWithCountIntact(t *testing.T) {
	db := new(MockDatabaseStorage)
	registry := newRegistry(t, db)

	// tag matching runs in SQL, so the storage total is authoritative and
	// must come back untouched
	db.On("FindRegistryEntries", mock.Anything, mock.MatchedBy(func(filters itypes.RegistryFilters) bool {
		return filters.Tags.Contains("events")
	}), "user-1", 20, 0).Return(itypes.RegistryPaginatedList{
		Entries:    []itypes.RegistryEntry{{Slug: "event-wall", Tags: itypes.StringList{"events"}}},
		TotalCount: 7,
	}, nil)

	list, err := registry.Browse(context.Background(), ownerIdentity, itypes.RegistryFilters{
		Tags: itypes.StringList{"events"},
	}, 0, 0)

	require.NoError(t, err)
	assert.Len(t, list.Entries, 1)
	assert.Equal(t, 7, list.TotalCount)
	db.AssertExpectations(t)
}

func TestGetBySlug_PrivateEntryHiddenFromStrangers(t *testing.T) {
	db := new(MockDatabaseStorage)
	registry := newRegistry(t, db)
	blockID := uuid.New()

	db.On("FindRegistryEntryBySlug", mock.Anything, "secret-app").Return(&itypes.RegistryEntryWithProvider{
		RegistryEntry: itypes.RegistryEntry{
			AppBlockID: blockID,
			Slug:       "secret-app",
			Visibility: itypes.VisibilityPrivate,
		},
	}, nil)
	db.On("FindAppBlockById", mock.Anything, blockID).Return(ownedBlock(blockID, "user-1"), nil)

	// the owner sees it
	entry, err := registry.GetBySlug(context.Background(), ownerIdentity, "secret-app")
	require.NoError(t, err)
	assert.Equal(t, "secret-app", entry.Slug)

	// everyone else gets the same answer as for a missing slug
	_, err = registry.GetBySlug(context.Background(), strangerIdentity, "secret-app")
	assert.ErrorIs(t, err, service.ErrRegistryEntryNotFound)
}

func TestGetBySlug_UnlistedRetrievableByAnyone(t *testing.T) {
	db := new(MockDatabaseStorage)
	registry := newRegistry(t, db)

	db.On("FindRegistryEntryBySlug", mock.Anything, "quiet-app").Return(&itypes.RegistryEntryWithProvider{
		RegistryEntry: itypes.RegistryEntry{
			Slug:       "quiet-app",
			Visibility: itypes.VisibilityUnlisted,
		},
	}, nil)

	entry, err := registry.GetBySlug(context.Background(), strangerIdentity, "quiet-app")
	require.NoError(t, err)
	assert.Equal(t, "quiet-app", entry.Slug)
}

func TestPublish_RequiresProviderSurface(t *testing.T) {
	db := new(MockDatabaseStorage)
	registry := newRegistry(t, db)
	blockID := uuid.New()

	db.On("FindAppBlockById", mock.Anything, blockID).Return(ownedBlock(blockID, "user-1"), nil)
	db.On("GetProviderConfig", mock.Anything, blockID).Return(nil, nil)

	_, err := registry.Publish(context.Background(), ownerIdentity, blockID, itypes.RegistryPublishDto{
		Slug:     "my-app",
		Title:    "My App",
		Category: "tools",
	})

	_, ok := service.AsValidationError(err)
	assert.True(t, ok)
}

func TestPublish_SanitizesListingText(t *testing.T) {
	db := new(MockDatabaseStorage)
	registry := newRegistry(t, db)
	blockID := uuid.New()

	db.On("FindAppBlockById", mock.Anything, blockID).Return(ownedBlock(blockID, "user-1"), nil)
	db.On("GetProviderConfig", mock.Anything, blockID).Return(&itypes.ProviderConfig{AppBlockID: blockID}, nil)
	db.On("CreateRegistryEntry", mock.Anything, mock.MatchedBy(func(entry itypes.RegistryEntry) bool {
		return entry.Title == "My App" && entry.Visibility == itypes.VisibilityPublic
	})).Return(&itypes.RegistryEntry{Slug: "my-app", Title: "My App"}, nil)

	entry, err := registry.Publish(context.Background(), ownerIdentity, blockID, itypes.RegistryPublishDto{
		Slug:     "my-app",
		Title:    `My App<script>alert("x")</script>`,
		Category: "tools",
	})

	require.NoError(t, err)
	assert.Equal(t, "my-app", entry.Slug)
	db.AssertExpectations(t)
}

func TestUnpublish_OnlyOwner(t *testing.T) {
	db := new(MockDatabaseStorage)
	registry := newRegistry(t, db)
	blockID := uuid.New()

	db.On("FindAppBlockById", mock.Anything, blockID).Return(ownedBlock(blockID, "user-1"), nil)

	err := registry.Unpublish(context.Background(), strangerIdentity, blockID)
	assert.ErrorIs(t, err, service.ErrNotOwner)
	db.AssertNotCalled(t, "DeleteRegistryEntry", mock.Anything, mock.Anything)
}
