package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"

	"github.com/buidl-renaissance/appblocks/internal/storage"
	itypes "github.com/buidl-renaissance/appblocks/internal/types"
)

type Registry interface {
	Browse(ctx context.Context, identity itypes.Identity, filters itypes.RegistryFilters, take int, skip int) (itypes.RegistryPaginatedList, error)
	GetBySlug(ctx context.Context, identity itypes.Identity, slug string) (*itypes.RegistryEntryWithProvider, error)
	Publish(ctx context.Context, identity itypes.Identity, appBlockID uuid.UUID, dto itypes.RegistryPublishDto) (*itypes.RegistryEntry, error)
	Update(ctx context.Context, identity itypes.Identity, appBlockID uuid.UUID, dto itypes.RegistryUpdateDto) (*itypes.RegistryEntry, error)
	Unpublish(ctx context.Context, identity itypes.Identity, appBlockID uuid.UUID) error
}

var _ Registry = (*RegistryService)(nil)

type RegistryService struct {
	db        storage.DatabaseStorage
	sanitizer *bluemonday.Policy
	logger    *logrus.Logger
}

func NewRegistryService(db storage.DatabaseStorage) (*RegistryService, error) {
	if db == nil {
		return nil, fmt.Errorf("database storage cannot be nil")
	}
	return &RegistryService{
		db:        db,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logrus.WithField("service", "registry").Logger,
	}, nil
}

// Browse lists registry entries visible to the caller. Visibility is
// enforced server-side: a client-supplied visibility filter can only narrow
// the already visible set, never widen it.
func (s *RegistryService) Browse(ctx context.Context, identity itypes.Identity, filters itypes.RegistryFilters, take int, skip int) (itypes.RegistryPaginatedList, error) {
	if take <= 0 || take > 100 {
		take = 20
	}
	if skip < 0 {
		skip = 0
	}
	list, err := s.db.FindRegistryEntries(ctx, filters, identity.UserID, take, skip)
	if err != nil {
		return itypes.RegistryPaginatedList{}, fmt.Errorf("failed to browse registry: %w", err)
	}
	return list, nil
}

// GetBySlug returns the listing with its provider surface. Unlisted entries
// are retrievable by anyone who knows the slug; private entries only by the
// owner, and the response for everyone else is indistinguishable from a
// missing entry.
func (s *RegistryService) GetBySlug(ctx context.Context, identity itypes.Identity, slug string) (*itypes.RegistryEntryWithProvider, error) {
	entry, err := s.db.FindRegistryEntryBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to get registry entry: %w", err)
	}
	if entry == nil {
		return nil, ErrRegistryEntryNotFound
	}
	if entry.Visibility == itypes.VisibilityPrivate {
		block, err := s.db.FindAppBlockById(ctx, entry.AppBlockID)
		if err != nil {
			return nil, fmt.Errorf("failed to get app block: %w", err)
		}
		if block == nil || block.OwnerID != identity.UserID {
			return nil, ErrRegistryEntryNotFound
		}
	}
	return entry, nil
}

func (s *RegistryService) Publish(ctx context.Context, identity itypes.Identity, appBlockID uuid.UUID, dto itypes.RegistryPublishDto) (*itypes.RegistryEntry, error) {
	block, err := s.db.FindAppBlockById(ctx, appBlockID)
	if err != nil {
		return nil, fmt.Errorf("failed to get app block: %w", err)
	}
	if block == nil {
		return nil, ErrAppBlockNotFound
	}
	if block.OwnerID != identity.UserID {
		return nil, ErrNotOwner
	}

	provider, err := s.db.GetProviderConfig(ctx, appBlockID)
	if err != nil {
		return nil, fmt.Errorf("failed to get provider config: %w", err)
	}
	if provider == nil {
		return nil, NewValidationError("provider", "app block has no provider surface to list")
	}

	visibility := itypes.VisibilityPublic
	if dto.Visibility != "" {
		visibility = itypes.RegistryVisibility(dto.Visibility)
	}
	installable := true
	if dto.Installable != nil {
		installable = *dto.Installable
	}

	entry := itypes.RegistryEntry{
		AppBlockID:       appBlockID,
		Slug:             dto.Slug,
		Title:            s.sanitizer.Sanitize(dto.Title),
		Description:      s.sanitizer.Sanitize(dto.Description),
		Category:         dto.Category,
		Tags:             itypes.StringList(dto.Tags).Normalize(),
		Visibility:       visibility,
		Installable:      installable,
		RequiresApproval: dto.RequiresApproval,
	}

	created, err := s.db.CreateRegistryEntry(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("failed to publish registry entry: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"app_block_id": appBlockID,
		"slug":         created.Slug,
	}).Info("published registry entry")
	return created, nil
}

func (s *RegistryService) Update(ctx context.Context, identity itypes.Identity, appBlockID uuid.UUID, dto itypes.RegistryUpdateDto) (*itypes.RegistryEntry, error) {
	if err := s.requireOwner(ctx, identity, appBlockID); err != nil {
		return nil, err
	}

	if dto.Title != nil {
		clean := s.sanitizer.Sanitize(*dto.Title)
		dto.Title = &clean
	}
	if dto.Description != nil {
		clean := s.sanitizer.Sanitize(*dto.Description)
		dto.Description = &clean
	}

	updated, err := s.db.UpdateRegistryEntry(ctx, appBlockID, dto)
	if err != nil {
		return nil, fmt.Errorf("failed to update registry entry: %w", err)
	}
	if updated == nil {
		return nil, ErrRegistryEntryNotFound
	}
	return updated, nil
}

func (s *RegistryService) Unpublish(ctx context.Context, identity itypes.Identity, appBlockID uuid.UUID) error {
	if err := s.requireOwner(ctx, identity, appBlockID); err != nil {
		return err
	}
	if err := s.db.DeleteRegistryEntry(ctx, appBlockID); err != nil {
		return fmt.Errorf("failed to unpublish registry entry: %w", err)
	}
	return nil
}

func (s *RegistryService) requireOwner(ctx context.Context, identity itypes.Identity, appBlockID uuid.UUID) error {
	block, err := s.db.FindAppBlockById(ctx, appBlockID)
	if err != nil {
		return fmt.Errorf("failed to get app block: %w", err)
	}
	if block == nil {
		return ErrAppBlockNotFound
	}
	if block.OwnerID != identity.UserID {
		return ErrNotOwner
	}
	return nil
}
