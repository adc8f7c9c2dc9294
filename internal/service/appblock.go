package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/buidl-renaissance/appblocks/internal/storage"
	itypes "github.com/buidl-renaissance/appblocks/internal/types"
)

type AppBlocks interface {
	CreateAppBlock(ctx context.Context, identity itypes.Identity, dto itypes.AppBlockCreateDto) (*itypes.AppBlock, error)
	GetAppBlock(ctx context.Context, identity itypes.Identity, id uuid.UUID) (*itypes.AppBlock, error)
	ListAppBlocks(ctx context.Context, identity itypes.Identity) ([]itypes.AppBlock, error)
	CreateProvider(ctx context.Context, identity itypes.Identity, appBlockID uuid.UUID, dto itypes.ProviderCreateDto) (*itypes.ProviderConfig, error)
	GetProvider(ctx context.Context, appBlockID uuid.UUID) (*itypes.ProviderConfig, error)
	UpdateProvider(ctx context.Context, identity itypes.Identity, appBlockID uuid.UUID, dto itypes.ProviderUpdateDto) (*itypes.ProviderConfig, error)
	ReplaceProviderScopes(ctx context.Context, identity itypes.Identity, appBlockID uuid.UUID, scopes []itypes.Scope) error
	DeleteProvider(ctx context.Context, identity itypes.Identity, appBlockID uuid.UUID) error
}

var _ AppBlocks = (*AppBlockService)(nil)

// AppBlockService manages app blocks and their optional provider surface.
type AppBlockService struct {
	db     storage.DatabaseStorage
	logger *logrus.Logger
}

func NewAppBlockService(db storage.DatabaseStorage) (*AppBlockService, error) {
	if db == nil {
		return nil, fmt.Errorf("database storage cannot be nil")
	}
	return &AppBlockService{
		db:     db,
		logger: logrus.WithField("service", "appblock").Logger,
	}, nil
}

func (s *AppBlockService) CreateAppBlock(ctx context.Context, identity itypes.Identity, dto itypes.AppBlockCreateDto) (*itypes.AppBlock, error) {
	block := itypes.AppBlock{
		ID:              uuid.New(),
		Name:            dto.Name,
		OwnerID:         identity.UserID,
		Icon:            dto.Icon,
		ServiceIdentity: dto.ServiceIdentity,
	}
	created, err := s.db.CreateAppBlock(ctx, block)
	if err != nil {
		return nil, fmt.Errorf("failed to create app block: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"app_block_id": created.ID,
		"owner_id":     identity.UserID,
	}).Info("app block created")
	return created, nil
}

func (s *AppBlockService) GetAppBlock(ctx context.Context, identity itypes.Identity, id uuid.UUID) (*itypes.AppBlock, error) {
	block, err := s.db.FindAppBlockById(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get app block: %w", err)
	}
	if block == nil {
		return nil, ErrAppBlockNotFound
	}
	if block.OwnerID != identity.UserID {
		return nil, ErrNotOwner
	}
	return block, nil
}

func (s *AppBlockService) ListAppBlocks(ctx context.Context, identity itypes.Identity) ([]itypes.AppBlock, error) {
	blocks, err := s.db.FindAppBlocksByOwner(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list app blocks: %w", err)
	}
	return blocks, nil
}

// CreateProvider declares the capability surface of an app block: its API
// endpoint plus the scopes it offers. Config and scopes land atomically.
func (s *AppBlockService) CreateProvider(ctx context.Context, identity itypes.Identity, appBlockID uuid.UUID, dto itypes.ProviderCreateDto) (*itypes.ProviderConfig, error) {
	if err := s.requireOwner(ctx, identity, appBlockID); err != nil {
		return nil, err
	}

	existing, err := s.db.GetProviderConfig(ctx, appBlockID)
	if err != nil {
		return nil, fmt.Errorf("failed to get provider config: %w", err)
	}
	if existing != nil {
		return nil, NewValidationError("app_block_id", "app block already has a provider surface")
	}

	if err := validateScopeCatalog(dto.Scopes); err != nil {
		return nil, err
	}

	cfg := itypes.ProviderConfig{
		AppBlockID:         appBlockID,
		BaseAPIURL:         dto.BaseAPIURL,
		APIVersion:         dto.APIVersion,
		AuthMethods:        itypes.StringList(dto.AuthMethods).Normalize(),
		RateLimitPerMinute: dto.RateLimitPerMinute,
		Status:             itypes.ProviderStatusActive,
	}

	var created *itypes.ProviderConfig
	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		created, err = s.db.CreateProviderTx(ctx, tx, cfg)
		if err != nil {
			return fmt.Errorf("failed to create provider: %w", err)
		}
		return s.db.ReplaceProviderScopesTx(ctx, tx, appBlockID, dto.Scopes)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"app_block_id": appBlockID,
		"scopes":       len(dto.Scopes),
	}).Info("provider surface created")
	return created, nil
}

func (s *AppBlockService) GetProvider(ctx context.Context, appBlockID uuid.UUID) (*itypes.ProviderConfig, error) {
	cfg, err := s.db.GetProviderConfig(ctx, appBlockID)
	if err != nil {
		return nil, fmt.Errorf("failed to get provider config: %w", err)
	}
	if cfg == nil {
		return nil, ErrProviderNotFound
	}
	return cfg, nil
}

func (s *AppBlockService) UpdateProvider(ctx context.Context, identity itypes.Identity, appBlockID uuid.UUID, dto itypes.ProviderUpdateDto) (*itypes.ProviderConfig, error) {
	if err := s.requireOwner(ctx, identity, appBlockID); err != nil {
		return nil, err
	}
	updated, err := s.db.UpdateProviderConfig(ctx, appBlockID, dto)
	if err != nil {
		return nil, fmt.Errorf("failed to update provider config: %w", err)
	}
	if updated == nil {
		return nil, ErrProviderNotFound
	}
	return updated, nil
}

// ReplaceProviderScopes swaps the offered scope catalog. Existing grants
// keep their recorded scope names; tokens narrow at issuance time because
// issuance intersects against grants, not the live catalog.
func (s *AppBlockService) ReplaceProviderScopes(ctx context.Context, identity itypes.Identity, appBlockID uuid.UUID, scopes []itypes.Scope) error {
	if err := s.requireOwner(ctx, identity, appBlockID); err != nil {
		return err
	}
	if err := validateScopeCatalog(scopes); err != nil {
		return err
	}
	cfg, err := s.db.GetProviderConfig(ctx, appBlockID)
	if err != nil {
		return fmt.Errorf("failed to get provider config: %w", err)
	}
	if cfg == nil {
		return ErrProviderNotFound
	}
	return s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.db.ReplaceProviderScopesTx(ctx, tx, appBlockID, scopes)
	})
}

// DeleteProvider tears down the surface and revokes every live installation
// pointed at it in the same transaction.
func (s *AppBlockService) DeleteProvider(ctx context.Context, identity itypes.Identity, appBlockID uuid.UUID) error {
	if err := s.requireOwner(ctx, identity, appBlockID); err != nil {
		return err
	}
	cfg, err := s.db.GetProviderConfig(ctx, appBlockID)
	if err != nil {
		return fmt.Errorf("failed to get provider config: %w", err)
	}
	if cfg == nil {
		return ErrProviderNotFound
	}

	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		revoked, err := s.db.RevokeInstallationsForAppBlockTx(ctx, tx, appBlockID)
		if err != nil {
			return fmt.Errorf("failed to revoke installations: %w", err)
		}
		if revoked > 0 {
			s.logger.WithFields(logrus.Fields{
				"app_block_id": appBlockID,
				"count":        revoked,
			}).Info("revoked installations for deleted provider")
		}
		return s.db.DeleteProviderTx(ctx, tx, appBlockID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete provider: %w", err)
	}
	return nil
}

func (s *AppBlockService) requireOwner(ctx context.Context, identity itypes.Identity, appBlockID uuid.UUID) error {
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

func validateScopeCatalog(scopes []itypes.Scope) error {
	seen := make(map[string]bool, len(scopes))
	for _, scope := range scopes {
		if scope.Name == "" {
			return NewValidationError("scopes", "scope name cannot be empty")
		}
		if seen[scope.Name] {
			return NewValidationError("scopes", "duplicate scope name", scope.Name)
		}
		seen[scope.Name] = true
		if scope.RequiredRole != "" && scope.RequiredRole.Level() == 0 {
			return NewValidationError("scopes", "unknown required role", string(scope.RequiredRole))
		}
	}
	return nil
}
