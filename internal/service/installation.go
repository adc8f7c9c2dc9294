package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/buidl-renaissance/appblocks/internal/storage"
	itypes "github.com/buidl-renaissance/appblocks/internal/types"
)

// serviceAuthDefaultTTL caps service-level grants that the caller did not
// bound explicitly, so the expiry sweep always has something to act on.
const serviceAuthDefaultTTL = 90 * 24 * time.Hour

type Installer interface {
	InstallConnector(ctx context.Context, identity itypes.Identity, appBlockID uuid.UUID, dto itypes.ConnectorInstallDto) (*itypes.InstallResult[itypes.ConnectorInstallation], error)
	InstallAppBlock(ctx context.Context, identity itypes.Identity, consumerID uuid.UUID, dto itypes.AppBlockInstallDto) (*itypes.InstallResult[itypes.AppBlockInstallation], error)
	ListConnectorInstallations(ctx context.Context, identity itypes.Identity, appBlockID uuid.UUID) ([]itypes.ConnectorInstallation, error)
	ListConsumerInstallations(ctx context.Context, identity itypes.Identity, consumerID uuid.UUID) ([]itypes.AppBlockInstallation, error)
	ListProviderInstallations(ctx context.Context, identity itypes.Identity, providerID uuid.UUID) ([]itypes.AppBlockInstallation, error)
	Approve(ctx context.Context, identity itypes.Identity, installationID uuid.UUID) (*itypes.AppBlockInstallation, error)
	Reject(ctx context.Context, identity itypes.Identity, installationID uuid.UUID) error
	RevokeConnectorInstallation(ctx context.Context, identity itypes.Identity, installationID uuid.UUID) error
	RevokeAppBlockInstallation(ctx context.Context, identity itypes.Identity, installationID uuid.UUID) error
	MarkError(ctx context.Context, installationID uuid.UUID) error
	Touch(ctx context.Context, kind string, installationID uuid.UUID) error
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
	DeleteAppBlock(ctx context.Context, identity itypes.Identity, appBlockID uuid.UUID) error
}

var _ Installer = (*InstallationService)(nil)

// InstallationService owns the grant lifecycle: validation at install time,
// the pending approval handshake, revocation, and expiry. All mutations go
// through the status state machine.
type InstallationService struct {
	db      storage.DatabaseStorage
	catalog Catalog
	logger  *logrus.Logger
}

func NewInstallationService(db storage.DatabaseStorage, catalog Catalog) (*InstallationService, error) {
	if db == nil {
		return nil, fmt.Errorf("database storage cannot be nil")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog cannot be nil")
	}
	return &InstallationService{
		db:      db,
		catalog: catalog,
		logger:  logrus.WithField("service", "installation").Logger,
	}, nil
}

// InstallConnector grants an app block a scope set on a first-party
// connector. Idempotent per (app block, connector): reinstalling while a
// live row exists replaces its grant instead of stacking a second one.
func (s *InstallationService) InstallConnector(ctx context.Context, identity itypes.Identity, appBlockID uuid.UUID, dto itypes.ConnectorInstallDto) (*itypes.InstallResult[itypes.ConnectorInstallation], error) {
	if err := s.requireOwner(ctx, identity, appBlockID); err != nil {
		return nil, err
	}

	connector, err := s.db.FindConnectorById(ctx, dto.ConnectorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get connector: %w", err)
	}
	if connector == nil {
		return nil, ErrConnectorNotFound
	}
	if !connector.Active {
		return nil, NewValidationError("connector_id", "connector is not active")
	}

	authType := itypes.AuthMethod(dto.AuthType)
	if !authType.Valid() {
		return nil, NewValidationError("auth_type", "must be user or service")
	}
	if !connector.SupportsAuthMethod(authType) {
		return nil, NewValidationError("auth_type", fmt.Sprintf("connector does not support %s auth", authType))
	}

	requested := itypes.StringList(dto.Scopes)
	if dto.RecipeID != "" {
		requested, err = s.catalog.ResolveRecipe(ctx, dto.ConnectorID, dto.RecipeID)
		if err != nil {
			return nil, err
		}
	}
	if len(requested) == 0 {
		return nil, NewValidationError("scopes", "at least one scope or a recipe is required")
	}

	offered, err := s.db.GetConnectorScopes(ctx, dto.ConnectorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get connector scopes: %w", err)
	}

	validation := itypes.ValidateScopes(offered, requested, identity.Role)
	if len(validation.Unknown) > 0 {
		return nil, NewValidationError("scopes", "unknown scope names", validation.Unknown...)
	}
	if len(validation.Accepted) == 0 {
		return nil, NewValidationError("scopes", "no requested scope is grantable by your role", validation.Unauthorized...)
	}

	inst := itypes.ConnectorInstallation{
		ID:            uuid.New(),
		AppBlockID:    appBlockID,
		ConnectorID:   dto.ConnectorID,
		GrantedScopes: validation.Accepted,
		AuthType:      authType,
		Status:        itypes.InstallationStatusActive,
		ExpiresAt:     defaultExpiry(authType),
	}

	saved, err := s.db.UpsertConnectorInstallation(ctx, inst)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert connector installation: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"app_block_id": appBlockID,
		"connector_id": dto.ConnectorID,
		"scopes":       len(saved.GrantedScopes),
	}).Info("connector installed")

	return &itypes.InstallResult[itypes.ConnectorInstallation]{
		Installation: *saved,
		Rejected:     validation.Unauthorized,
	}, nil
}

// InstallAppBlock grants a consumer app block a scope set on a provider app
// block. The grant starts pending when the provider's registry listing
// requires approval, active otherwise.
func (s *InstallationService) InstallAppBlock(ctx context.Context, identity itypes.Identity, consumerID uuid.UUID, dto itypes.AppBlockInstallDto) (*itypes.InstallResult[itypes.AppBlockInstallation], error) {
	if err := s.requireOwner(ctx, identity, consumerID); err != nil {
		return nil, err
	}
	if consumerID == dto.ProviderAppBlockID {
		return nil, NewValidationError("provider_app_block_id", "an app block cannot install itself")
	}

	provider, err := s.db.GetProviderConfig(ctx, dto.ProviderAppBlockID)
	if err != nil {
		return nil, fmt.Errorf("failed to get provider config: %w", err)
	}
	if provider == nil {
		return nil, ErrProviderNotFound
	}
	if provider.Status != itypes.ProviderStatusActive {
		return nil, ErrProviderNotInstallable
	}

	authType := itypes.AuthMethod(dto.AuthType)
	if !authType.Valid() {
		return nil, NewValidationError("auth_type", "must be user or service")
	}
	if !provider.SupportsAuthMethod(authType) {
		return nil, NewValidationError("auth_type", fmt.Sprintf("provider does not support %s auth", authType))
	}

	// An absent listing means the provider is directly addressable and
	// installs without approval; the listing only adds gates.
	requiresApproval := false
	entry, err := s.db.GetRegistryEntry(ctx, dto.ProviderAppBlockID)
	if err != nil {
		return nil, fmt.Errorf("failed to get registry entry: %w", err)
	}
	if entry != nil {
		if !entry.Installable {
			return nil, ErrProviderNotInstallable
		}
		requiresApproval = entry.RequiresApproval
	}

	offered, err := s.db.GetProviderScopes(ctx, dto.ProviderAppBlockID)
	if err != nil {
		return nil, fmt.Errorf("failed to get provider scopes: %w", err)
	}

	validation := itypes.ValidateScopes(offered, itypes.StringList(dto.Scopes), identity.Role)
	if len(validation.Unknown) > 0 {
		return nil, NewValidationError("scopes", "unknown scope names", validation.Unknown...)
	}
	if len(validation.Accepted) == 0 {
		return nil, NewValidationError("scopes", "no requested scope is grantable by your role", validation.Unauthorized...)
	}

	status := itypes.InstallationStatusActive
	if requiresApproval {
		status = itypes.InstallationStatusPending
	}

	inst := itypes.AppBlockInstallation{
		ID:            uuid.New(),
		ConsumerID:    consumerID,
		ProviderID:    dto.ProviderAppBlockID,
		GrantedScopes: validation.Accepted,
		AuthType:      authType,
		Status:        status,
		ExpiresAt:     defaultExpiry(authType),
	}

	saved, err := s.db.UpsertAppBlockInstallation(ctx, inst)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert app block installation: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"consumer_id": consumerID,
		"provider_id": dto.ProviderAppBlockID,
		"status":      saved.Status,
	}).Info("app block installed")

	return &itypes.InstallResult[itypes.AppBlockInstallation]{
		Installation: *saved,
		Rejected:     validation.Unauthorized,
	}, nil
}

func (s *InstallationService) ListConnectorInstallations(ctx context.Context, identity itypes.Identity, appBlockID uuid.UUID) ([]itypes.ConnectorInstallation, error) {
	if err := s.requireOwner(ctx, identity, appBlockID); err != nil {
		return nil, err
	}
	installations, err := s.db.FindConnectorInstallations(ctx, appBlockID)
	if err != nil {
		return nil, fmt.Errorf("failed to list connector installations: %w", err)
	}
	return installations, nil
}

func (s *InstallationService) ListConsumerInstallations(ctx context.Context, identity itypes.Identity, consumerID uuid.UUID) ([]itypes.AppBlockInstallation, error) {
	if err := s.requireOwner(ctx, identity, consumerID); err != nil {
		return nil, err
	}
	installations, err := s.db.FindAppBlockInstallationsByConsumer(ctx, consumerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list consumer installations: %w", err)
	}
	return installations, nil
}

func (s *InstallationService) ListProviderInstallations(ctx context.Context, identity itypes.Identity, providerID uuid.UUID) ([]itypes.AppBlockInstallation, error) {
	if err := s.requireOwner(ctx, identity, providerID); err != nil {
		return nil, err
	}
	installations, err := s.db.FindAppBlockInstallationsByProvider(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list provider installations: %w", err)
	}
	return installations, nil
}

// Approve moves a pending installation to active. Only the provider owner
// may approve, and only from pending.
func (s *InstallationService) Approve(ctx context.Context, identity itypes.Identity, installationID uuid.UUID) (*itypes.AppBlockInstallation, error) {
	inst, err := s.getAppBlockInstallation(ctx, installationID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(ctx, identity, inst.ProviderID); err != nil {
		return nil, err
	}
	if inst.Status != itypes.InstallationStatusPending {
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	if err := s.db.UpdateAppBlockInstallationStatus(ctx, installationID, itypes.InstallationStatusActive, &now); err != nil {
		return nil, fmt.Errorf("failed to approve installation: %w", err)
	}

	inst.Status = itypes.InstallationStatusActive
	inst.ApprovedAt = &now
	s.logger.WithField("installation_id", installationID).Info("installation approved")
	return inst, nil
}

// Reject discards a pending installation. The row ends revoked so the pair
// frees up for a fresh request.
func (s *InstallationService) Reject(ctx context.Context, identity itypes.Identity, installationID uuid.UUID) error {
	inst, err := s.getAppBlockInstallation(ctx, installationID)
	if err != nil {
		return err
	}
	if err := s.requireOwner(ctx, identity, inst.ProviderID); err != nil {
		return err
	}
	if inst.Status != itypes.InstallationStatusPending {
		return ErrInvalidTransition
	}
	if err := s.db.UpdateAppBlockInstallationStatus(ctx, installationID, itypes.InstallationStatusRevoked, nil); err != nil {
		return fmt.Errorf("failed to reject installation: %w", err)
	}
	s.logger.WithField("installation_id", installationID).Info("installation rejected")
	return nil
}

// RevokeConnectorInstallation is idempotent: revoking an already terminal
// installation succeeds without touching the row.
func (s *InstallationService) RevokeConnectorInstallation(ctx context.Context, identity itypes.Identity, installationID uuid.UUID) error {
	inst, err := s.db.GetConnectorInstallation(ctx, installationID)
	if err != nil {
		return fmt.Errorf("failed to get connector installation: %w", err)
	}
	if inst == nil {
		return ErrInstallationNotFound
	}
	if err := s.requireOwner(ctx, identity, inst.AppBlockID); err != nil {
		return err
	}
	if inst.Status.Terminal() {
		return nil
	}
	if err := s.db.UpdateConnectorInstallationStatus(ctx, installationID, itypes.InstallationStatusRevoked); err != nil {
		return fmt.Errorf("failed to revoke connector installation: %w", err)
	}
	s.logger.WithField("installation_id", installationID).Info("connector installation revoked")
	return nil
}

// RevokeAppBlockInstallation may be called by either side of the grant:
// the consumer owner or the provider owner.
func (s *InstallationService) RevokeAppBlockInstallation(ctx context.Context, identity itypes.Identity, installationID uuid.UUID) error {
	inst, err := s.getAppBlockInstallation(ctx, installationID)
	if err != nil {
		return err
	}
	if err := s.requireEitherOwner(ctx, identity, inst.ConsumerID, inst.ProviderID); err != nil {
		return err
	}
	if inst.Status.Terminal() {
		return nil
	}
	if err := s.db.UpdateAppBlockInstallationStatus(ctx, installationID, itypes.InstallationStatusRevoked, nil); err != nil {
		return fmt.Errorf("failed to revoke installation: %w", err)
	}
	s.logger.WithField("installation_id", installationID).Info("app block installation revoked")
	return nil
}

// MarkError flags an active installation whose provider stopped responding.
// Recovery back to active happens through the health probe or a reinstall.
func (s *InstallationService) MarkError(ctx context.Context, installationID uuid.UUID) error {
	inst, err := s.getAppBlockInstallation(ctx, installationID)
	if err != nil {
		return err
	}
	if !inst.Status.CanTransitionTo(itypes.InstallationStatusError) {
		return ErrInvalidTransition
	}
	if err := s.db.UpdateAppBlockInstallationStatus(ctx, installationID, itypes.InstallationStatusError, nil); err != nil {
		return fmt.Errorf("failed to mark installation errored: %w", err)
	}
	return nil
}

// Touch records a use of the grant. Failures are not surfaced to the data
// path; the worker retries.
func (s *InstallationService) Touch(ctx context.Context, kind string, installationID uuid.UUID) error {
	switch kind {
	case "connector":
		return s.db.TouchConnectorInstallation(ctx, installationID)
	case "app_block":
		return s.db.TouchAppBlockInstallation(ctx, installationID)
	default:
		return fmt.Errorf("unknown installation kind: %s", kind)
	}
}

// ExpireOverdue sweeps live installations whose expires_at has passed.
func (s *InstallationService) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.db.ExpireOverdueInstallations(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire installations: %w", err)
	}
	if n > 0 {
		s.logger.WithField("count", n).Info("expired overdue installations")
	}
	return n, nil
}

// DeleteAppBlock removes the block and atomically revokes every live
// installation where it appears as consumer or provider. Issued tokens keep
// their rows but fail validation once the backing grants are gone.
func (s *InstallationService) DeleteAppBlock(ctx context.Context, identity itypes.Identity, appBlockID uuid.UUID) error {
	if err := s.requireOwner(ctx, identity, appBlockID); err != nil {
		return err
	}

	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		revoked, err := s.db.RevokeInstallationsForAppBlockTx(ctx, tx, appBlockID)
		if err != nil {
			return fmt.Errorf("failed to revoke installations: %w", err)
		}
		if revoked > 0 {
			s.logger.WithFields(logrus.Fields{
				"app_block_id": appBlockID,
				"count":        revoked,
			}).Info("revoked installations for deleted app block")
		}
		return s.db.DeleteAppBlockTx(ctx, tx, appBlockID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete app block: %w", err)
	}

	s.logger.WithField("app_block_id", appBlockID).Info("app block deleted")
	return nil
}

func (s *InstallationService) getAppBlockInstallation(ctx context.Context, id uuid.UUID) (*itypes.AppBlockInstallation, error) {
	inst, err := s.db.GetAppBlockInstallation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get installation: %w", err)
	}
	if inst == nil {
		return nil, ErrInstallationNotFound
	}
	return inst, nil
}

func (s *InstallationService) requireOwner(ctx context.Context, identity itypes.Identity, appBlockID uuid.UUID) error {
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

func (s *InstallationService) requireEitherOwner(ctx context.Context, identity itypes.Identity, consumerID, providerID uuid.UUID) error {
	if err := s.requireOwner(ctx, identity, consumerID); err == nil {
		return nil
	}
	return s.requireOwner(ctx, identity, providerID)
}

func defaultExpiry(authType itypes.AuthMethod) *time.Time {
	if authType != itypes.AuthMethodService {
		return nil
	}
	t := time.Now().Add(serviceAuthDefaultTTL)
	return &t
}
