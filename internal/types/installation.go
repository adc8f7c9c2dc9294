package types

import (
	"time"

	"github.com/google/uuid"
)

// InstallationStatus is the lifecycle state of a grant.
//
//	pending -> active -> {expired, revoked, error}
//	active <-> error (re-auth recovers an errored installation)
//
// revoked and expired are terminal; the only way forward from them is a
// brand-new installation.
type InstallationStatus string

const (
	InstallationStatusPending InstallationStatus = "pending"
	InstallationStatusActive  InstallationStatus = "active"
	InstallationStatusExpired InstallationStatus = "expired"
	InstallationStatusRevoked InstallationStatus = "revoked"
	InstallationStatusError   InstallationStatus = "error"
)

// Terminal reports whether no further transition is allowed out of s.
func (s InstallationStatus) Terminal() bool {
	return s == InstallationStatusRevoked || s == InstallationStatusExpired
}

// Live reports whether the installation still occupies the (consumer,
// provider) pair: at most one live row may exist per pair.
func (s InstallationStatus) Live() bool {
	return s == InstallationStatusPending || s == InstallationStatusActive || s == InstallationStatusError
}

// CanTransitionTo enforces the state machine edges.
func (s InstallationStatus) CanTransitionTo(next InstallationStatus) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case InstallationStatusPending:
		return next == InstallationStatusActive || next == InstallationStatusRevoked || next == InstallationStatusExpired
	case InstallationStatusActive:
		return next == InstallationStatusError || next == InstallationStatusRevoked || next == InstallationStatusExpired
	case InstallationStatusError:
		return next == InstallationStatusActive || next == InstallationStatusRevoked || next == InstallationStatusExpired
	default:
		return false
	}
}

// ConnectorInstallation binds an app block to a first-party connector.
// Unique per (app block, connector) pair; reinstalling updates the row.
type ConnectorInstallation struct {
	ID            uuid.UUID          `json:"id"`
	AppBlockID    uuid.UUID          `json:"app_block_id"`
	ConnectorID   string             `json:"connector_id"`
	GrantedScopes StringList         `json:"granted_scopes"`
	AuthType      AuthMethod         `json:"auth_type"`
	Status        InstallationStatus `json:"status"`
	LastUsedAt    *time.Time         `json:"last_used_at,omitempty"`
	ExpiresAt     *time.Time         `json:"expires_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// AppBlockInstallation binds a consumer app block to a provider app block.
// Unique per (consumer, provider) pair; may sit in pending until the
// provider owner approves.
type AppBlockInstallation struct {
	ID            uuid.UUID          `json:"id"`
	ConsumerID    uuid.UUID          `json:"consumer_id"`
	ProviderID    uuid.UUID          `json:"provider_id"`
	GrantedScopes StringList         `json:"granted_scopes"`
	AuthType      AuthMethod         `json:"auth_type"`
	Status        InstallationStatus `json:"status"`
	ApprovedAt    *time.Time         `json:"approved_at,omitempty"`
	LastUsedAt    *time.Time         `json:"last_used_at,omitempty"`
	ExpiresAt     *time.Time         `json:"expires_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

type ConnectorInstallDto struct {
	ConnectorID string   `json:"connector_id" validate:"required"`
	RecipeID    string   `json:"recipe_id"`
	Scopes      []string `json:"scopes"`
	AuthType    string   `json:"auth_type" validate:"required,oneof=user service"`
}

type AppBlockInstallDto struct {
	ProviderAppBlockID uuid.UUID `json:"provider_app_block_id" validate:"required"`
	Scopes             []string  `json:"scopes" validate:"required,min=1"`
	AuthType           string    `json:"auth_type" validate:"required,oneof=user service"`
}

// InstallResult pairs the persisted installation with the scope names that
// were requested but not granted, so callers can retry with a corrected
// subset.
type InstallResult[T any] struct {
	Installation T          `json:"installation"`
	Rejected     StringList `json:"rejected_scopes,omitempty"`
}

// ConsentScope is the presentation projection for the consent step: one
// offered scope with whether the current operator may select it.
type ConsentScope struct {
	Scope
	Selectable bool `json:"selectable"`
	Preset     bool `json:"preset"`
}
