package types

import (
	"time"

	"github.com/google/uuid"
)

type RegistryVisibility string

const (
	VisibilityPublic   RegistryVisibility = "public"
	VisibilityUnlisted RegistryVisibility = "unlisted"
	VisibilityPrivate  RegistryVisibility = "private"
)

// RegistryEntry is the public listing of a provider app block. A missing
// entry means "not listed", not "cannot be installed directly".
type RegistryEntry struct {
	AppBlockID       uuid.UUID          `json:"app_block_id"`
	Slug             string             `json:"slug"`
	Title            string             `json:"title"`
	Description      string             `json:"description"`
	Category         string             `json:"category"`
	Tags             StringList         `json:"tags"`
	Visibility       RegistryVisibility `json:"visibility"`
	Installable      bool               `json:"installable"`
	RequiresApproval bool               `json:"requires_approval"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// RegistryEntryWithProvider joins the listing with the provider's declared
// surface for the detail view.
type RegistryEntryWithProvider struct {
	RegistryEntry
	Provider *ProviderConfig `json:"provider,omitempty"`
	Scopes   []Scope         `json:"scopes,omitempty"`
}

// RegistryFilters narrows a browse query. Visibility filtering is enforced
// server-side on top of these; a client filter can only narrow the already
// visible set.
type RegistryFilters struct {
	Category        *string
	Query           *string
	Tags            StringList
	Visibility      *RegistryVisibility
	InstallableOnly bool
}

type RegistryPaginatedList struct {
	Entries    []RegistryEntry `json:"entries"`
	TotalCount int             `json:"total_count"`
}

type RegistryPublishDto struct {
	Slug             string   `json:"slug" validate:"required,min=3,max=64"`
	Title            string   `json:"title" validate:"required"`
	Description      string   `json:"description"`
	Category         string   `json:"category" validate:"required"`
	Tags             []string `json:"tags"`
	Visibility       string   `json:"visibility" validate:"omitempty,oneof=public unlisted private"`
	Installable      *bool    `json:"installable"`
	RequiresApproval bool     `json:"requires_approval"`
}

type RegistryUpdateDto struct {
	Title            *string  `json:"title"`
	Description      *string  `json:"description"`
	Category         *string  `json:"category"`
	Tags             []string `json:"tags"`
	Visibility       *string  `json:"visibility" validate:"omitempty,oneof=public unlisted private"`
	Installable      *bool    `json:"installable"`
	RequiresApproval *bool    `json:"requires_approval"`
}
