package types

import (
	"time"

	"github.com/google/uuid"
)

// AuthMethod is the trust model an installation runs under: user-delegated
// or service-level access.
type AuthMethod string

const (
	AuthMethodUser    AuthMethod = "user"
	AuthMethodService AuthMethod = "service"
)

func (a AuthMethod) Valid() bool {
	return a == AuthMethodUser || a == AuthMethodService
}

// ProviderStatus is the lifecycle state of a provider surface.
type ProviderStatus string

const (
	ProviderStatusActive     ProviderStatus = "active"
	ProviderStatusDeprecated ProviderStatus = "deprecated"
	ProviderStatusDisabled   ProviderStatus = "disabled"
)

// ProviderConfig is the optional capability surface exposed by an app block,
// one-to-one with the app block that owns it.
type ProviderConfig struct {
	AppBlockID         uuid.UUID      `json:"app_block_id"`
	BaseAPIURL         string         `json:"base_api_url"`
	APIVersion         string         `json:"api_version"`
	AuthMethods        StringList     `json:"auth_methods"`
	RateLimitPerMinute int            `json:"rate_limit_per_minute"`
	Status             ProviderStatus `json:"status"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// SupportsAuthMethod reports whether the provider declared the given trust
// model. Providers configured without explicit auth methods default to
// user-delegated access only.
func (p *ProviderConfig) SupportsAuthMethod(m AuthMethod) bool {
	if len(p.AuthMethods) == 0 {
		return m == AuthMethodUser
	}
	return p.AuthMethods.Contains(string(m))
}

type ProviderCreateDto struct {
	BaseAPIURL         string   `json:"base_api_url" validate:"required,url"`
	APIVersion         string   `json:"api_version"`
	AuthMethods        []string `json:"auth_methods" validate:"omitempty,dive,oneof=user service"`
	RateLimitPerMinute int      `json:"rate_limit_per_minute" validate:"omitempty,min=1"`
	Scopes             []Scope  `json:"scopes" validate:"required,min=1"`
}

// references on struct fields allow partially filled update DTOs
type ProviderUpdateDto struct {
	BaseAPIURL         *string  `json:"base_api_url" validate:"omitempty,url"`
	APIVersion         *string  `json:"api_version"`
	AuthMethods        []string `json:"auth_methods" validate:"omitempty,dive,oneof=user service"`
	RateLimitPerMinute *int     `json:"rate_limit_per_minute" validate:"omitempty,min=1"`
	Status             *string  `json:"status" validate:"omitempty,oneof=active deprecated disabled"`
}
