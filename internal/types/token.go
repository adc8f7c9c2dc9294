package types

import (
	"time"

	"github.com/google/uuid"
)

// AccessToken is the audit record of an issued access credential. The
// credential itself is a signed, self-contained JWT; the row exists for
// listing and revocation.
type AccessToken struct {
	ID         string     `json:"id"`
	TokenID    string     `json:"token_id"`
	UserID     string     `json:"user_id"`
	AppBlockID uuid.UUID  `json:"app_block_id"`
	Scopes     StringList `json:"scopes"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	LastUsedAt time.Time  `json:"last_used_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

func (t *AccessToken) IsRevoked() bool {
	return t.RevokedAt != nil &&
		!t.RevokedAt.IsZero() &&
		t.RevokedAt.Before(time.Now())
}

// AccessTokenCreate is the data needed to record a newly issued token.
type AccessTokenCreate struct {
	TokenID    string     `json:"token_id"`
	UserID     string     `json:"user_id"`
	AppBlockID uuid.UUID  `json:"app_block_id"`
	Scopes     StringList `json:"scopes"`
	ExpiresAt  time.Time  `json:"expires_at"`
}

type TokenRequestDto struct {
	GrantType  string    `json:"grant_type" validate:"required,oneof=user_session"`
	AppBlockID uuid.UUID `json:"app_block_id" validate:"required"`
	Scopes     []string  `json:"scopes"`
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Scopes      []string  `json:"scopes"`
	ExpiresAt   time.Time `json:"expires_at"`
}
