package types

import (
	"time"

	"github.com/google/uuid"
)

// AppBlock is a unit of ownership. It may consume capabilities, expose them
// as a provider, or both. Deleting an app block revokes every installation
// where it is consumer or provider.
type AppBlock struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	OwnerID         string    `json:"owner_id"`
	Icon            string    `json:"icon,omitempty"`
	ServiceIdentity string    `json:"service_identity,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type AppBlockCreateDto struct {
	Name            string `json:"name" validate:"required"`
	Icon            string `json:"icon"`
	ServiceIdentity string `json:"service_identity"`
}
