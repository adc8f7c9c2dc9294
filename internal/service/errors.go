package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAppBlockNotFound      = errors.New("app block not found")
	ErrConnectorNotFound     = errors.New("connector not found")
	ErrProviderNotFound      = errors.New("provider not found")
	ErrInstallationNotFound  = errors.New("installation not found")
	ErrRegistryEntryNotFound = errors.New("registry entry not found")
	ErrRecipeNotFound        = errors.New("recipe not found")
	ErrTokenNotFound         = errors.New("token not found")

	// ErrNotOwner is the authorization failure: the caller is neither the
	// consumer nor the provider owner for the requested mutation. Handlers
	// must not let it leak whether the target exists.
	ErrNotOwner = errors.New("caller is not the owner")

	ErrInvalidTransition      = errors.New("invalid installation status transition")
	ErrProviderNotInstallable = errors.New("provider is not installable")
	ErrUpstreamProvider       = errors.New("provider upstream unreachable")
)

// ValidationError reports a bad request with the specific offending field,
// never a generic failure.
type ValidationError struct {
	Field  string
	Detail string
	Names  []string
}

func (e *ValidationError) Error() string {
	if len(e.Names) > 0 {
		return fmt.Sprintf("%s: %s: %s", e.Field, e.Detail, strings.Join(e.Names, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Detail)
}

func NewValidationError(field, detail string, names ...string) *ValidationError {
	return &ValidationError{Field: field, Detail: detail, Names: names}
}

// AsValidationError unwraps err into a ValidationError when possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
