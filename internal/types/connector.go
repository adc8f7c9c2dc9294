package types

import "time"

// Connector is a first-party capability surface operated by the platform.
// Connectors are seeded by migration and immutable except for the active
// toggle.
type Connector struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Icon        string     `json:"icon,omitempty"`
	AuthMethods StringList `json:"auth_methods"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SupportsAuthMethod reports whether the connector declared the given trust
// model. Connectors seeded without explicit auth methods default to
// user-delegated access only.
func (c *Connector) SupportsAuthMethod(m AuthMethod) bool {
	if len(c.AuthMethods) == 0 {
		return m == AuthMethodUser
	}
	return c.AuthMethods.Contains(string(m))
}

// ConnectorWithScopes is the catalog browsing projection.
type ConnectorWithScopes struct {
	Connector
	Scopes []Scope `json:"scopes"`
}

// ConnectorRecipe is a named preset bundle of scopes for a connector. It is
// advisory only: resolved into a scope list at install time and never
// referenced by a live installation.
type ConnectorRecipe struct {
	ID          string     `json:"id"`
	ConnectorID string     `json:"connector_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Scopes      StringList `json:"scopes"`
}

// RecipeCustom selects the provider's full scope set, letting the consent
// step deselect individual scopes.
const RecipeCustom = "custom"
