package types

// Role is the grantor role hierarchy used to gate scope approval.
type Role string

const (
	RoleMember  Role = "member"
	RoleCreator Role = "creator"
	RoleAdmin   Role = "admin"
)

// Level orders roles so "minimum required role" checks are a simple compare.
// Unknown roles rank below member so they can never approve gated scopes.
func (r Role) Level() int {
	switch r {
	case RoleMember:
		return 1
	case RoleCreator:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}

func (r Role) AtLeast(required Role) bool {
	return r.Level() >= required.Level()
}

// Scope is a named permission offered by a connector or app block provider.
type Scope struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	RequiredRole Role   `json:"required_role"`
	IsPublicRead bool   `json:"is_public_read"`
}

// ScopeValidation is the result of checking a requested scope set against a
// provider's catalog. Unknown names fail the whole request; unauthorized
// names are dropped from the grant but surfaced to the caller.
type ScopeValidation struct {
	Accepted     StringList `json:"accepted"`
	Unknown      StringList `json:"unknown,omitempty"`
	Unauthorized StringList `json:"unauthorized,omitempty"`
}

// ValidateScopes resolves requested scope names against the catalog offered
// by a provider. Public-read scopes are grantable by any role; other scopes
// require the grantor to hold at least the scope's required role.
func ValidateScopes(offered []Scope, requested StringList, grantorRole Role) ScopeValidation {
	byName := make(map[string]Scope, len(offered))
	for _, s := range offered {
		byName[s.Name] = s
	}

	result := ScopeValidation{
		Accepted:     StringList{},
		Unknown:      StringList{},
		Unauthorized: StringList{},
	}
	for _, name := range requested.Normalize() {
		scope, ok := byName[name]
		if !ok {
			result.Unknown = append(result.Unknown, name)
			continue
		}
		if !scope.IsPublicRead && !grantorRole.AtLeast(scope.RequiredRole) {
			result.Unauthorized = append(result.Unauthorized, name)
			continue
		}
		result.Accepted = append(result.Accepted, name)
	}
	return result
}

// Identity is the authenticated caller, threaded explicitly into every
// mutating operation. The core never reads ambient state to determine who
// is calling.
type Identity struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}
