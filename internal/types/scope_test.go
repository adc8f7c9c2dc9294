package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleOrdering(t *testing.T) {
	assert.True(t, RoleAdmin.AtLeast(RoleCreator))
	assert.True(t, RoleCreator.AtLeast(RoleMember))
	assert.True(t, RoleMember.AtLeast(RoleMember))
	assert.False(t, RoleMember.AtLeast(RoleCreator))

	// unknown roles rank below member
	assert.False(t, Role("superuser").AtLeast(RoleMember))
}

func TestValidateScopes(t *testing.T) {
	offered := []Scope{
		{Name: "events.read", RequiredRole: RoleMember, IsPublicRead: true},
		{Name: "events.rsvp", RequiredRole: RoleMember},
		{Name: "events.publish", RequiredRole: RoleCreator},
	}

	t.Run("member keeps public and member scopes, loses creator scope", func(t *testing.T) {
		result := ValidateScopes(offered, StringList{"events.read", "events.rsvp", "events.publish"}, RoleMember)
		assert.Equal(t, StringList{"events.read", "events.rsvp"}, result.Accepted)
		assert.Equal(t, StringList{"events.publish"}, result.Unauthorized)
		assert.Empty(t, result.Unknown)
	})

	t.Run("unknown names are reported, not dropped silently", func(t *testing.T) {
		result := ValidateScopes(offered, StringList{"events.read", "events.teleport"}, RoleAdmin)
		assert.Equal(t, StringList{"events.teleport"}, result.Unknown)
		assert.Equal(t, StringList{"events.read"}, result.Accepted)
	})

	t.Run("public read grantable by any role", func(t *testing.T) {
		result := ValidateScopes(offered, StringList{"events.read"}, Role("unknown"))
		assert.Equal(t, StringList{"events.read"}, result.Accepted)
	})

	t.Run("duplicates collapse before validation", func(t *testing.T) {
		result := ValidateScopes(offered, StringList{"events.read", "events.read"}, RoleMember)
		assert.Equal(t, StringList{"events.read"}, result.Accepted)
	})
}

func TestInstallationStatusMachine(t *testing.T) {
	assert.True(t, InstallationStatusPending.CanTransitionTo(InstallationStatusActive))
	assert.True(t, InstallationStatusPending.CanTransitionTo(InstallationStatusRevoked))
	assert.True(t, InstallationStatusActive.CanTransitionTo(InstallationStatusError))
	assert.True(t, InstallationStatusError.CanTransitionTo(InstallationStatusActive))
	assert.True(t, InstallationStatusActive.CanTransitionTo(InstallationStatusExpired))

	// terminal states allow nothing
	assert.False(t, InstallationStatusRevoked.CanTransitionTo(InstallationStatusActive))
	assert.False(t, InstallationStatusExpired.CanTransitionTo(InstallationStatusActive))

	// pending cannot jump straight to error
	assert.False(t, InstallationStatusPending.CanTransitionTo(InstallationStatusError))

	assert.True(t, InstallationStatusPending.Live())
	assert.True(t, InstallationStatusError.Live())
	assert.False(t, InstallationStatusRevoked.Live())
}
