package domain

import (
	"slices"

	authconstant "github.com/AnthoniusHendriyanto/auth-core/pkg/constant"
)

// Principal is the authenticated caller, built from a verified access token.
type Principal struct {
	UserID         string
	Email          string
	Roles          []string
	OrganizationID *string
}

func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

func (p Principal) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if p.HasRole(r) {
			return true
		}
	}
	return false
}

func CanUnlockAccounts(p Principal) bool {
	return p.HasRole(authconstant.RoleSuperAdmin)
}

func CanManageSessions(p Principal, userID string) bool {
	if p.UserID != "" && p.UserID == userID {
		return true
	}
	return p.HasAnyRole(authconstant.RoleAdmin, authconstant.RoleSuperAdmin)
}

func CanForceLogout(p Principal) bool {
	return p.HasAnyRole(authconstant.RoleAdmin, authconstant.RoleSuperAdmin)
}
