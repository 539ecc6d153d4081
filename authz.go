package assetcore

import "github.com/darkbcx/asset-core2/permission"

// Can reports whether the context holds the required permission.
func (a *AuthContext) Can(required string) bool {
	if a == nil {
		return false
	}
	return permission.Has(a.Permissions, required)
}

// CanAll reports whether every required permission is held.
func (a *AuthContext) CanAll(required ...string) bool {
	if a == nil {
		return false
	}
	return permission.HasAll(a.Permissions, required)
}

// CanAny reports whether at least one required permission is held.
func (a *AuthContext) CanAny(required ...string) bool {
	if a == nil {
		return false
	}
	return permission.HasAny(a.Permissions, required)
}

// Evaluate applies the given combination mode over the required set.
func (a *AuthContext) Evaluate(required []string, mode permission.Mode) bool {
	if a == nil {
		return false
	}
	return permission.Evaluate(a.Permissions, required, mode)
}

func permissionsForPlatform(role string) []string {
	return permission.ForPlatformRole(role)
}

// permissionsForMembership unions the tenant role's permission set
// with the membership's explicit grants.
func permissionsForMembership(mem Membership) []string {
	return permission.Union(permission.ForTenantRole(mem.Role), mem.Permissions)
}
