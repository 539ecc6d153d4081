package permission

// Platform-level roles held by platform administrators. These are global;
// they are never scoped to a tenant.
const (
	PlatformRoleSuperAdmin = "superadmin"
	PlatformRoleSupport    = "support"
)

// Tenant-scoped roles carried by tenant memberships.
const (
	TenantRoleOwner      = "owner"
	TenantRoleAdmin      = "admin"
	TenantRoleManager    = "manager"
	TenantRoleTechnician = "technician"
	TenantRoleViewer     = "viewer"
)

var platformRolePermissions = map[string][]string{
	PlatformRoleSuperAdmin: {"*:*"},
	PlatformRoleSupport: {
		"*:read",
		"tenants:list",
	},
}

var tenantRolePermissions = map[string][]string{
	TenantRoleOwner: {"*:*"},
	TenantRoleAdmin: {
		"assets:*",
		"components:*",
		"maintenance:*",
		"files:*",
		"users:*",
		"dashboard:read",
		"tenant:update",
	},
	TenantRoleManager: {
		"assets:*",
		"components:*",
		"maintenance:*",
		"files:*",
		"users:read",
		"dashboard:read",
	},
	TenantRoleTechnician: {
		"assets:read",
		"components:read",
		"maintenance:read",
		"maintenance:update",
		"maintenance:complete",
		"files:read",
		"files:create",
		"dashboard:read",
	},
	TenantRoleViewer: {"*:read"},
}

// ForPlatformRole returns the permission set for a platform role.
// Unknown roles yield the empty set.
func ForPlatformRole(role string) []string {
	return copyPerms(platformRolePermissions[role])
}

// ForTenantRole returns the permission set for a tenant membership role.
// Unknown roles yield the empty set.
func ForTenantRole(role string) []string {
	return copyPerms(tenantRolePermissions[role])
}

func copyPerms(perms []string) []string {
	if len(perms) == 0 {
		return nil
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}
