package assetcore

import (
	"context"
	"time"
)

// IdentityKind separates the two principal classes. Platform admins
// are global operators with no tenant memberships; tenant users act
// inside the tenants they belong to.
type IdentityKind string

const (
	KindPlatformAdmin IdentityKind = "platform_admin"
	KindTenantUser    IdentityKind = "tenant_user"
)

// Identity is the directory record for a principal.
type Identity struct {
	ID           string
	Email        string
	PasswordHash string
	Kind         IdentityKind
	// PlatformRole is set for platform admins only (see the
	// permission package role tables).
	PlatformRole string
	Active       bool
	LastLoginAt  time.Time
}

// Membership ties a tenant user to one tenant.
type Membership struct {
	TenantID string
	Role     string
	// Permissions are explicit per-membership grants unioned with the
	// role's permission set.
	Permissions []string
	Primary     bool
	Active      bool
	JoinedAt    time.Time
}

// Directory is the identity source of record. It lives outside this
// module (the tenant/user service); the manager re-reads it on every
// operation and never caches identities or memberships.
//
// Lookups that find nothing return ErrIdentityNotFound.
type Directory interface {
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	FindByID(ctx context.Context, id string) (*Identity, error)
	MembershipsOf(ctx context.Context, identityID string) ([]Membership, error)
	MarkLastLogin(ctx context.Context, identityID string, at time.Time) error
}

// CredentialVerifier checks a plaintext password against a stored
// hash. password.Argon2 satisfies it.
type CredentialVerifier interface {
	Verify(password, encodedHash string) (bool, error)
}

// TokenPair is one access token and its paired refresh token.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// LoginResult is what a successful login returns.
type LoginResult struct {
	Tokens      TokenPair
	Identity    Identity
	Memberships []Membership
}

// RefreshResult is what a successful rotation returns.
type RefreshResult struct {
	Tokens TokenPair
}

// AuthContext is the per-request authorization context resolved from
// an access token. It is rebuilt from the Directory on every call and
// must not be stored across requests.
type AuthContext struct {
	Identity       Identity
	ActiveTenantID string
	// Memberships are ordered primary-first, then by join time.
	Memberships []Membership
	// Permissions is the de-duplicated union of role-derived and
	// explicit grants for the active scope.
	Permissions []string
}

// ActiveMembership returns the membership matching ActiveTenantID.
func (a *AuthContext) ActiveMembership() (Membership, bool) {
	if a == nil || a.ActiveTenantID == "" {
		return Membership{}, false
	}
	for _, m := range a.Memberships {
		if m.TenantID == a.ActiveTenantID {
			return m, true
		}
	}
	return Membership{}, false
}
