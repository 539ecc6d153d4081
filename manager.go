package assetcore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/darkbcx/asset-core2/internal/audit"
	"github.com/darkbcx/asset-core2/internal/ids"
	"github.com/darkbcx/asset-core2/internal/rate"
	"github.com/darkbcx/asset-core2/jwt"
	"github.com/darkbcx/asset-core2/ledger"
)

// Manager is the session and authorization core. It owns token
// issuance, refresh rotation, tenant switching, and per-request
// context resolution. Construct one through [New] and [Builder.Build].
type Manager struct {
	config    Config
	codec     *jwt.Codec
	ledger    ledger.Ledger
	directory Directory
	verifier  CredentialVerifier
	limiter   *rate.Limiter
	audit     *audit.Dispatcher
	metrics   *Metrics
}

// Close flushes and stops the audit dispatcher.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	m.audit.Close()
}

func (m *Manager) ready() error {
	if m == nil || m.codec == nil || m.ledger == nil || m.directory == nil {
		return ErrManagerNotReady
	}
	return nil
}

// Login verifies credentials and opens a session. Unknown email and
// wrong password both come back as ErrInvalidCredentials; a correct
// password against a deactivated account is ErrAccountInactive, so
// account state is never revealed to a caller who has not proven the
// password.
func (m *Manager) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	ip := clientIPFromContext(ctx)

	if err := m.limiter.CheckLogin(ctx, email, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			m.metrics.loginOutcome("rate_limited")
			m.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", "", ErrLoginRateLimited, nil)
			return nil, ErrLoginRateLimited
		}
		return nil, err
	}

	identity, err := m.directory.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return nil, m.failLogin(ctx, email, ip, "")
		}
		return nil, fmt.Errorf("directory lookup: %w", err)
	}

	ok, err := m.verifier.Verify(password, identity.PasswordHash)
	if err != nil || !ok {
		return nil, m.failLogin(ctx, email, ip, identity.ID)
	}

	// Password proven; account state may now be disclosed.
	if !identity.Active {
		m.metrics.loginOutcome("inactive")
		m.emitAudit(ctx, auditEventLoginFailure, false, identity.ID, "", "", ErrAccountInactive, nil)
		return nil, ErrAccountInactive
	}

	if err := m.limiter.ResetLogin(ctx, email, ip); err != nil && !errors.Is(err, rate.ErrRedisUnavailable) {
		return nil, err
	}

	memberships, activeTenantID, err := m.loadMemberships(ctx, identity)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	_ = m.directory.MarkLastLogin(ctx, identity.ID, now)

	pair, tokenID, err := m.issuePair(ctx, identity.ID, activeTenantID)
	if err != nil {
		return nil, err
	}

	m.metrics.loginOutcome("success")
	m.emitAudit(ctx, auditEventLoginSuccess, true, identity.ID, activeTenantID, tokenID, nil, nil)

	result := &LoginResult{
		Tokens:      pair,
		Identity:    scrub(*identity),
		Memberships: memberships,
	}
	result.Identity.LastLoginAt = now
	return result, nil
}

func (m *Manager) failLogin(ctx context.Context, email, ip, identityID string) error {
	if err := m.limiter.IncrementLogin(ctx, email, ip); errors.Is(err, rate.ErrRateLimited) {
		m.metrics.loginOutcome("rate_limited")
		m.emitAudit(ctx, auditEventLoginRateLimited, false, identityID, "", "", ErrLoginRateLimited, nil)
		return ErrLoginRateLimited
	}
	m.metrics.loginOutcome("invalid_credentials")
	m.emitAudit(ctx, auditEventLoginFailure, false, identityID, "", "", ErrInvalidCredentials, nil)
	return ErrInvalidCredentials
}

// Refresh rotates a refresh token. The presented token is single-use:
// rotation retires it and returns a fresh pair carrying the same
// active tenant. Presenting a retired token is reuse; the whole
// credential family is revoked and the caller gets ErrReuseDetected.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}

	claims, err := m.codec.Verify(refreshToken, jwt.TypeRefresh)
	if err != nil {
		mapped := ErrRefreshInvalid
		if errors.Is(err, jwt.ErrExpired) {
			mapped = ErrRefreshExpired
		}
		m.metrics.refreshOutcome("invalid")
		m.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", "", mapped, nil)
		return nil, mapped
	}
	identityID := claims.Subject

	if err := m.limiter.CheckRefresh(ctx, identityID); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			m.metrics.refreshOutcome("rate_limited")
			m.emitAudit(ctx, auditEventRefreshRateLimited, false, identityID, "", "", ErrRefreshRateLimited, nil)
			return nil, ErrRefreshRateLimited
		}
		return nil, err
	}

	// The identity is re-resolved on every rotation so deactivation
	// takes effect before the ledger is touched.
	identity, err := m.directory.FindByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			_ = m.ledger.RevokeAll(ctx, identityID)
			m.metrics.refreshOutcome("invalid")
			m.emitAudit(ctx, auditEventRefreshInvalid, false, identityID, "", "", ErrRefreshInvalid, nil)
			return nil, ErrRefreshInvalid
		}
		return nil, fmt.Errorf("directory lookup: %w", err)
	}
	if !identity.Active {
		if err := m.ledger.RevokeAll(ctx, identityID); err != nil {
			return nil, err
		}
		m.metrics.refreshOutcome("inactive")
		m.emitAudit(ctx, auditEventRefreshInvalid, false, identityID, "", "", ErrAccountInactive, nil)
		return nil, ErrAccountInactive
	}

	now := time.Now()
	successorID := ids.New()
	newRefresh, err := m.codec.IssueRefresh(identityID, claims.ActiveTenantID, successorID)
	if err != nil {
		return nil, err
	}

	outcome, err := m.ledger.Rotate(ctx, identityID, ledger.HashToken(refreshToken), ledger.Token{
		ID:         successorID,
		IdentityID: identityID,
		TokenHash:  ledger.HashToken(newRefresh),
		ExpiresAt:  now.Add(m.config.JWT.RefreshTTL),
	})
	if err != nil {
		return nil, err
	}
	if outcome.ReuseDetected {
		m.metrics.refreshOutcome("reuse_detected")
		m.metrics.reuseDetected()
		m.emitAudit(ctx, auditEventRefreshReuseDetected, false, identityID, claims.ActiveTenantID, claims.ID, ErrReuseDetected, nil)
		return nil, ErrReuseDetected
	}
	if !outcome.Rotated {
		m.metrics.refreshOutcome("expired")
		m.emitAudit(ctx, auditEventRefreshInvalid, false, identityID, "", claims.ID, ErrRefreshExpired, nil)
		return nil, ErrRefreshExpired
	}

	access, err := m.codec.IssueAccess(identityID, claims.ActiveTenantID)
	if err != nil {
		return nil, err
	}

	m.metrics.refreshOutcome("success")
	m.emitAudit(ctx, auditEventRefreshSuccess, true, identityID, claims.ActiveTenantID, successorID, nil, nil)

	return &RefreshResult{Tokens: TokenPair{
		AccessToken:      access,
		RefreshToken:     newRefresh,
		AccessExpiresAt:  now.Add(m.config.JWT.AccessTTL),
		RefreshExpiresAt: now.Add(m.config.JWT.RefreshTTL),
	}}, nil
}

// SetActiveTenant switches the session to another tenant the identity
// actively belongs to. The old refresh family is revoked in full and a
// new token pair is issued, so tokens scoped to the previous tenant
// cannot be refreshed back into existence.
func (m *Manager) SetActiveTenant(ctx context.Context, accessToken, tenantID string) (*LoginResult, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}

	authCtx, err := m.ResolveContext(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	identity := authCtx.Identity

	if identity.Kind != KindTenantUser {
		m.emitAudit(ctx, auditEventTenantSwitch, false, identity.ID, tenantID, "", ErrNotATenantUser, nil)
		return nil, ErrNotATenantUser
	}

	var target *Membership
	for i := range authCtx.Memberships {
		if authCtx.Memberships[i].TenantID == tenantID {
			target = &authCtx.Memberships[i]
			break
		}
	}
	if target == nil {
		m.emitAudit(ctx, auditEventTenantSwitch, false, identity.ID, tenantID, "", ErrForbidden, nil)
		return nil, ErrForbidden
	}

	if err := m.ledger.RevokeAll(ctx, identity.ID); err != nil {
		return nil, err
	}
	pair, tokenID, err := m.issuePair(ctx, identity.ID, tenantID)
	if err != nil {
		return nil, err
	}

	m.metrics.tenantSwitch()
	m.emitAudit(ctx, auditEventTenantSwitch, true, identity.ID, tenantID, tokenID, nil, nil)

	return &LoginResult{
		Tokens:      pair,
		Identity:    identity,
		Memberships: authCtx.Memberships,
	}, nil
}

// Logout ends the session. It never fails: tokens that no longer
// verify are simply ignored. The presented refresh credential is
// revoked, and when the access token still resolves, the whole family
// goes with it.
func (m *Manager) Logout(ctx context.Context, accessToken, refreshToken string) {
	if m.ready() != nil {
		return
	}

	var identityID string
	if claims, err := m.codec.Verify(refreshToken, jwt.TypeRefresh); err == nil {
		identityID = claims.Subject
		_ = m.ledger.Revoke(ctx, claims.Subject, ledger.HashToken(refreshToken))
	}
	if claims, err := m.codec.Verify(accessToken, jwt.TypeAccess); err == nil {
		identityID = claims.Subject
		_ = m.ledger.RevokeAll(ctx, claims.Subject)
	}

	m.metrics.logout()
	m.emitAudit(ctx, auditEventLogout, true, identityID, "", "", nil, nil)
}

// ResolveContext turns a bearer access token into the authorization
// context for one request. The identity and its memberships are
// re-read from the Directory on every call; nothing is cached, so
// deactivation and membership changes take effect immediately.
func (m *Manager) ResolveContext(ctx context.Context, accessToken string) (*AuthContext, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { m.metrics.observeResolve(time.Since(start)) }()

	claims, err := m.codec.Verify(accessToken, jwt.TypeAccess)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	identity, err := m.directory.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("directory lookup: %w", err)
	}
	if !identity.Active {
		return nil, ErrUnauthenticated
	}

	memberships, _, err := m.loadMemberships(ctx, identity)
	if err != nil {
		return nil, err
	}

	authCtx := &AuthContext{
		Identity:    scrub(*identity),
		Memberships: memberships,
	}

	switch identity.Kind {
	case KindPlatformAdmin:
		authCtx.Permissions = permissionsForPlatform(identity.PlatformRole)
	default:
		// A stale active-tenant claim (membership revoked mid-session)
		// drops the tenant scope instead of killing the session.
		for _, mem := range memberships {
			if mem.TenantID == claims.ActiveTenantID {
				authCtx.ActiveTenantID = mem.TenantID
				authCtx.Permissions = permissionsForMembership(mem)
				break
			}
		}
	}

	return authCtx, nil
}

// issuePair mints an access token and a ledger-backed refresh token.
// Returns the pair and the ledger row id of the refresh credential.
func (m *Manager) issuePair(ctx context.Context, identityID, activeTenantID string) (TokenPair, string, error) {
	now := time.Now()
	rowID := ids.New()

	refresh, err := m.codec.IssueRefresh(identityID, activeTenantID, rowID)
	if err != nil {
		return TokenPair{}, "", err
	}
	if err := m.ledger.Store(ctx, ledger.Token{
		ID:         rowID,
		IdentityID: identityID,
		TokenHash:  ledger.HashToken(refresh),
		ExpiresAt:  now.Add(m.config.JWT.RefreshTTL),
	}); err != nil {
		return TokenPair{}, "", err
	}

	access, err := m.codec.IssueAccess(identityID, activeTenantID)
	if err != nil {
		return TokenPair{}, "", err
	}

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  now.Add(m.config.JWT.AccessTTL),
		RefreshExpiresAt: now.Add(m.config.JWT.RefreshTTL),
	}, rowID, nil
}

// loadMemberships returns the identity's active memberships ordered
// primary-first then by join time, plus the tenant a fresh session
// should start in.
func (m *Manager) loadMemberships(ctx context.Context, identity *Identity) ([]Membership, string, error) {
	if identity.Kind != KindTenantUser {
		return nil, "", nil
	}

	all, err := m.directory.MembershipsOf(ctx, identity.ID)
	if err != nil {
		return nil, "", fmt.Errorf("membership lookup: %w", err)
	}

	active := make([]Membership, 0, len(all))
	for _, mem := range all {
		if mem.Active {
			active = append(active, mem)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Primary != active[j].Primary {
			return active[i].Primary
		}
		return active[i].JoinedAt.Before(active[j].JoinedAt)
	})

	var activeTenantID string
	if len(active) > 0 {
		activeTenantID = active[0].TenantID
	}
	return active, activeTenantID, nil
}

func scrub(identity Identity) Identity {
	identity.PasswordHash = ""
	return identity
}
