package assetcore

import "errors"

var (
	// ErrInvalidCredentials covers both unknown email and wrong
	// password. The two cases are deliberately indistinguishable to
	// callers.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive means the credentials were correct but the
	// identity is deactivated. It is never returned before the
	// password has been proven.
	ErrAccountInactive = errors.New("account inactive")
	// ErrIdentityNotFound is returned by Directory implementations
	// when no identity matches. The manager maps it to the
	// appropriate public error per operation.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrRefreshExpired means the presented refresh token is past its
	// lifetime.
	ErrRefreshExpired = errors.New("refresh token expired")
	// ErrRefreshInvalid means the presented refresh token is
	// undecodable, wrongly signed, of the wrong type, or unknown to
	// the ledger.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrReuseDetected means a single-use refresh token was presented
	// a second time. Every credential of the identity has been
	// revoked in response.
	ErrReuseDetected = errors.New("refresh token reuse detected")
	// ErrUnauthenticated means the access token did not resolve to an
	// active identity.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means the identity is authenticated but not
	// allowed to perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrNotATenantUser means a tenant-scoped operation was attempted
	// by an identity that carries no tenant memberships.
	ErrNotATenantUser = errors.New("not a tenant user")
	// ErrLoginRateLimited means the login attempt budget for this
	// email or source IP is spent.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRefreshRateLimited means the refresh attempt budget for this
	// identity is spent.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrManagerNotReady is returned when a Manager method is called
	// on a nil or unbuilt manager.
	ErrManagerNotReady = errors.New("manager not initialized")
)
