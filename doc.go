// Package assetcore is the session and authorization core of a
// multi-tenant asset-maintenance backend: signed access tokens,
// rotating single-use refresh tokens with reuse detection, tenant
// switching, and wildcard permission evaluation.
//
// The package is designed for concurrent server workloads: Manager
// methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// assetcore is the public surface. It exposes [Manager], [Builder],
// [Config], and value types (LoginResult, AuthContext, TokenPair).
// Identity storage belongs to the caller behind the [Directory]
// interface; refresh credentials persist behind the ledger package;
// throttle counters live in Redis so every replica shares one budget.
//
// # Session model
//
// Access tokens are stateless and verified by signature alone. Refresh
// tokens are single-use: each rotation retires the presented
// credential in the ledger and issues a successor. A retired
// credential presented again is treated as theft evidence and revokes
// every credential the identity holds. [Manager.ResolveContext]
// re-reads the Directory on every call, so deactivation and membership
// changes take effect on the next request, not at token expiry.
package assetcore
