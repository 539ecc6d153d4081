// Package middleware adapts HTTP semantics onto the session manager.
//
// [Guard] reads the Authorization header, resolves the bearer token
// through Manager.ResolveContext, checks the required permissions, and
// injects the resulting authorization context into the request for
// handlers to read via [ContextFrom].
//
// The package makes no authorization decisions of its own: every
// verdict comes from the manager and the resolved permission set. It
// never parses tokens directly and performs no storage I/O.
package middleware
