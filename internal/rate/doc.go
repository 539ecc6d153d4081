// Package rate implements Redis-backed fixed-window counters for login
// and refresh throttling.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key
// prefixes:
//   - al:  — login per-email
//   - ali: — login per-IP
//   - ar:  — refresh per-identity
//
// Policy (budgets, windows) comes from the caller's configuration;
// this package only maintains the counters.
package rate
