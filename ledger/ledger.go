// Package ledger persists refresh credentials. Rows hold SHA-256
// digests of raw refresh tokens, never the tokens themselves, so a
// leaked ledger cannot be replayed. The ledger is the source of truth
// for refresh validity: a refresh token whose signature still verifies
// is worthless once its row is revoked.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Token is one refresh credential row.
type Token struct {
	ID         string
	IdentityID string
	TokenHash  string
	ExpiresAt  time.Time
	Revoked    bool
	CreatedAt  time.Time
}

// RotationOutcome reports what Rotate did. Exactly one of Rotated or
// ReuseDetected is true on the interesting paths; both false means the
// presented row existed but had already expired.
type RotationOutcome struct {
	// Rotated means the presented row was live, is now revoked, and
	// the successor row was stored.
	Rotated bool
	// ReuseDetected means the presented hash was absent or already
	// revoked. Every credential of the identity has been revoked as a
	// consequence.
	ReuseDetected bool
}

// Ledger is the storage contract for refresh credentials.
//
// Rotate must be linearizable per row: when the same raw token is
// presented concurrently, exactly one caller observes Rotated and the
// rest observe ReuseDetected.
type Ledger interface {
	// Store inserts a new credential row.
	Store(ctx context.Context, token Token) error
	// Revoke marks the row matching the hash revoked. Revoking a
	// missing or already-revoked row is a no-op, not an error.
	Revoke(ctx context.Context, identityID, tokenHash string) error
	// RevokeAll revokes every live credential of the identity.
	RevokeAll(ctx context.Context, identityID string) error
	// IsValid reports whether a live, unexpired row matches the hash.
	IsValid(ctx context.Context, identityID, tokenHash string) (bool, error)
	// Rotate atomically retires the presented credential and stores
	// its successor, or detects reuse and revokes the whole family.
	Rotate(ctx context.Context, identityID, presentedHash string, successor Token) (RotationOutcome, error)
	// PurgeRevoked deletes revoked and expired rows older than the
	// cutoff and returns how many were removed.
	PurgeRevoked(ctx context.Context, olderThan time.Time) (int64, error)
}

// HashToken returns the hex SHA-256 digest under which a raw refresh
// token is stored and looked up.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
