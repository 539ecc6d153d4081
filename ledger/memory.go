package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/darkbcx/asset-core2/internal/ids"
)

var _ Ledger = (*Memory)(nil)

// Memory is a mutex-guarded in-process Ledger. It is not durable and
// exists for tests and single-process demos; production deployments
// use Postgres.
type Memory struct {
	mu   sync.Mutex
	rows map[string]*Token // keyed by row id
}

func NewMemory() *Memory {
	return &Memory{rows: make(map[string]*Token)}
}

func (m *Memory) Store(_ context.Context, token Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token.ID == "" {
		token.ID = ids.New()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	m.rows[token.ID] = &token
	return nil
}

func (m *Memory) Revoke(_ context.Context, identityID, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row := m.find(identityID, tokenHash); row != nil {
		row.Revoked = true
	}
	return nil
}

func (m *Memory) RevokeAll(_ context.Context, identityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revokeAllLocked(identityID)
	return nil
}

func (m *Memory) IsValid(_ context.Context, identityID, tokenHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := m.find(identityID, tokenHash)
	if row == nil || row.Revoked {
		return false, nil
	}
	return time.Now().Before(row.ExpiresAt), nil
}

func (m *Memory) Rotate(_ context.Context, identityID, presentedHash string, successor Token) (RotationOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row := m.find(identityID, presentedHash)
	if row == nil || row.Revoked {
		m.revokeAllLocked(identityID)
		return RotationOutcome{ReuseDetected: true}, nil
	}
	if !time.Now().Before(row.ExpiresAt) {
		row.Revoked = true
		return RotationOutcome{}, nil
	}

	row.Revoked = true
	if successor.ID == "" {
		successor.ID = ids.New()
	}
	if successor.CreatedAt.IsZero() {
		successor.CreatedAt = time.Now()
	}
	m.rows[successor.ID] = &successor
	return RotationOutcome{Rotated: true}, nil
}

func (m *Memory) PurgeRevoked(_ context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var purged int64
	for id, row := range m.rows {
		if (row.Revoked && row.CreatedAt.Before(olderThan)) || row.ExpiresAt.Before(olderThan) {
			delete(m.rows, id)
			purged++
		}
	}
	return purged, nil
}

func (m *Memory) find(identityID, tokenHash string) *Token {
	for _, row := range m.rows {
		if row.IdentityID == identityID && row.TokenHash == tokenHash {
			return row
		}
	}
	return nil
}

func (m *Memory) revokeAllLocked(identityID string) {
	for _, row := range m.rows {
		if row.IdentityID == identityID {
			row.Revoked = true
		}
	}
}
