package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryRotateSingleWinner(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	hash := HashToken("raw-refresh-token")
	if err := mem.Store(ctx, Token{
		IdentityID: "id-1",
		TokenHash:  hash,
		ExpiresAt:  time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		rotated int
		reused  int
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(n int) {
			defer wg.Done()
			out, err := mem.Rotate(ctx, "id-1", hash, Token{
				IdentityID: "id-1",
				TokenHash:  HashToken(fmt.Sprintf("successor-%d", n)),
				ExpiresAt:  time.Now().Add(time.Hour),
			})
			if err != nil {
				t.Errorf("Rotate: %v", err)
				return
			}
			mu.Lock()
			if out.Rotated {
				rotated++
			}
			if out.ReuseDetected {
				reused++
			}
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	if rotated != 1 {
		t.Errorf("rotated = %d, want exactly 1 winner", rotated)
	}
	if reused != workers-1 {
		t.Errorf("reuse detections = %d, want %d", reused, workers-1)
	}
}

func TestMemoryReuseRevokesFamily(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	exp := time.Now().Add(time.Hour)
	other := HashToken("other-device-token")
	if err := mem.Store(ctx, Token{IdentityID: "id-1", TokenHash: other, ExpiresAt: exp}); err != nil {
		t.Fatal(err)
	}

	out, err := mem.Rotate(ctx, "id-1", HashToken("never-issued"), Token{IdentityID: "id-1"})
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if !out.ReuseDetected {
		t.Fatal("want ReuseDetected for an unknown hash")
	}

	ok, err := mem.IsValid(ctx, "id-1", other)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("sibling credential survived reuse detection")
	}
}

func TestMemoryPurgeRevoked(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	if err := mem.Store(ctx, Token{
		ID: "stale", IdentityID: "id-1", TokenHash: "h1",
		ExpiresAt: old, CreatedAt: old,
	}); err != nil {
		t.Fatal(err)
	}
	if err := mem.Store(ctx, Token{
		ID: "live", IdentityID: "id-1", TokenHash: "h2",
		ExpiresAt: time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatal(err)
	}

	n, err := mem.PurgeRevoked(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeRevoked: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged = %d, want 1", n)
	}
	if ok, _ := mem.IsValid(ctx, "id-1", "h2"); !ok {
		t.Fatal("live credential was purged")
	}
}
