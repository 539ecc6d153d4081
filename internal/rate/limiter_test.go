package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, cfg), mr
}

func TestLoginBudget(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{
		MaxLoginAttempts:      3,
		LoginCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	if err := limiter.CheckLogin(ctx, "a@example.com", ""); err != nil {
		t.Fatalf("fresh email should pass: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := limiter.IncrementLogin(ctx, "a@example.com", ""); err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
	}
	if err := limiter.IncrementLogin(ctx, "a@example.com", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("fourth failure: err = %v, want ErrRateLimited", err)
	}
	if err := limiter.CheckLogin(ctx, "a@example.com", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("check after exhaustion: err = %v, want ErrRateLimited", err)
	}

	// Other identities are unaffected.
	if err := limiter.CheckLogin(ctx, "b@example.com", ""); err != nil {
		t.Fatalf("unrelated email throttled: %v", err)
	}
}

func TestLoginWindowExpiry(t *testing.T) {
	limiter, mr := newTestLimiter(t, Config{
		MaxLoginAttempts:      1,
		LoginCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	_ = limiter.IncrementLogin(ctx, "a@example.com", "")
	if err := limiter.IncrementLogin(ctx, "a@example.com", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}

	mr.FastForward(2 * time.Minute)

	if err := limiter.CheckLogin(ctx, "a@example.com", ""); err != nil {
		t.Fatalf("window should have reset: %v", err)
	}
}

func TestLoginIPThrottle(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{
		EnableIPThrottle:      true,
		MaxLoginAttempts:      2,
		LoginCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	// Different emails, same source IP.
	_ = limiter.IncrementLogin(ctx, "a@example.com", "10.0.0.9")
	_ = limiter.IncrementLogin(ctx, "b@example.com", "10.0.0.9")
	if err := limiter.IncrementLogin(ctx, "c@example.com", "10.0.0.9"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited for shared IP", err)
	}
}

func TestResetLoginClearsCounters(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{
		MaxLoginAttempts:      1,
		LoginCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	_ = limiter.IncrementLogin(ctx, "a@example.com", "")
	if err := limiter.ResetLogin(ctx, "a@example.com", ""); err != nil {
		t.Fatalf("ResetLogin: %v", err)
	}

	n, err := limiter.LoginAttempts(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("LoginAttempts: %v", err)
	}
	if n != 0 {
		t.Fatalf("attempts = %d after reset, want 0", n)
	}
}

func TestRefreshBudget(t *testing.T) {
	limiter, mr := newTestLimiter(t, Config{
		EnableRefreshThrottle:   true,
		MaxRefreshAttempts:      2,
		RefreshCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	if err := limiter.CheckRefresh(ctx, "identity-1"); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if err := limiter.CheckRefresh(ctx, "identity-1"); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if err := limiter.CheckRefresh(ctx, "identity-1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("third refresh: err = %v, want ErrRateLimited", err)
	}

	mr.FastForward(2 * time.Minute)
	if err := limiter.CheckRefresh(ctx, "identity-1"); err != nil {
		t.Fatalf("refresh after window reset: %v", err)
	}
}

func TestRefreshThrottleDisabled(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{})
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		if err := limiter.CheckRefresh(ctx, "identity-1"); err != nil {
			t.Fatalf("disabled throttle rejected refresh %d: %v", i, err)
		}
	}
}

func TestRedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	limiter := New(client, Config{
		MaxLoginAttempts:      3,
		LoginCooldownDuration: time.Minute,
	})

	mr.Close()

	if err := limiter.IncrementLogin(context.Background(), "a@example.com", ""); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("err = %v, want ErrRedisUnavailable", err)
	}
}
