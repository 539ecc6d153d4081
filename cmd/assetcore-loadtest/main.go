// Command assetcore-loadtest measures resolve and refresh throughput of
// the session manager under concurrency.
//
// It seeds N identities into an in-memory directory, logs each one in,
// then runs two phases: concurrent ResolveContext calls over random
// access tokens, and concurrent Refresh rotations (serialized per
// identity, since a refresh token is single use).
//
// By default everything runs in-process against miniredis and the
// in-memory ledger. Point it at a real Redis with -redis-addr or the
// REDIS_ADDR env var to include network latency in the numbers.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	assetcore "github.com/darkbcx/asset-core2"
	"github.com/darkbcx/asset-core2/ledger"
)

type identityState struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func main() {
	var (
		identities  = flag.Int("identities", 5000, "number of identities to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (resolve + refresh)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *identities <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "identities, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := assetcore.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("loadtest-secret-loadtest-secret!")
	cfg.JWT.Issuer = "assetcore-loadtest"
	cfg.JWT.AccessTTL = time.Hour
	cfg.JWT.RefreshTTL = 24 * time.Hour
	// Throttling is not what we are measuring.
	cfg.Security.MaxRefreshAttempts = *ops
	cfg.Audit.Enabled = false

	directory := newSeedDirectory()

	manager, err := assetcore.New().
		WithConfig(cfg).
		WithRedis(client).
		WithLedger(ledger.NewMemory()).
		WithDirectory(directory).
		WithVerifier(seedVerifier{}).
		WithMetricsRegisterer(prometheus.NewRegistry()).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "manager build: %v\n", err)
		os.Exit(1)
	}
	defer manager.Close()

	fmt.Printf("seeding %d identities...\n", *identities)
	startSeed := time.Now()
	states := make([]identityState, *identities)
	for i := 0; i < *identities; i++ {
		email := fmt.Sprintf("load-%d@example.com", i)
		directory.add(email)
		res, err := manager.Login(ctx, email, seedPassword)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed login failed: %v\n", err)
			os.Exit(1)
		}
		states[i].access = res.Tokens.AccessToken
		states[i].refresh = res.Tokens.RefreshToken
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	resolveStats := runResolvePhase(ctx, manager, states, *ops, *concurrency)
	refreshStats := runRefreshPhase(ctx, manager, states, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("resolve", resolveStats)
	printStats("refresh", refreshStats)
}

func runResolvePhase(ctx context.Context, manager *assetcore.Manager, states []identityState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(states))
				t0 := time.Now()
				_, err := manager.ResolveContext(ctx, states[idx].access)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func runRefreshPhase(ctx context.Context, manager *assetcore.Manager, states []identityState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(states))
				state := &states[idx]

				state.mu.Lock()
				t0 := time.Now()
				res, err := manager.Refresh(ctx, state.refresh)
				d := time.Since(t0)
				if err == nil {
					state.access = res.Tokens.AccessToken
					state.refresh = res.Tokens.RefreshToken
				} else {
					atomic.AddInt64(&failures, 1)
				}
				state.mu.Unlock()

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

// Argon2 would dominate the seed phase, so the load test uses a
// pass-through verifier. Token work is what we want to measure.
const seedPassword = "load-test-password"

type seedVerifier struct{}

func (seedVerifier) Verify(password, encodedHash string) (bool, error) {
	return encodedHash == "seed:"+password, nil
}

type seedDirectory struct {
	mu      sync.RWMutex
	byID    map[string]assetcore.Identity
	byEmail map[string]string
}

func newSeedDirectory() *seedDirectory {
	return &seedDirectory{
		byID:    make(map[string]assetcore.Identity),
		byEmail: make(map[string]string),
	}
}

func (d *seedDirectory) add(email string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := uuid.NewString()
	d.byID[id] = assetcore.Identity{
		ID:           id,
		Email:        email,
		PasswordHash: "seed:" + seedPassword,
		Kind:         assetcore.KindTenantUser,
		Active:       true,
	}
	d.byEmail[email] = id
}

func (d *seedDirectory) FindByEmail(_ context.Context, email string) (*assetcore.Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byEmail[email]
	if !ok {
		return nil, assetcore.ErrIdentityNotFound
	}
	identity := d.byID[id]
	return &identity, nil
}

func (d *seedDirectory) FindByID(_ context.Context, id string) (*assetcore.Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	identity, ok := d.byID[id]
	if !ok {
		return nil, assetcore.ErrIdentityNotFound
	}
	return &identity, nil
}

func (d *seedDirectory) MembershipsOf(_ context.Context, identityID string) ([]assetcore.Membership, error) {
	return []assetcore.Membership{
		{TenantID: "load-tenant", Role: "technician", Primary: true, Active: true},
	}, nil
}

func (d *seedDirectory) MarkLastLogin(context.Context, string, time.Time) error { return nil }
