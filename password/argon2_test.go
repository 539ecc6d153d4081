package password

import (
	"strings"
	"testing"
)

func testConfig() Config {
	return Config{
		Memory:      65536,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newHasher(t *testing.T, cfg Config) *Argon2 {
	t.Helper()
	h, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	hasher := newHasher(t, testConfig())

	hash, err := hasher.Hash("P@ssw0rd-Ascii")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=2$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := hasher.Verify("P@ssw0rd-Ascii", hash)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("correct password did not verify")
	}

	ok, err = hasher.Verify("wrong-password", hash)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatal("wrong password verified")
	}
}

func TestHashRejectsBadInput(t *testing.T) {
	hasher := newHasher(t, testConfig())

	for _, pwd := range []string{"", "short"} {
		if _, err := hasher.Hash(pwd); err == nil {
			t.Errorf("Hash(%q) accepted a too-short password", pwd)
		}
	}

	long := strings.Repeat("a", DefaultMaxPasswordBytes+1)
	if _, err := hasher.Hash(long); err == nil {
		t.Error("Hash accepted a password over the default maximum")
	}
}

func TestMaxPasswordBytesBoundary(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPasswordBytes = 64
	hasher := newHasher(t, cfg)

	exact := strings.Repeat("b", 64)
	hash, err := hasher.Hash(exact)
	if err != nil {
		t.Fatalf("Hash at limit: %v", err)
	}
	if ok, err := hasher.Verify(exact, hash); err != nil || !ok {
		t.Fatalf("Verify at limit: ok=%v err=%v", ok, err)
	}

	over := strings.Repeat("c", 65)
	if _, err := hasher.Hash(over); err == nil {
		t.Error("Hash accepted a password over the configured maximum")
	}
	if _, err := hasher.Verify(over, hash); err == nil {
		t.Error("Verify accepted a password over the configured maximum")
	}
}

func TestNeedsUpgrade(t *testing.T) {
	weak := newHasher(t, Config{
		Memory:      32768,
		Time:        2,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	hash, err := weak.Hash("legacy-password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	current := newHasher(t, testConfig())
	upgrade, err := current.NeedsUpgrade(hash)
	if err != nil {
		t.Fatalf("NeedsUpgrade: %v", err)
	}
	if !upgrade {
		t.Error("weaker hash not flagged for upgrade")
	}

	fresh, err := current.Hash("fresh-password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	upgrade, err = current.NeedsUpgrade(fresh)
	if err != nil {
		t.Fatalf("NeedsUpgrade: %v", err)
	}
	if upgrade {
		t.Error("current-parameter hash flagged for upgrade")
	}
}

func TestVerifyMalformedStoredHash(t *testing.T) {
	hasher := newHasher(t, testConfig())

	cases := []string{
		"not-a-phc-hash",
		"$bcrypt$v=19$m=65536,t=3,p=2$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=18$m=65536,t=3,p=2$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
	}
	for _, stored := range cases {
		if _, err := hasher.Verify("any-password", stored); err == nil {
			t.Errorf("Verify accepted malformed stored hash %q", stored)
		}
	}
}

func TestNewArgon2RejectsWeakConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"memory too low", func(c *Config) { c.Memory = 1024 }},
		{"zero time", func(c *Config) { c.Time = 0 }},
		{"zero parallelism", func(c *Config) { c.Parallelism = 0 }},
		{"short salt", func(c *Config) { c.SaltLength = 8 }},
		{"short key", func(c *Config) { c.KeyLength = 8 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			if _, err := NewArgon2(cfg); err == nil {
				t.Fatal("expected configuration error")
			}
		})
	}
}
