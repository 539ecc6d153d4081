package assetcore

import (
	"errors"
	"time"
)

// JWTConfig carries key material and token lifetimes. Keys are always
// caller-supplied; nothing in this module generates or persists them.
type JWTConfig struct {
	// SigningMethod is "hs256" or "ed25519".
	SigningMethod string
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte

	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// SecurityConfig tunes the Redis-backed throttles.
type SecurityConfig struct {
	EnableIPThrottle        bool
	EnableRefreshThrottle   bool
	MaxLoginAttempts        int
	LoginCooldownDuration   time.Duration
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls Prometheus collector registration.
type MetricsConfig struct {
	Enabled   bool
	Namespace string
}

// Config is the complete manager configuration. Treat instances as
// immutable once passed to the builder; Build clones them.
type Config struct {
	JWT      JWTConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// DefaultConfig returns production defaults: 7 day access tokens,
// 30 day refresh tokens, login and refresh throttling enabled.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			SigningMethod: "hs256",
			Leeway:        30 * time.Second,
			AccessTTL:     7 * 24 * time.Hour,
			RefreshTTL:    30 * 24 * time.Hour,
		},
		Security: SecurityConfig{
			EnableIPThrottle:        true,
			EnableRefreshThrottle:   true,
			MaxLoginAttempts:        5,
			LoginCooldownDuration:   15 * time.Minute,
			MaxRefreshAttempts:      30,
			RefreshCooldownDuration: time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "assetcore",
		},
	}
}

// Validate rejects configurations the manager cannot run with.
func (c Config) Validate() error {
	if c.JWT.AccessTTL <= 0 {
		return errors.New("config: access TTL must be positive")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("config: refresh TTL must be positive")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("config: refresh TTL must not be shorter than access TTL")
	}
	if c.Security.MaxLoginAttempts <= 0 {
		return errors.New("config: max login attempts must be positive")
	}
	if c.Security.LoginCooldownDuration <= 0 {
		return errors.New("config: login cooldown must be positive")
	}
	if c.Security.EnableRefreshThrottle {
		if c.Security.MaxRefreshAttempts <= 0 {
			return errors.New("config: max refresh attempts must be positive")
		}
		if c.Security.RefreshCooldownDuration <= 0 {
			return errors.New("config: refresh cooldown must be positive")
		}
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	if cfg.JWT.VerifyKeys != nil {
		out.JWT.VerifyKeys = make(map[string][]byte, len(cfg.JWT.VerifyKeys))
		for kid, key := range cfg.JWT.VerifyKeys {
			out.JWT.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
