package assetcore

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/darkbcx/asset-core2/internal/audit"
	"github.com/darkbcx/asset-core2/internal/rate"
	"github.com/darkbcx/asset-core2/jwt"
	"github.com/darkbcx/asset-core2/ledger"
	"github.com/darkbcx/asset-core2/password"
)

// Builder assembles a Manager. Collaborators the module does not own
// (refresh ledger, identity directory, Redis) are injected; the token
// codec, throttles, audit dispatcher, and metrics are built from the
// configuration.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	ledger    ledger.Ledger
	directory Directory
	verifier  CredentialVerifier

	auditSink  AuditSink
	registerer prometheus.Registerer

	built bool
}

// New starts a builder with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing the login and refresh
// throttles. Required: the attempt counters are shared across
// replicas and never held in process memory.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLedger sets the refresh credential store. Required.
func (b *Builder) WithLedger(l ledger.Ledger) *Builder {
	b.ledger = l
	return b
}

// WithDirectory sets the identity source of record. Required.
func (b *Builder) WithDirectory(d Directory) *Builder {
	b.directory = d
	return b
}

// WithVerifier overrides the credential verifier. Defaults to Argon2id
// with production parameters.
func (b *Builder) WithVerifier(v CredentialVerifier) *Builder {
	b.verifier = v
	return b
}

// WithAuditSink sets the consumer for audit events. Without one,
// enabled auditing falls back to a no-op sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsRegisterer overrides where collectors register. Defaults
// to the global Prometheus registerer.
func (b *Builder) WithMetricsRegisterer(reg prometheus.Registerer) *Builder {
	b.registerer = reg
	return b
}

// Build validates the configuration, wires the collaborators, and
// returns a ready Manager. A builder is single-use.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.ledger == nil {
		return nil, errors.New("refresh ledger required")
	}
	if b.directory == nil {
		return nil, errors.New("directory required")
	}

	codec, err := jwt.NewCodec(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
		VerifyKeys:    cfg.JWT.VerifyKeys,
	})
	if err != nil {
		return nil, err
	}

	verifier := b.verifier
	if verifier == nil {
		verifier, err = password.NewArgon2(password.DefaultConfig())
		if err != nil {
			return nil, err
		}
	}

	manager := &Manager{
		config:    cfg,
		codec:     codec,
		ledger:    b.ledger,
		directory: b.directory,
		verifier:  verifier,
	}

	manager.limiter = rate.New(b.redis, rate.Config{
		EnableIPThrottle:        cfg.Security.EnableIPThrottle,
		EnableRefreshThrottle:   cfg.Security.EnableRefreshThrottle,
		MaxLoginAttempts:        cfg.Security.MaxLoginAttempts,
		LoginCooldownDuration:   cfg.Security.LoginCooldownDuration,
		MaxRefreshAttempts:      cfg.Security.MaxRefreshAttempts,
		RefreshCooldownDuration: cfg.Security.RefreshCooldownDuration,
	})
	manager.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	manager.metrics = NewMetrics(cfg.Metrics, b.registerer)

	b.built = true

	return manager, nil
}
