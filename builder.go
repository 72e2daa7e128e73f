package authcore

import (
	"errors"

	"github.com/docuvault/authcore/internal/audit"
	"github.com/docuvault/authcore/internal/limiters"
	"github.com/docuvault/authcore/internal/stores"
	"github.com/docuvault/authcore/password"
	"github.com/docuvault/authcore/token"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. Each builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users    CredentialProvider
	notifier Notifier
	sink     AuditSink

	built bool
}

// New starts a builder with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration tree.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing challenges, the consumed-token
// registry, and the login throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCredentialProvider sets the credential store gateway.
func (b *Builder) WithCredentialProvider(p CredentialProvider) *Builder {
	b.users = p
	return b
}

// WithNotifier sets the out-of-band code delivery channel.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink sets the audit event consumer and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithMetricsEnabled toggles the counter registry.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.users == nil {
		return nil, errors.New("credential provider required")
	}
	if b.notifier == nil {
		return nil, errors.New("notifier required")
	}

	engine := &Engine{
		config:   cloneConfig(cfg),
		users:    b.users,
		notifier: b.notifier,
	}

	engine.challenges = stores.NewChallengeStore(b.redis, "ac")
	engine.consumed = stores.NewConsumedTokenRegistry(b.redis, "acr")
	engine.loginLimiter = limiters.NewLoginLimiter(b.redis, limiters.LoginConfig{
		Enabled:     cfg.LoginThrottle.Enabled,
		MaxAttempts: cfg.LoginThrottle.MaxAttempts,
		Cooldown:    cfg.LoginThrottle.Cooldown,
	})
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.sink)
	engine.metrics = NewMetrics(cfg.Metrics)

	engine.policy = password.Policy{
		MinLength:     cfg.Password.MinLength,
		RequireUpper:  cfg.Password.RequireUpper,
		RequireLower:  cfg.Password.RequireLower,
		RequireDigit:  cfg.Password.RequireDigit,
		RequireSymbol: cfg.Password.RequireSymbol,
	}

	ph, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	engine.passwordHash = ph

	tm, err := token.NewManager(token.Config{
		SigningMethod: token.SigningMethod(cfg.Token.SigningMethod),
		PrivateKey:    cloneBytes(cfg.Token.PrivateKey),
		PublicKey:     cloneBytes(cfg.Token.PublicKey),
		Issuer:        cfg.Token.Issuer,
		Audience:      cfg.Token.Audience,
		Leeway:        cfg.Token.Leeway,
		AccessTTL:     cfg.Token.AccessTTL,
		PendingTTL:    cfg.Token.PendingTTL,
		ResetTTL:      cfg.Token.ResetTTL,
	})
	if err != nil {
		return nil, err
	}
	engine.tokens = tm

	b.built = true

	return engine, nil
}
