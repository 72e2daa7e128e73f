package authcore

import (
	"errors"
	"time"
)

// Config is the full engine configuration tree. Populate it before
// Build; the engine treats it as immutable afterwards.
type Config struct {
	Token         TokenConfig
	Password      PasswordConfig
	SecondFactor  SecondFactorConfig
	Recovery      RecoveryConfig
	LoginThrottle LoginThrottleConfig
	Dependency    DependencyConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig configures signing and validation of all tokens the engine
// issues. Access, pending-second-factor, and reset tokens share the same
// key material but carry distinct purposes and lifetimes.
type TokenConfig struct {
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration

	AccessTTL  time.Duration
	PendingTTL time.Duration
	ResetTTL   time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the argon2id hashing parameters and the password
// acceptance policy applied on reset.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSymbol  bool
	ForbidRepeated bool // reject the current password as the new one
}

/*
====================================
CHALLENGE CONFIG
====================================
*/

// SecondFactorConfig controls login second-factor challenges.
type SecondFactorConfig struct {
	ChallengeTTL time.Duration
	MaxAttempts  int
	OTPDigits    int
}

// RecoveryConfig controls the password recovery flow: the OTP challenge
// issued at the start, and the single-use reset token granted after the
// OTP verifies.
type RecoveryConfig struct {
	ChallengeTTL time.Duration
	MaxAttempts  int
	OTPDigits    int
}

/*
====================================
THROTTLE CONFIG
====================================
*/

// LoginThrottleConfig bounds consecutive failed logins per identifier.
type LoginThrottleConfig struct {
	Enabled     bool
	MaxAttempts int
	Cooldown    time.Duration
}

// DependencyConfig bounds calls into external dependencies. Any call
// exceeding Timeout surfaces as ErrBackendUnavailable.
type DependencyConfig struct {
	Timeout time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counter registry.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration a fresh [Builder] starts from.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			SigningMethod: "hs256",
			Leeway:        30 * time.Second,
			AccessTTL:     15 * time.Minute,
			PendingTTL:    5 * time.Minute,
			ResetTTL:      10 * time.Minute,
		},
		Password: PasswordConfig{
			Memory:       65536,
			Time:         3,
			Parallelism:  2,
			SaltLength:   16,
			KeyLength:    32,
			MinLength:    8,
			RequireUpper: true,
			RequireLower: true,
			RequireDigit: true,
		},
		SecondFactor: SecondFactorConfig{
			ChallengeTTL: 5 * time.Minute,
			MaxAttempts:  5,
			OTPDigits:    6,
		},
		Recovery: RecoveryConfig{
			ChallengeTTL: 10 * time.Minute,
			MaxAttempts:  5,
			OTPDigits:    6,
		},
		LoginThrottle: LoginThrottleConfig{
			Enabled:     true,
			MaxAttempts: 5,
			Cooldown:    15 * time.Minute,
		},
		Dependency: DependencyConfig{
			Timeout: 5 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for internal consistency. Build calls
// it; direct callers may use it to fail fast on startup.
func (c *Config) Validate() error {
	// Token
	if c.Token.SigningMethod != "hs256" && c.Token.SigningMethod != "ed25519" {
		return errors.New("unsupported token signing method")
	}
	if c.Token.SigningMethod == "hs256" && len(c.Token.PrivateKey) < 32 {
		return errors.New("hs256 requires PrivateKey of at least 32 bytes")
	}
	if c.Token.SigningMethod == "ed25519" {
		if len(c.Token.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
		if len(c.Token.PublicKey) == 0 {
			return errors.New("ed25519 requires PublicKey")
		}
	}
	if c.Token.AccessTTL <= 0 {
		return errors.New("Token AccessTTL must be > 0")
	}
	if c.Token.PendingTTL <= 0 {
		return errors.New("Token PendingTTL must be > 0")
	}
	if c.Token.ResetTTL <= 0 {
		return errors.New("Token ResetTTL must be > 0")
	}
	if c.Token.Leeway < 0 {
		return errors.New("Token Leeway must be >= 0")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}

	// Second factor
	if c.SecondFactor.ChallengeTTL <= 0 {
		return errors.New("SecondFactor ChallengeTTL must be > 0")
	}
	if c.SecondFactor.MaxAttempts <= 0 {
		return errors.New("SecondFactor MaxAttempts must be > 0")
	}
	if c.SecondFactor.OTPDigits < 6 || c.SecondFactor.OTPDigits > 10 {
		return errors.New("SecondFactor OTPDigits must be between 6 and 10")
	}

	// Recovery
	if c.Recovery.ChallengeTTL <= 0 {
		return errors.New("Recovery ChallengeTTL must be > 0")
	}
	if c.Recovery.MaxAttempts <= 0 {
		return errors.New("Recovery MaxAttempts must be > 0")
	}
	if c.Recovery.OTPDigits < 6 || c.Recovery.OTPDigits > 10 {
		return errors.New("Recovery OTPDigits must be between 6 and 10")
	}

	// Login throttle
	if c.LoginThrottle.Enabled {
		if c.LoginThrottle.MaxAttempts <= 0 {
			return errors.New("LoginThrottle MaxAttempts must be > 0")
		}
		if c.LoginThrottle.Cooldown <= 0 {
			return errors.New("LoginThrottle Cooldown must be > 0")
		}
	}

	// Dependency
	if c.Dependency.Timeout <= 0 {
		return errors.New("Dependency Timeout must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
