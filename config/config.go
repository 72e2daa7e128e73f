// Package config loads service configuration for deployments of the
// auth core. It uses Viper to read settings from environment variables
// or a local .env file.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/docuvault/authcore"
)

// Config stores the deployment-level settings. The values are read by
// viper from a config file or environment variables.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	RabbitMQURL string `mapstructure:"RABBITMQ_URL"`

	TokenSigningKey string `mapstructure:"TOKEN_SIGNING_KEY"`
	TokenIssuer     string `mapstructure:"TOKEN_ISSUER"`
	TokenAudience   string `mapstructure:"TOKEN_AUDIENCE"`

	AccessTTLMinutes  int `mapstructure:"ACCESS_TTL_MINUTES"`
	ResetTTLMinutes   int `mapstructure:"RESET_TTL_MINUTES"`
	ChallengeTTLMins  int `mapstructure:"CHALLENGE_TTL_MINUTES"`
	ChallengeAttempts int `mapstructure:"CHALLENGE_MAX_ATTEMPTS"`
	OTPDigits         int `mapstructure:"OTP_DIGITS"`

	AuditEnabled   bool `mapstructure:"AUDIT_ENABLED"`
	MetricsEnabled bool `mapstructure:"METRICS_ENABLED"`
}

var boundKeys = []string{
	"SERVER_PORT",
	"REDIS_ADDR",
	"REDIS_PASSWORD",
	"DATABASE_URL",
	"RABBITMQ_URL",
	"TOKEN_SIGNING_KEY",
	"TOKEN_ISSUER",
	"TOKEN_AUDIENCE",
	"ACCESS_TTL_MINUTES",
	"RESET_TTL_MINUTES",
	"CHALLENGE_TTL_MINUTES",
	"CHALLENGE_MAX_ATTEMPTS",
	"OTP_DIGITS",
	"AUDIT_ENABLED",
	"METRICS_ENABLED",
}

// LoadConfig reads configuration from a .env file in path or from
// environment variables. Environment variables win.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range boundKeys {
		_ = v.BindEnv(key)
	}

	if err = v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return config, err
		}
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return config, err
	}

	return config, nil
}

// EngineConfig translates the deployment settings into an engine
// configuration, starting from the engine defaults so unset values keep
// their documented behavior.
func (c Config) EngineConfig() authcore.Config {
	cfg := authcore.DefaultConfig()

	if c.TokenSigningKey != "" {
		cfg.Token.PrivateKey = []byte(c.TokenSigningKey)
	}
	if c.TokenIssuer != "" {
		cfg.Token.Issuer = c.TokenIssuer
	}
	if c.TokenAudience != "" {
		cfg.Token.Audience = c.TokenAudience
	}
	if c.AccessTTLMinutes > 0 {
		cfg.Token.AccessTTL = time.Duration(c.AccessTTLMinutes) * time.Minute
	}
	if c.ResetTTLMinutes > 0 {
		cfg.Token.ResetTTL = time.Duration(c.ResetTTLMinutes) * time.Minute
	}
	if c.ChallengeTTLMins > 0 {
		ttl := time.Duration(c.ChallengeTTLMins) * time.Minute
		cfg.SecondFactor.ChallengeTTL = ttl
		cfg.Recovery.ChallengeTTL = ttl
	}
	if c.ChallengeAttempts > 0 {
		cfg.SecondFactor.MaxAttempts = c.ChallengeAttempts
		cfg.Recovery.MaxAttempts = c.ChallengeAttempts
	}
	if c.OTPDigits > 0 {
		cfg.SecondFactor.OTPDigits = c.OTPDigits
		cfg.Recovery.OTPDigits = c.OTPDigits
	}
	cfg.Audit.Enabled = c.AuditEnabled
	cfg.Metrics.Enabled = c.MetricsEnabled

	return cfg
}
