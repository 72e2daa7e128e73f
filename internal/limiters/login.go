package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginConfig holds configuration for the failed-login throttle.
type LoginConfig struct {
	Enabled     bool
	MaxAttempts int
	Cooldown    time.Duration
}

var (
	// ErrLoginLimiterUnavailable indicates the throttle backend is unreachable.
	ErrLoginLimiterUnavailable = errors.New("login limiter backend unavailable")
)

// LoginLimiter counts consecutive failed logins per identifier inside a
// rolling cooldown window. Once the count reaches MaxAttempts further
// logins for that identifier are refused until the window lapses.
type LoginLimiter struct {
	redis  redis.UniversalClient
	config LoginConfig
}

// NewLoginLimiter creates a new login throttle.
func NewLoginLimiter(redisClient redis.UniversalClient, cfg LoginConfig) *LoginLimiter {
	return &LoginLimiter{redis: redisClient, config: cfg}
}

func (l *LoginLimiter) key(identifier string) string {
	return "alf:" + identifier
}

// Blocked reports whether the identifier has exhausted its attempts.
func (l *LoginLimiter) Blocked(ctx context.Context, identifier string) (bool, error) {
	if !l.config.Enabled || identifier == "" {
		return false, nil
	}

	count, err := l.redis.Get(ctx, l.key(identifier)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrLoginLimiterUnavailable, err)
	}
	return count >= int64(l.config.MaxAttempts), nil
}

// RecordFailure increments the failure counter for an identifier.
// Returns true if the identifier is now blocked.
func (l *LoginLimiter) RecordFailure(ctx context.Context, identifier string) (bool, error) {
	if !l.config.Enabled || identifier == "" {
		return false, nil
	}

	count, err := l.redis.Incr(ctx, l.key(identifier)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLoginLimiterUnavailable, err)
	}

	if count == 1 && l.config.Cooldown > 0 {
		// TTL on first failure makes the counter a rolling window.
		if err := l.redis.Expire(ctx, l.key(identifier), l.config.Cooldown).Err(); err != nil {
			return false, fmt.Errorf("%w: %v", ErrLoginLimiterUnavailable, err)
		}
	}

	return count >= int64(l.config.MaxAttempts), nil
}

// Reset clears the failure counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, identifier string) error {
	if !l.config.Enabled || identifier == "" {
		return nil
	}

	if err := l.redis.Del(ctx, l.key(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLoginLimiterUnavailable, err)
	}
	return nil
}
