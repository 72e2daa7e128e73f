package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrConsumedBackend = errors.New("consumed token backend unavailable")
)

// ConsumedTokenRegistry records reset token IDs that have been spent.
// Consume is the single linearization point of a reset: SET NX either
// claims the ID or reports it already claimed, so at most one caller
// ever wins a given token.
type ConsumedTokenRegistry struct {
	redis  redis.UniversalClient
	prefix string
}

func NewConsumedTokenRegistry(redisClient redis.UniversalClient, prefix string) *ConsumedTokenRegistry {
	if prefix == "" {
		prefix = "acr"
	}
	return &ConsumedTokenRegistry{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (r *ConsumedTokenRegistry) key(tokenID string) string {
	return r.prefix + ":" + tokenID
}

// Consume claims tokenID. It returns true if this caller claimed it,
// false if the token was already spent. The mark outlives the token's
// own validity window by the given ttl.
func (r *ConsumedTokenRegistry) Consume(ctx context.Context, tokenID string, ttl time.Duration) (bool, error) {
	ok, err := r.redis.SetNX(ctx, r.key(tokenID), []byte{1}, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrConsumedBackend, err)
	}
	return ok, nil
}

// Spent reports whether tokenID has already been claimed. It is a
// read-only probe; Consume remains the only claim operation, so a false
// answer here can still lose the subsequent Consume race.
func (r *ConsumedTokenRegistry) Spent(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.redis.Exists(ctx, r.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrConsumedBackend, err)
	}
	return n > 0, nil
}

// Release undoes a Consume. Used when the work the token gated could not
// be completed, so the caller may retry with the same token.
func (r *ConsumedTokenRegistry) Release(ctx context.Context, tokenID string) error {
	if err := r.redis.Del(ctx, r.key(tokenID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrConsumedBackend, err)
	}
	return nil
}
