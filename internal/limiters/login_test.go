package limiters

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg LoginConfig) (*miniredis.Miniredis, *LoginLimiter) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, NewLoginLimiter(client, cfg)
}

func TestLimiterBlocksAfterMaxAttempts(t *testing.T) {
	_, limiter := newTestLimiter(t, LoginConfig{
		Enabled:     true,
		MaxAttempts: 3,
		Cooldown:    time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		blocked, err := limiter.RecordFailure(ctx, "alice")
		if err != nil {
			t.Fatalf("RecordFailure failed: %v", err)
		}
		if blocked {
			t.Fatalf("failure %d must not block yet", i+1)
		}
	}

	blocked, err := limiter.RecordFailure(ctx, "alice")
	if err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}
	if !blocked {
		t.Fatal("third failure must block")
	}

	blocked, err = limiter.Blocked(ctx, "alice")
	if err != nil || !blocked {
		t.Fatalf("Blocked: got blocked=%v err=%v", blocked, err)
	}

	// another identifier is unaffected
	blocked, err = limiter.Blocked(ctx, "bob")
	if err != nil || blocked {
		t.Fatalf("bob must not be blocked: blocked=%v err=%v", blocked, err)
	}
}

func TestLimiterWindowLapses(t *testing.T) {
	mr, limiter := newTestLimiter(t, LoginConfig{
		Enabled:     true,
		MaxAttempts: 2,
		Cooldown:    time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := limiter.RecordFailure(ctx, "alice"); err != nil {
			t.Fatalf("RecordFailure failed: %v", err)
		}
	}
	if blocked, _ := limiter.Blocked(ctx, "alice"); !blocked {
		t.Fatal("expected alice to be blocked")
	}

	mr.FastForward(2 * time.Minute)

	if blocked, _ := limiter.Blocked(ctx, "alice"); blocked {
		t.Fatal("block must lapse with the cooldown window")
	}
}

func TestLimiterReset(t *testing.T) {
	_, limiter := newTestLimiter(t, LoginConfig{
		Enabled:     true,
		MaxAttempts: 2,
		Cooldown:    time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := limiter.RecordFailure(ctx, "alice"); err != nil {
			t.Fatalf("RecordFailure failed: %v", err)
		}
	}
	if err := limiter.Reset(ctx, "alice"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if blocked, _ := limiter.Blocked(ctx, "alice"); blocked {
		t.Fatal("Reset must clear the block")
	}
}

func TestLimiterDisabled(t *testing.T) {
	_, limiter := newTestLimiter(t, LoginConfig{Enabled: false, MaxAttempts: 1})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		blocked, err := limiter.RecordFailure(ctx, "alice")
		if err != nil || blocked {
			t.Fatalf("disabled limiter must never block: blocked=%v err=%v", blocked, err)
		}
	}
	if blocked, _ := limiter.Blocked(ctx, "alice"); blocked {
		t.Fatal("disabled limiter must never block")
	}
}
