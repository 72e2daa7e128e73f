package authcore

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func startSecondFactorLogin(t *testing.T, engine *Engine, notifier *captureNotifier, identifier, secret string) (string, string) {
	t.Helper()

	result, err := engine.ValidateLogin(context.Background(), identifier, secret)
	if err != nil {
		t.Fatalf("ValidateLogin failed: %v", err)
	}
	if !result.RequiresSecondFactor {
		t.Fatal("expected a second-factor challenge")
	}
	return result.ChallengeID, notifier.last(t).code
}

func TestVerifySecondFactorSuccess(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	provider, _ := seedUser(t, hasher, "Sup3r-Secret", UserRecord{
		UserID:       "u1",
		Identifier:   "alice",
		Alias:        "Alice",
		Roles:        []string{"viewer"},
		Status:       AccountActive,
		SecondFactor: true,
	})
	notifier := &captureNotifier{}

	engine := newTestEngine(t, rdb, provider, notifier, nil)
	challengeID, code := startSecondFactorLogin(t, engine, notifier, "alice", "Sup3r-Secret")

	result, err := engine.VerifySecondFactor(ctx, challengeID, code)
	if err != nil {
		t.Fatalf("VerifySecondFactor failed: %v", err)
	}
	if result.AccessToken == "" {
		t.Fatal("expected an access token")
	}

	auth, err := engine.ValidateAccess(ctx, result.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess failed: %v", err)
	}
	if auth.UserID != "u1" {
		t.Fatalf("unexpected user: %q", auth.UserID)
	}
}

func TestVerifySecondFactorWrongThenCorrect(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	provider, _ := seedUser(t, hasher, "Sup3r-Secret", UserRecord{
		UserID:       "u1",
		Identifier:   "alice",
		Status:       AccountActive,
		SecondFactor: true,
	})
	notifier := &captureNotifier{}

	engine := newTestEngine(t, rdb, provider, notifier, nil)
	challengeID, code := startSecondFactorLogin(t, engine, notifier, "alice", "Sup3r-Secret")

	if _, err := engine.VerifySecondFactor(ctx, challengeID, "000000"); !errors.Is(err, ErrChallengeCodeInvalid) {
		t.Fatalf("expected ErrChallengeCodeInvalid, got %v", err)
	}

	if _, err := engine.VerifySecondFactor(ctx, challengeID, code); err != nil {
		t.Fatalf("correct code after a wrong guess should still pass: %v", err)
	}
}

func TestVerifySecondFactorAttemptsExhausted(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	provider, _ := seedUser(t, hasher, "Sup3r-Secret", UserRecord{
		UserID:       "u1",
		Identifier:   "alice",
		Status:       AccountActive,
		SecondFactor: true,
	})
	notifier := &captureNotifier{}

	engine := newTestEngine(t, rdb, provider, notifier, func(cfg *Config) {
		cfg.SecondFactor.MaxAttempts = 3
	})
	challengeID, code := startSecondFactorLogin(t, engine, notifier, "alice", "Sup3r-Secret")

	for i := 0; i < 2; i++ {
		if _, err := engine.VerifySecondFactor(ctx, challengeID, "000000"); !errors.Is(err, ErrChallengeCodeInvalid) {
			t.Fatalf("guess %d: expected ErrChallengeCodeInvalid, got %v", i+1, err)
		}
	}

	// third attempt hits the budget: even the delivered code is dead now
	if _, err := engine.VerifySecondFactor(ctx, challengeID, code); !errors.Is(err, ErrChallengeAttemptsExceeded) {
		t.Fatalf("expected ErrChallengeAttemptsExceeded, got %v", err)
	}
	if _, err := engine.VerifySecondFactor(ctx, challengeID, code); !errors.Is(err, ErrChallengeAttemptsExceeded) {
		t.Fatalf("expected ErrChallengeAttemptsExceeded on replay, got %v", err)
	}
}

func TestVerifySecondFactorReplayAfterSuccess(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	provider, _ := seedUser(t, hasher, "Sup3r-Secret", UserRecord{
		UserID:       "u1",
		Identifier:   "alice",
		Status:       AccountActive,
		SecondFactor: true,
	})
	notifier := &captureNotifier{}

	engine := newTestEngine(t, rdb, provider, notifier, nil)
	challengeID, code := startSecondFactorLogin(t, engine, notifier, "alice", "Sup3r-Secret")

	if _, err := engine.VerifySecondFactor(ctx, challengeID, code); err != nil {
		t.Fatalf("VerifySecondFactor failed: %v", err)
	}

	if _, err := engine.VerifySecondFactor(ctx, challengeID, code); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound on replay, got %v", err)
	}
}

func TestVerifySecondFactorExpired(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	provider, _ := seedUser(t, hasher, "Sup3r-Secret", UserRecord{
		UserID:       "u1",
		Identifier:   "alice",
		Status:       AccountActive,
		SecondFactor: true,
	})
	notifier := &captureNotifier{}

	engine := newTestEngine(t, rdb, provider, notifier, nil)
	challengeID, code := startSecondFactorLogin(t, engine, notifier, "alice", "Sup3r-Secret")

	mr.FastForward(testConfig().SecondFactor.ChallengeTTL / 2)

	if _, err := engine.VerifySecondFactor(ctx, challengeID, code); err != nil {
		t.Fatalf("mid-window verification failed: %v", err)
	}

	challengeID2, code2 := startSecondFactorLogin(t, engine, notifier, "alice", "Sup3r-Secret")
	mr.FastForward(testConfig().SecondFactor.ChallengeTTL * 2)

	// the record is gone once Redis expires the key
	if _, err := engine.VerifySecondFactor(ctx, challengeID2, code2); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound after expiry, got %v", err)
	}
}

func TestVerifySecondFactorKindIsolation(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	provider, _ := seedUser(t, hasher, "Sup3r-Secret", UserRecord{
		UserID:     "u1",
		Identifier: "alice",
		Status:     AccountActive,
	})
	notifier := &captureNotifier{}

	engine := newTestEngine(t, rdb, provider, notifier, nil)

	info, err := engine.RecoveryStart(ctx, "alice")
	if err != nil {
		t.Fatalf("RecoveryStart failed: %v", err)
	}
	code := notifier.last(t).code

	// a recovery challenge never verifies as a login second factor
	if _, err := engine.VerifySecondFactor(ctx, info.ChallengeID, code); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound, got %v", err)
	}

	// and it still works for its own purpose afterwards
	if _, err := engine.RecoveryVerifyOTP(ctx, info.ChallengeID, code); err != nil {
		t.Fatalf("RecoveryVerifyOTP failed after a cross-kind probe: %v", err)
	}
}

func TestVerifySecondFactorConcurrentSingleWinner(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	provider, _ := seedUser(t, hasher, "Sup3r-Secret", UserRecord{
		UserID:       "u1",
		Identifier:   "alice",
		Status:       AccountActive,
		SecondFactor: true,
	})
	notifier := &captureNotifier{}

	engine := newTestEngine(t, rdb, provider, notifier, nil)
	challengeID, code := startSecondFactorLogin(t, engine, notifier, "alice", "Sup3r-Secret")

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.VerifySecondFactor(ctx, challengeID, code)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		if !errors.Is(err, ErrChallengeNotFound) && !errors.Is(err, ErrChallengeAttemptsExceeded) {
			t.Fatalf("unexpected concurrent error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one winner, got %d", successes)
	}
}

func TestIssueChallengeRedelivery(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	hasher := newTestHasher(t)
	provider, _ := seedUser(t, hasher, "Sup3r-Secret", UserRecord{
		UserID:       "u1",
		Identifier:   "alice",
		Status:       AccountActive,
		SecondFactor: true,
	})
	notifier := &captureNotifier{}

	engine := newTestEngine(t, rdb, provider, notifier, nil)

	info, err := engine.IssueChallenge(ctx, "u1")
	if err != nil {
		t.Fatalf("IssueChallenge failed: %v", err)
	}
	code := notifier.last(t).code

	if _, err := engine.VerifySecondFactor(ctx, info.ChallengeID, code); err != nil {
		t.Fatalf("VerifySecondFactor against reissued challenge failed: %v", err)
	}
}
