package authcore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/docuvault/authcore/password"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Token.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func newTestHasher(t *testing.T) *password.Argon2 {
	t.Helper()

	cfg := testConfig()
	h, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	return h
}

type mockProvider struct {
	mu           sync.Mutex
	users        map[string]UserRecord
	byIdentifier map[string]string

	lookupErr error
	updateErr error

	updatePasswordCalls int
}

func (m *mockProvider) GetUserByIdentifier(_ context.Context, identifier string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lookupErr != nil {
		return UserRecord{}, m.lookupErr
	}
	id, ok := m.byIdentifier[identifier]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return m.users[id], nil
}

func (m *mockProvider) GetUserByID(_ context.Context, userID string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lookupErr != nil {
		return UserRecord{}, m.lookupErr
	}
	user, ok := m.users[userID]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return user, nil
}

func (m *mockProvider) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.updatePasswordCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	user, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.PasswordHash = newHash
	m.users[userID] = user
	return nil
}

type delivered struct {
	userID string
	code   string
	kind   ChallengeKind
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []delivered
	fail bool
}

func (n *captureNotifier) DeliverCode(_ context.Context, user UserRecord, code string, kind ChallengeKind) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.fail {
		return context.DeadlineExceeded
	}
	n.sent = append(n.sent, delivered{userID: user.UserID, code: code, kind: kind})
	return nil
}

func (n *captureNotifier) last(t *testing.T) delivered {
	t.Helper()

	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		t.Fatal("expected a delivered code")
	}
	return n.sent[len(n.sent)-1]
}

func newTestEngine(t *testing.T, rdb *redis.Client, p *mockProvider, n *captureNotifier, mutate func(*Config)) *Engine {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCredentialProvider(p).
		WithNotifier(n).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func seedUser(t *testing.T, hasher *password.Argon2, secret string, user UserRecord) (*mockProvider, UserRecord) {
	t.Helper()

	hash, err := hasher.Hash(secret)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	user.PasswordHash = hash

	return &mockProvider{
		users:        map[string]UserRecord{user.UserID: user},
		byIdentifier: map[string]string{user.Identifier: user.UserID},
	}, user
}

func waitForAudit(t *testing.T, sink *ChannelSink, eventType string) AuditEvent {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sink.Events():
			if ev.EventType == eventType {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for audit event %q", eventType)
		}
	}
}
