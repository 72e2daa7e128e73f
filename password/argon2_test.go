package password

import (
	"strings"
	"testing"
)

func fastConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
}

func TestHashAndVerify(t *testing.T) {
	hasher, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}

	hash, err := hasher.Hash("Sup3r-Secret")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("unexpected hash format: %q", hash)
	}

	ok, err := hasher.Verify("Sup3r-Secret", hash)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !ok {
		t.Fatal("correct password must verify")
	}
}

func TestVerifyWrongPassword(t *testing.T) {
	hasher, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}

	hash, err := hasher.Hash("Sup3r-Secret")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	ok, err := hasher.Verify("not-the-secret", hash)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if ok {
		t.Fatal("wrong password must not verify")
	}
}

func TestHashSaltsDiffer(t *testing.T) {
	hasher, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}

	first, err := hasher.Hash("Sup3r-Secret")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	second, err := hasher.Hash("Sup3r-Secret")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if first == second {
		t.Fatal("two hashes of the same password must differ")
	}
}

func TestNeedsUpgrade(t *testing.T) {
	weak, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}

	hash, err := weak.Hash("Sup3r-Secret")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	if upgrade, err := weak.NeedsUpgrade(hash); err != nil || upgrade {
		t.Fatalf("same parameters must not need upgrade: upgrade=%v err=%v", upgrade, err)
	}

	strongCfg := fastConfig()
	strongCfg.Time = 3
	strong, err := NewArgon2(strongCfg)
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	if upgrade, err := strong.NeedsUpgrade(hash); err != nil || !upgrade {
		t.Fatalf("stronger parameters must need upgrade: upgrade=%v err=%v", upgrade, err)
	}

	// a hash produced under the stronger parameters still verifies under
	// its own encoded parameters, regardless of the verifier's config
	strongHash, err := strong.Hash("Sup3r-Secret")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	ok, err := weak.Verify("Sup3r-Secret", strongHash)
	if err != nil || !ok {
		t.Fatalf("verification must follow the encoded parameters: ok=%v err=%v", ok, err)
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	hasher, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}

	malformed := []string{
		"",
		"plainstring",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$",
	}
	for _, in := range malformed {
		if _, err := hasher.Verify("whatever", in); err == nil {
			t.Fatalf("expected an error for %q", in)
		}
	}
}

func TestNewArgon2Validation(t *testing.T) {
	bad := []Config{
		{Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16},
		{Memory: 8192, Time: 0, Parallelism: 1, SaltLength: 16, KeyLength: 16},
		{Memory: 8192, Time: 1, Parallelism: 0, SaltLength: 16, KeyLength: 16},
		{Memory: 8192, Time: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16},
		{Memory: 8192, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 8},
	}
	for i, cfg := range bad {
		if _, err := NewArgon2(cfg); err == nil {
			t.Fatalf("case %d: expected a configuration error", i)
		}
	}
}
