package password

import (
	"strings"
	"testing"
)

func testConfig() Config {
	cfg := DefaultConfig()
	// Keep unit tests fast; production cost is env-driven.
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	return cfg
}

func TestHashAndVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg := testConfig()

	enc, err := cfg.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(enc, "$argon2id$v=19$") {
		t.Fatalf("unexpected encoding: %q", enc)
	}

	ok, err := cfg.Verify(enc, "correct horse battery staple")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected match")
	}

	ok, err = cfg.Verify(enc, "wrong password")
	if err != nil {
		t.Fatalf("Verify mismatch: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatch")
	}
}

func TestHash_UniqueSaltPerCall(t *testing.T) {
	t.Parallel()

	cfg := testConfig()

	a, err := cfg.Hash("same-password-123")
	if err != nil {
		t.Fatalf("Hash a: %v", err)
	}
	b, err := cfg.Hash("same-password-123")
	if err != nil {
		t.Fatalf("Hash b: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct encodings for identical passwords")
	}
}

func TestHash_PolicyBounds(t *testing.T) {
	t.Parallel()

	cfg := testConfig()

	if _, err := cfg.Hash("short"); err != ErrPasswordTooShort {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if _, err := cfg.Hash(strings.Repeat("x", cfg.Policy.MaxLength+1)); err != ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestVerify_MalformedHashes(t *testing.T) {
	t.Parallel()

	cfg := testConfig()

	cases := []string{
		"",
		"not-a-hash",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$aGFzaA",
	}

	for _, encoded := range cases {
		if _, err := cfg.Verify(encoded, "whatever"); err != ErrInvalidHash {
			t.Fatalf("Verify(%q): expected ErrInvalidHash, got %v", encoded, err)
		}
	}
}

func TestVerify_RejectsOversizedParams(t *testing.T) {
	t.Parallel()

	cfg := testConfig()

	// Parameters far above the configured maxima must be refused before hashing.
	hostile := "$argon2id$v=19$m=1048576,t=40,p=255$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g"
	if _, err := cfg.Verify(hostile, "whatever"); err != ErrInvalidHash {
		t.Fatalf("expected ErrInvalidHash for oversized params, got %v", err)
	}
}
