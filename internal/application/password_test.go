package application

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

var fastArgon2idParams = Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

func TestPasswordHashing(t *testing.T) {
	t.Parallel()

	t.Run("argon2id round trip", func(t *testing.T) {
		t.Parallel()

		hash, err := CreatePasswordHash("correct horse", fastArgon2idParams)
		if err != nil {
			t.Fatalf("CreatePasswordHash failed: %v", err)
		}
		if !strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$") {
			t.Fatalf("unexpected hash encoding %q", hash)
		}
		if err := VerifyPassword(hash, "correct horse"); err != nil {
			t.Fatalf("expected match, got %v", err)
		}
		if err := VerifyPassword(hash, "wrong horse"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
		if NeedsRehash(hash) {
			t.Fatalf("argon2id hashes must not need a rehash")
		}
		for _, other := range []string{"plaintext", "$argon2i$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA", ""} {
			if NeedsRehash(other) {
				t.Fatalf("only bcrypt hashes need a rehash, got true for %q", other)
			}
		}
	})

	t.Run("legacy bcrypt hashes verify", func(t *testing.T) {
		t.Parallel()

		hashed, err := bcrypt.GenerateFromPassword([]byte("legacy-pass"), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("bcrypt failed: %v", err)
		}
		// Accounts migrated from PHP carry the $2y$ prefix.
		legacy := "$2y$" + strings.TrimPrefix(string(hashed), "$2a$")

		if err := VerifyPassword(legacy, "legacy-pass"); err != nil {
			t.Fatalf("expected legacy hash to verify, got %v", err)
		}
		if err := VerifyPassword(legacy, "nope"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
		if !NeedsRehash(legacy) {
			t.Fatalf("legacy hashes should be flagged for rehash")
		}
	})

	t.Run("malformed hashes", func(t *testing.T) {
		t.Parallel()

		for _, hash := range []string{"", "plaintext", "$argon2id$v=19$m=1,t=1,p=1$!!$!!", "$argon2i$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA"} {
			if err := VerifyPassword(hash, "x"); !errors.Is(err, ErrInvalidPasswordHash) {
				t.Errorf("VerifyPassword(%q) = %v, want ErrInvalidPasswordHash", hash, err)
			}
		}
		if err := VerifyPassword("$argon2id$v=18$m=1,t=1,p=1$c2FsdA$aGFzaA", "x"); !errors.Is(err, ErrIncompatiblePasswordVersion) {
			t.Fatalf("expected version error, got %v", err)
		}
	})
}
