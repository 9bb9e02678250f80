package accounts_test

import (
	"strings"
	"testing"

	"github.com/panyam/accounts"
)

func TestHashAndVerify(t *testing.T) {
	hasher := &accounts.PasswordHasher{}

	hash, err := hasher.Hash("password123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if hash == "password123" || hash == "" {
		t.Fatalf("hash should not be empty or the plaintext, got %q", hash)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("expected a bcrypt hash, got %q", hash)
	}

	if !hasher.Verify("password123", hash) {
		t.Error("correct secret should verify")
	}
	if hasher.Verify("password124", hash) {
		t.Error("wrong secret should not verify")
	}
	if hasher.Verify("password123", "") {
		t.Error("empty hash should never verify")
	}
}

func TestHashIsSalted(t *testing.T) {
	hasher := &accounts.PasswordHasher{}

	h1, err := hasher.Hash("password123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	h2, err := hasher.Hash("password123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same secret should differ")
	}
}

func TestCostFloor(t *testing.T) {
	// A cost below bcrypt's default must not weaken stored hashes.
	weak := &accounts.PasswordHasher{Cost: 1}
	hash, err := weak.Hash("password123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$10$") && !strings.HasPrefix(hash, "$2b$10$") {
		t.Errorf("expected cost 10 in hash prefix, got %q", hash[:7])
	}
}
