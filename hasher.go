package accounts

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher derives and verifies one-way salted credential hashes
// using bcrypt. The zero value uses bcrypt's default cost (10).
type PasswordHasher struct {
	// Cost is the bcrypt cost factor. Values below the default are ignored
	// so a misconfigured hasher can never weaken stored credentials.
	Cost int
}

func (h *PasswordHasher) cost() int {
	if h.Cost < bcrypt.DefaultCost {
		return bcrypt.DefaultCost
	}
	return h.Cost
}

// Hash derives a salted one-way hash of the secret. The original secret is
// not recoverable from the result.
func (h *PasswordHasher) Hash(secret string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost())
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(out), nil
}

// Verify reports whether secret matches the stored hash. bcrypt's
// comparison is constant-time over the derived digest.
func (h *PasswordHasher) Verify(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
