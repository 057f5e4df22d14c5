// Package credential holds the one-way hash for the admin secret and the
// symmetric cipher used to keep room passwords encrypted at rest.
package credential

import (
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the cost used when hashing the admin secret at startup.
const DefaultBcryptCost = 12

// Hasher hashes and verifies the administrator secret.
type Hasher struct {
	cost int
}

// NewHasher creates a Hasher with DefaultBcryptCost.
func NewHasher() *Hasher {
	return &Hasher{cost: DefaultBcryptCost}
}

// NewHasherWithCost creates a Hasher with an explicit bcrypt cost.
// Values outside bcrypt's accepted range fall back to DefaultBcryptCost.
func NewHasherWithCost(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &Hasher{cost: cost}
}

// Hash generates a bcrypt hash of secret.
func (h *Hasher) Hash(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify reports whether secret matches hash.
func (h *Hasher) Verify(secret, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	return err == nil
}
