package credential

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndVerify(t *testing.T) {
	hasher := NewHasherWithCost(bcrypt.MinCost)

	tests := []struct {
		name   string
		secret string
	}{
		{name: "simple secret", secret: "admin123"},
		{name: "complex secret", secret: "P@ssw0rd!#$%^&*()"},
		{name: "unicode secret", secret: "密码123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := hasher.Hash(tt.secret)
			if err != nil {
				t.Fatalf("Hash() error = %v", err)
			}
			if hash == tt.secret {
				t.Error("Hash() returned the original secret")
			}
			if !hasher.Verify(tt.secret, hash) {
				t.Error("Verify() returned false for correct secret")
			}
			if hasher.Verify(tt.secret+"x", hash) {
				t.Error("Verify() returned true for wrong secret")
			}
		})
	}
}

func TestHasher_VerifyGarbageHash(t *testing.T) {
	hasher := NewHasherWithCost(bcrypt.MinCost)
	if hasher.Verify("admin", "not-a-bcrypt-hash") {
		t.Error("Verify() accepted a malformed hash")
	}
}

func TestNewHasherWithCost_OutOfRange(t *testing.T) {
	if got := NewHasherWithCost(99).cost; got != DefaultBcryptCost {
		t.Errorf("cost = %d, want %d", got, DefaultBcryptCost)
	}
}
