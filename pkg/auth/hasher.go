package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher abstracts the slow-hash primitive so the engine never
// depends on a concrete algorithm. Compare must be constant-time with
// respect to the plaintext.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Compare returns a non-nil error when the plaintext does not match
	// the stored hash.
	Compare(hash, plaintext string) error
}

type bcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a PasswordHasher backed by bcrypt. A cost of 0
// selects bcrypt.DefaultCost; tests pass bcrypt.MinCost to stay fast.
func NewBcryptHasher(cost int) PasswordHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &bcryptHasher{cost: cost}
}

func (h *bcryptHasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (h *bcryptHasher) Compare(hash, plaintext string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
}

var _ PasswordHasher = (*bcryptHasher)(nil)
