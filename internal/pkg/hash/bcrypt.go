package hash

import (
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt only looks at the first 72 bytes of its input.
const bcryptMaxInput = 72

// Bcrypt implements Hash using bcrypt. It is used for account passwords.
//
// Pepper is appended to the plaintext before hashing/verifying. Keep the pepper
// secret and store it in configuration (not in the database).
type Bcrypt struct {
	cost   int
	pepper string
}

// NewBcrypt returns a bcrypt-based hasher.
//
// cost outside bcrypt's accepted range falls back to bcrypt.DefaultCost.
func NewBcrypt(cost int, pepper string) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost, pepper: pepper}
}

// Hash hashes plaintext using bcrypt.
func (h *Bcrypt) Hash(plaintext string) ([]byte, error) {
	return bcrypt.GenerateFromPassword(h.input(plaintext), h.cost)
}

// Verify returns true when plaintext matches the hashed value.
func (h *Bcrypt) Verify(hashed, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), h.input(plaintext)) == nil
}

// input peppers plaintext and pre-hashes it when the result would not fit in
// bcrypt's 72 byte window, so long passwords keep every byte significant.
func (h *Bcrypt) input(plaintext string) []byte {
	in := []byte(plaintext + h.pepper)
	if len(in) <= bcryptMaxInput {
		return in
	}

	sum := sha256.Sum256(in)
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
