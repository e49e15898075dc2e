// Package hash provides one-way, salted hashing of secrets such as passwords
// and one-time codes. Only the hash is ever stored; verification recomputes
// the hash from the submitted plaintext with a constant-effort comparison.
package hash

// Hash hashes and verifies secrets.
type Hash interface {
	// Hash returns the encoded, salted hash of plaintext.
	Hash(plaintext string) ([]byte, error)
	// Verify reports whether plaintext matches hashed.
	Verify(hashed, plaintext string) bool
}
