package otp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
)

const (
	codeMin = 100000
	codeMax = 999999
)

// ErrNilRandom is returned when a generator has no random source.
var ErrNilRandom = errors.New("otp: random source is required")

// Generator produces plaintext codes.
type Generator interface {
	Generate() (string, error)
}

// NumericGenerator draws 6-digit codes uniformly from [100000, 999999].
//
// The random source is injected; production code passes crypto/rand.Reader,
// which is safe for concurrent use.
type NumericGenerator struct {
	src io.Reader
}

// NewNumericGenerator returns a generator reading from src.
func NewNumericGenerator(src io.Reader) *NumericGenerator {
	return &NumericGenerator{src: src}
}

// Generate returns a new code.
func (g *NumericGenerator) Generate() (string, error) {
	if g.src == nil {
		return "", ErrNilRandom
	}

	n, err := rand.Int(g.src, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", fmt.Errorf("otp: generate code: %w", err)
	}

	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}
