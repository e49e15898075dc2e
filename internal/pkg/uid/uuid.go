package uid

import (
	"strings"

	"github.com/google/uuid"
)

// UUID generates time-ordered UUID strings (v7, falling back to v4).
type UUID struct{}

// NewUUID returns a UUID generator.
func NewUUID() *UUID {
	return &UUID{}
}

// Generate returns a new UUID string.
func (u *UUID) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Opaque generates unguessable tokens: 122 random bits from a v4 UUID,
// rendered as 32 lowercase hex characters.
type Opaque struct{}

// NewOpaque returns an Opaque generator.
func NewOpaque() *Opaque {
	return &Opaque{}
}

// Generate returns a new opaque token.
func (o *Opaque) Generate() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
