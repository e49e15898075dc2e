// Package uid generates identifiers: snowflake numbers for rows, UUIDs for
// correlation and token ids, and random opaque tokens for bearer capabilities.
package uid

// NumberID generates numeric identifiers.
type NumberID interface {
	Generate() int64
}

// StringID generates string identifiers.
type StringID interface {
	Generate() string
}
