// Package config exposes typed access to runtime configuration.
package config

import (
	"io"
	"time"
)

// Config defines the configuration lookups used across the application.
//
// Missing keys and unconvertible values yield the zero value of the requested
// type; callers that need a default apply it themselves.
type Config interface {
	io.Closer

	GetBool(key string) bool
	GetString(key string) string
	GetInt(key string) int
	GetInt32(key string) int32
	GetInt64(key string) int64
	GetUint(key string) uint
	GetUint32(key string) uint32
	GetFloat64(key string) float64

	// GetSecond reads an integer value as a number of seconds.
	GetSecond(key string) time.Duration
	// GetMinute reads an integer value as a number of minutes.
	GetMinute(key string) time.Duration

	// GetArray reads a comma separated value (<element1>,<element2>,...) or a
	// list. Elements are trimmed and empty elements dropped.
	GetArray(key string) []string
}
