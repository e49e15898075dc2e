// Package otp holds the one-time passcode lifecycle shared by every flow that
// gates an account change behind a code sent to the user: generation, expiry,
// attempt limiting, resend windows, cooldown and lockout.
//
// The package is pure decision logic. Callers load their record, adapt it to
// State, ask the Policy what happens next, and persist the returned State in
// the same atomic scope they loaded it from.
package otp

import (
	"time"
)

// Config holds the policy parameters.
type Config struct {
	// TTL is how long an issued code stays valid.
	TTL time.Duration
	// MaxAttempts is the number of wrong codes tolerated before the code locks.
	MaxAttempts int
	// ResendWindow is the period over which issuance is counted.
	ResendWindow time.Duration
	// MaxResends is the number of issuances allowed per window.
	MaxResends int
	// Cooldown is the minimum spacing between two issuances. Zero disables it.
	Cooldown time.Duration
}

// DefaultConfig returns the standard parameters with the cooldown enabled.
func DefaultConfig() Config {
	return Config{
		TTL:          5 * time.Minute,
		MaxAttempts:  5,
		ResendWindow: 15 * time.Minute,
		MaxResends:   5,
		Cooldown:     60 * time.Second,
	}
}

// WithoutCooldown returns a copy of c with the cooldown disabled.
func (c Config) WithoutCooldown() Config {
	c.Cooldown = 0
	return c
}

// withDefaults fills non-positive fields from DefaultConfig. Cooldown is left
// alone because zero is meaningful.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.TTL <= 0 {
		c.TTL = def.TTL
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.ResendWindow <= 0 {
		c.ResendWindow = def.ResendWindow
	}
	if c.MaxResends <= 0 {
		c.MaxResends = def.MaxResends
	}
	if c.Cooldown < 0 {
		c.Cooldown = 0
	}
	return c
}

// Lock is either unlocked or locked until an instant.
type Lock struct {
	until time.Time
}

// Unlocked returns the unlocked state.
func Unlocked() Lock {
	return Lock{}
}

// LockedUntil returns a lock that holds until t. A zero t is unlocked.
func LockedUntil(t time.Time) Lock {
	return Lock{until: t}
}

// Active reports whether the lock still holds at now.
func (l Lock) Active(now time.Time) bool {
	return !l.until.IsZero() && l.until.After(now)
}

// Until returns the lock instant and whether the lock is set at all.
func (l Lock) Until() (time.Time, bool) {
	return l.until, !l.until.IsZero()
}

// State is the code lifecycle shape every flow adapts its record to.
type State struct {
	CodeHash      string
	ExpiresAt     time.Time
	Attempts      int
	ResendCount   int
	WindowStartAt time.Time
	Lock          Lock
	// LastSentAt is only consulted when the policy has a cooldown.
	LastSentAt time.Time
}
