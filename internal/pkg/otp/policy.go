package otp

import (
	"fmt"
	"math"
	"time"

	"github.com/shandysiswandi/minibank/internal/pkg/goerror"
)

// Hasher is the subset of hash.Hash the policy needs.
type Hasher interface {
	Hash(plaintext string) ([]byte, error)
	Verify(hashed, plaintext string) bool
}

// Policy decides issuance and verification for one flow.
type Policy struct {
	cfg    Config
	gen    Generator
	hasher Hasher
}

// NewPolicy builds a Policy. Zero config fields take their defaults, except
// Cooldown where zero means no cooldown.
func NewPolicy(cfg Config, gen Generator, hasher Hasher) *Policy {
	return &Policy{cfg: cfg.withDefaults(), gen: gen, hasher: hasher}
}

// Config returns the effective parameters.
func (p *Policy) Config() Config {
	return p.cfg
}

// Issue decides whether a new code may be sent for st at now.
//
// On success it returns the next state and the plaintext code, which must only
// be handed to the notifier. On refusal st is returned unchanged and nothing
// should be persisted. A non-rejection error means code generation or hashing
// failed.
func (p *Policy) Issue(st State, now time.Time) (State, string, error) {
	if st.Lock.Active(now) {
		return st, "", goerror.NewRejection(goerror.KindLocked, "Verification is locked, try again later")
	}

	next := st
	if next.WindowStartAt.IsZero() || next.WindowStartAt.Add(p.cfg.ResendWindow).Before(now) {
		next.WindowStartAt = now
		next.ResendCount = 0
	}

	if next.ResendCount >= p.cfg.MaxResends {
		wait := next.WindowStartAt.Add(p.cfg.ResendWindow).Sub(now)
		return st, "", goerror.NewRateLimited("Too many code requests, try again later", ceilSecond(wait))
	}

	if p.cfg.Cooldown > 0 && !next.LastSentAt.IsZero() {
		if readyAt := next.LastSentAt.Add(p.cfg.Cooldown); readyAt.After(now) {
			wait := ceilSecond(readyAt.Sub(now))
			return st, "", goerror.NewRateLimited(
				fmt.Sprintf("Please wait %d seconds before requesting a new code", int(wait.Seconds())),
				wait,
			)
		}
	}

	code, err := p.gen.Generate()
	if err != nil {
		return st, "", err
	}

	hashed, err := p.hasher.Hash(code)
	if err != nil {
		return st, "", fmt.Errorf("otp: hash code: %w", err)
	}

	next.CodeHash = string(hashed)
	next.ExpiresAt = now.Add(p.cfg.TTL)
	next.Attempts = 0
	next.Lock = Unlocked()
	next.ResendCount++
	next.LastSentAt = now

	return next, code, nil
}

// Verify checks code against st at now.
//
// It returns the next state and whether that state differs from st and must be
// persisted, even when err is a rejection. A nil error means the code matched;
// the caller then runs its terminal action and discards the record.
func (p *Policy) Verify(st State, code string, now time.Time) (State, bool, error) {
	if st.Lock.Active(now) {
		return st, false, goerror.NewRejection(goerror.KindLocked, "Verification is locked until the code expires")
	}

	if st.ExpiresAt.IsZero() || now.After(st.ExpiresAt) {
		return st, false, goerror.NewRejection(goerror.KindExpired, "Code has expired, request a new one")
	}

	if st.Attempts >= p.cfg.MaxAttempts {
		next := st
		next.Lock = LockedUntil(st.ExpiresAt)
		return next, true, goerror.NewRejection(goerror.KindLocked, "Too many wrong codes, verification is locked")
	}

	if p.hasher.Verify(st.CodeHash, code) {
		return st, false, nil
	}

	next := st
	next.Attempts++
	if next.Attempts >= p.cfg.MaxAttempts {
		next.Lock = LockedUntil(st.ExpiresAt)
		return next, true, goerror.NewRejection(goerror.KindLocked, "Too many wrong codes, verification is locked")
	}

	return next, true, goerror.NewRejection(goerror.KindInvalidCode, "Invalid code")
}

func ceilSecond(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(math.Ceil(d.Seconds())) * time.Second
}
