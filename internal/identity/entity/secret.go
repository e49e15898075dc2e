// Package entity holds the identity domain records.
package entity

import (
	"time"

	"github.com/shandysiswandi/minibank/internal/pkg/otp"
)

// Mutation tells a secret store what to do with a record after an update callback.
type Mutation int

const (
	// MutationNone leaves the stored record untouched.
	MutationNone Mutation = iota
	// MutationSave inserts or overwrites the record.
	MutationSave
	// MutationDelete removes the record.
	MutationDelete
)

// Purpose labels the notification a code is sent with.
type Purpose string

const (
	PurposeRegistration  Purpose = "registration"
	PurposePasswordReset Purpose = "password reset"
)

func (p Purpose) String() string {
	return string(p)
}

// PendingRegistration is a sign-up waiting for its code, keyed by username.
type PendingRegistration struct {
	Username      string
	FullName      string
	Email         string
	PasswordHash  string
	OTPHash       string
	ExpiresAt     time.Time
	Attempts      int
	ResendCount   int
	WindowStartAt time.Time
	LockedUntil   time.Time
}

// OTPState adapts the record to the policy shape.
func (p *PendingRegistration) OTPState() otp.State {
	return otp.State{
		CodeHash:      p.OTPHash,
		ExpiresAt:     p.ExpiresAt,
		Attempts:      p.Attempts,
		ResendCount:   p.ResendCount,
		WindowStartAt: p.WindowStartAt,
		Lock:          otp.LockedUntil(p.LockedUntil),
	}
}

// SetOTPState copies the policy decision back into the record.
func (p *PendingRegistration) SetOTPState(st otp.State) {
	p.OTPHash = st.CodeHash
	p.ExpiresAt = st.ExpiresAt
	p.Attempts = st.Attempts
	p.ResendCount = st.ResendCount
	p.WindowStartAt = st.WindowStartAt
	p.LockedUntil, _ = st.Lock.Until()
}

// PasswordReset is an in-flight reset keyed by an opaque request id, one per email.
type PasswordReset struct {
	ID              string
	Email           string
	Username        string
	NewPasswordHash string
	OTPHash         string
	ExpiresAt       time.Time
	Attempts        int
	ResendCount     int
	WindowStartAt   time.Time
	LockedUntil     time.Time
	LastSentAt      time.Time
}

// OTPState adapts the record to the policy shape.
func (r *PasswordReset) OTPState() otp.State {
	return otp.State{
		CodeHash:      r.OTPHash,
		ExpiresAt:     r.ExpiresAt,
		Attempts:      r.Attempts,
		ResendCount:   r.ResendCount,
		WindowStartAt: r.WindowStartAt,
		Lock:          otp.LockedUntil(r.LockedUntil),
		LastSentAt:    r.LastSentAt,
	}
}

// SetOTPState copies the policy decision back into the record.
func (r *PasswordReset) SetOTPState(st otp.State) {
	r.OTPHash = st.CodeHash
	r.ExpiresAt = st.ExpiresAt
	r.Attempts = st.Attempts
	r.ResendCount = st.ResendCount
	r.WindowStartAt = st.WindowStartAt
	r.LockedUntil, _ = st.Lock.Until()
	r.LastSentAt = st.LastSentAt
}
