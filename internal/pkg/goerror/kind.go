package goerror

import "errors"

// Kind is the rejection taxonomy surfaced to callers so they can decide
// whether to retry, wait, or correct their input.
type Kind int

const (
	// KindNone marks errors outside the taxonomy, such as internal failures.
	KindNone Kind = iota
	// KindValidation is a missing, blank, or malformed input.
	KindValidation
	// KindConflict is a uniqueness clash or a no-op change.
	KindConflict
	// KindNotFound is a missing record, user, or account.
	KindNotFound
	// KindMismatch is a binding or credential that does not match.
	KindMismatch
	// KindRateLimited is a resend cap or cooldown refusal.
	KindRateLimited
	// KindLocked is a verification lock that holds until the code expires.
	KindLocked
	// KindExpired is a code past its deadline.
	KindExpired
	// KindInvalidCode is a submitted code that failed comparison.
	KindInvalidCode
	// KindDelivery is a failed notification send.
	KindDelivery
	// KindUnauthorized is a missing or invalid authentication.
	KindUnauthorized
	// KindForbidden is an authenticated caller without permission.
	KindForbidden
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindConflict:
		return "CONFLICT"
	case KindNotFound:
		return "NOT_FOUND"
	case KindMismatch:
		return "MISMATCH"
	case KindRateLimited:
		return "RATE_LIMITED"
	case KindLocked:
		return "LOCKED"
	case KindExpired:
		return "EXPIRED"
	case KindInvalidCode:
		return "INVALID_CODE"
	case KindDelivery:
		return "DELIVERY"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindForbidden:
		return "FORBIDDEN"
	default:
		return "INTERNAL"
	}
}

func (k Kind) code() Code {
	switch k {
	case KindValidation:
		return CodeInvalidInput
	case KindConflict:
		return CodeConflict
	case KindNotFound:
		return CodeNotFound
	case KindMismatch, KindInvalidCode, KindUnauthorized:
		return CodeUnauthorized
	case KindRateLimited:
		return CodeTooManyRequest
	case KindLocked:
		return CodeLocked
	case KindExpired:
		return CodeExpired
	case KindDelivery:
		return CodeUnavailable
	case KindForbidden:
		return CodeForbidden
	default:
		return CodeInternal
	}
}

// kindFromCode picks the default kind for errors built from a code alone.
// CodeUnauthorized is ambiguous, so it maps to KindUnauthorized and callers
// that mean Mismatch or InvalidCode use NewRejection.
func kindFromCode(c Code) Kind {
	switch c {
	case CodeInvalidFormat, CodeInvalidInput:
		return KindValidation
	case CodeConflict:
		return KindConflict
	case CodeNotFound:
		return KindNotFound
	case CodeTooManyRequest:
		return KindRateLimited
	case CodeUnauthorized:
		return KindUnauthorized
	case CodeForbidden:
		return KindForbidden
	case CodeLocked:
		return KindLocked
	case CodeExpired:
		return KindExpired
	case CodeUnavailable:
		return KindDelivery
	default:
		return KindNone
	}
}

// KindOf returns the kind carried by err, or KindNone when err is not an *Error.
func KindOf(err error) Kind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.kind
	}
	return KindNone
}
