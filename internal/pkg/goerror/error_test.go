package goerror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestNewRejection_KindAndStatus(t *testing.T) {
	tests := []struct {
		kind   Kind
		status int
	}{
		{KindValidation, http.StatusUnprocessableEntity},
		{KindConflict, http.StatusConflict},
		{KindNotFound, http.StatusNotFound},
		{KindMismatch, http.StatusUnauthorized},
		{KindRateLimited, http.StatusTooManyRequests},
		{KindLocked, http.StatusLocked},
		{KindExpired, http.StatusGone},
		{KindInvalidCode, http.StatusUnauthorized},
		{KindDelivery, http.StatusServiceUnavailable},
		{KindForbidden, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := NewRejection(tt.kind, "nope")

			var gerr *Error
			if !errors.As(err, &gerr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if gerr.Kind() != tt.kind {
				t.Fatalf("kind = %s, want %s", gerr.Kind(), tt.kind)
			}
			if gerr.StatusCode() != tt.status {
				t.Fatalf("status = %d, want %d", gerr.StatusCode(), tt.status)
			}
			if gerr.Type() != TypeBusiness {
				t.Fatalf("type = %s, want business", gerr.Type())
			}
			if err.Error() != "nope" {
				t.Fatalf("message = %q", err.Error())
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != KindNone {
		t.Fatalf("plain error kind = %s", got)
	}
	if got := KindOf(NewServer(errors.New("db down"))); got != KindNone {
		t.Fatalf("server error kind = %s", got)
	}

	wrapped := fmt.Errorf("wrap: %w", NewRejection(KindLocked, "locked"))
	if got := KindOf(wrapped); got != KindLocked {
		t.Fatalf("wrapped kind = %s", got)
	}

	if got := KindOf(NewInvalidInput(errors.New("bad"))); got != KindValidation {
		t.Fatalf("invalid input kind = %s", got)
	}
	if got := KindOf(NewBusiness("no", CodeNotFound)); got != KindNotFound {
		t.Fatalf("business not found kind = %s", got)
	}
}

func TestNewRateLimited_RetryAfter(t *testing.T) {
	err := NewRateLimited("wait", 42*time.Second)

	var gerr *Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *Error")
	}
	if gerr.Kind() != KindRateLimited {
		t.Fatalf("kind = %s", gerr.Kind())
	}
	if gerr.RetryAfter() != 42*time.Second {
		t.Fatalf("retry after = %s", gerr.RetryAfter())
	}
}

func TestNewDelivery_Unwraps(t *testing.T) {
	cause := errors.New("smtp: connection refused")
	err := NewDelivery(cause, "failed to send code")

	if !errors.Is(err, cause) {
		t.Fatalf("delivery error should wrap the cause")
	}
	if KindOf(err) != KindDelivery {
		t.Fatalf("kind = %s", KindOf(err))
	}
}

func TestNewInvalidInput_Fields(t *testing.T) {
	err := NewInvalidInput(nil, "email", "is required", "code")

	var gerr *Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *Error")
	}
	if gerr.Code() != CodeInvalidFormat {
		t.Fatalf("odd kv should be invalid format, got %s", gerr.Code())
	}

	err = NewInvalidInput(nil, "email", "is required")
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *Error")
	}
	if gerr.Fields()["email"] != "is required" {
		t.Fatalf("fields = %v", gerr.Fields())
	}
}
