package validator

import (
	"errors"
	"strings"
	"testing"
)

type sample struct {
	FullName    string `validate:"required,notblank"`
	Email       string `validate:"required,email"`
	NewPassword string `validate:"required,password"`
}

func newTestValidator(t *testing.T) *V10Validator {
	t.Helper()
	v, err := NewV10Validator()
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}
	return v
}

func TestV10Validator_Valid(t *testing.T) {
	v := newTestValidator(t)
	if err := v.Validate(sample{FullName: "Alice", Email: "alice@x.com", NewPassword: "secret1"}); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestV10Validator_Rules(t *testing.T) {
	v := newTestValidator(t)

	tests := []struct {
		name  string
		in    sample
		field string
	}{
		{"blank name", sample{FullName: "   ", Email: "a@x.com", NewPassword: "secret1"}, "full_name"},
		{"bad email", sample{FullName: "A", Email: "not-an-email", NewPassword: "secret1"}, "email"},
		{"short password", sample{FullName: "A", Email: "a@x.com", NewPassword: "abc"}, "new_password"},
		{"padded short password", sample{FullName: "A", Email: "a@x.com", NewPassword: "  abc   "}, "new_password"},
		{"long password", sample{FullName: "A", Email: "a@x.com", NewPassword: strings.Repeat("a", 73)}, "new_password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.in)

			var verr V10ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected V10ValidationError, got %v", err)
			}
			if _, ok := verr.Values()[tt.field]; !ok {
				t.Fatalf("expected error on %s, got %v", tt.field, verr.Values())
			}
			if len(verr.Values()) != 1 {
				t.Fatalf("expected a single field error, got %v", verr.Values())
			}
		})
	}
}

func TestV10Validator_TranslatedMessages(t *testing.T) {
	v := newTestValidator(t)

	err := v.Validate(sample{FullName: " ", Email: "a@x.com", NewPassword: "abc"})
	var verr V10ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected V10ValidationError")
	}
	if got := verr["full_name"]; got != "FullName must not be blank" {
		t.Fatalf("notblank message = %q", got)
	}
	if got := verr["new_password"]; got != "NewPassword must be 6-72 characters" {
		t.Fatalf("password message = %q", got)
	}
}
