// Package validator provides a small validation abstraction for request and
// domain structs. Business code depends on Validator; the go-playground v10
// implementation lives in this package.
package validator

// Validator validates a struct and returns a field-to-message error on failure.
type Validator interface {
	Validate(data any) error
}
