// Package mail sends transactional email. SMTP is the only provider.
package mail

import (
	"context"
	"io"
)

// Message is one email. TextBody is always sent; HTMLBody is attached as an
// alternative part when set.
type Message struct {
	From     string // defaults to the provider's configured sender
	To       []string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mail sends messages through a provider.
type Mail interface {
	io.Closer
	Send(ctx context.Context, msg Message) error
}
