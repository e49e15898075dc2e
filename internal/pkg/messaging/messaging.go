// Package messaging publishes domain events to a broker.
//
// The application only emits events; consumers live in other services, so
// this package exposes a broker-agnostic Publisher with NATS and Kafka
// drivers selected by configuration.
package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrDestinationRequired is returned when the topic or subject is empty.
	ErrDestinationRequired = errors.New("messaging: destination is required")
	// ErrClosed is returned when publishing on a closed client.
	ErrClosed = errors.New("messaging: client is closed")
)

// Messaging is a broker client that can publish messages.
type Messaging interface {
	io.Closer
	Publisher
}

// Publisher publishes messages to a destination (topic or subject).
type Publisher interface {
	// Publish sends a message to the destination.
	Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error)
}

// OutgoingMessage represents a broker-agnostic message to be published.
type OutgoingMessage struct {
	// Body is the message payload.
	Body []byte
	// Key is used by Kafka for partitioning; ignored by NATS.
	Key []byte
	// Headers support arbitrary binary values and duplicate keys.
	Headers []Header
}

// Header is a key/value pair used for message headers.
type Header struct {
	Key   string
	Value []byte
}

// PublishResult carries broker publish metadata.
type PublishResult struct {
	// Topic is the destination used for publishing.
	Topic string
	// Timestamp is when the message was handed to the broker.
	Timestamp time.Time
}
