package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Supported drivers for NewFromDriver.
const (
	DriverNATS  = "nats"
	DriverKafka = "kafka"
	DriverNoop  = "noop"
)

// ErrUnknownDriver indicates an unsupported messaging driver.
var ErrUnknownDriver = errors.New("messaging: unknown driver")

// FactoryOptions groups config for supported messaging backends.
type FactoryOptions struct {
	Kafka KafkaConfig
	NATS  NATSConfig
}

// NewFromDriver constructs a Messaging implementation by driver name. The
// match is case-insensitive; an empty driver selects noop.
func NewFromDriver(driver string, opts FactoryOptions) (Messaging, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverKafka:
		return NewKafka(opts.Kafka)
	case DriverNATS:
		return NewNATS(opts.NATS)
	case DriverNoop, "":
		return NewNoop(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}

// Noop drops every message after a debug log line. It is used for local runs
// where no broker is available.
type Noop struct {
	closed atomic.Bool
}

// NewNoop returns a Messaging that discards messages.
func NewNoop() *Noop {
	return &Noop{}
}

// Publish validates the destination and discards msg.
func (n *Noop) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if n.closed.Load() {
		return PublishResult{}, ErrClosed
	}
	if strings.TrimSpace(destination) == "" {
		return PublishResult{}, ErrDestinationRequired
	}

	slog.DebugContext(ctx, "message discarded", "destination", destination, "size", len(msg.Body))

	return PublishResult{Topic: destination, Timestamp: time.Now()}, nil
}

// Close marks the publisher closed.
func (n *Noop) Close() error {
	n.closed.Store(true)
	return nil
}
