package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// ErrKafkaBrokersRequired is returned when no Kafka brokers are configured.
var ErrKafkaBrokersRequired = errors.New("messaging: kafka brokers are required")

// KafkaConfig configures the Kafka implementation.
type KafkaConfig struct {
	// Brokers lists Kafka broker addresses.
	Brokers []string
	// Transport overrides the default kafka-go transport.
	Transport kafka.RoundTripper
}

// Kafka is a publisher backed by a single kafka-go writer shared across topics.
type Kafka struct {
	writer *kafka.Writer

	mu     sync.RWMutex
	closed bool
}

// NewKafka constructs a Kafka publisher.
func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrKafkaBrokersRequired
	}

	return &Kafka{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			Transport:              cfg.Transport,
		},
	}, nil
}

// Close flushes pending writes and closes the writer.
func (k *Kafka) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil
	}
	k.closed = true
	return k.writer.Close()
}

// Publish writes a message to a Kafka topic. Messages with the same key land
// on the same partition.
func (k *Kafka) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if destination == "" {
		return PublishResult{}, ErrDestinationRequired
	}

	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.closed {
		return PublishResult{}, ErrClosed
	}

	kmsg := newKafkaMsg(destination, msg, time.Now())
	if err := k.writer.WriteMessages(ctx, kmsg); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: kafka publish: %w", err)
	}

	return PublishResult{Topic: destination, Timestamp: kmsg.Time}, nil
}

func newKafkaMsg(topic string, msg OutgoingMessage, now time.Time) kafka.Message {
	kmsg := kafka.Message{
		Topic: topic,
		Key:   msg.Key,
		Value: msg.Body,
		Time:  now,
	}
	for _, h := range msg.Headers {
		if h.Key == "" {
			continue
		}
		kmsg.Headers = append(kmsg.Headers, kafka.Header{Key: h.Key, Value: h.Value})
	}
	return kmsg
}
