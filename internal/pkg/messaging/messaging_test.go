package messaging

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewFromDriver_Unknown(t *testing.T) {
	if _, err := NewFromDriver("nsq", FactoryOptions{}); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("err = %v", err)
	}
}

func TestNewFromDriver_MissingConfig(t *testing.T) {
	if _, err := NewFromDriver(DriverKafka, FactoryOptions{}); !errors.Is(err, ErrKafkaBrokersRequired) {
		t.Fatalf("kafka err = %v", err)
	}
	if _, err := NewFromDriver(DriverNATS, FactoryOptions{}); !errors.Is(err, ErrNATSURLRequired) {
		t.Fatalf("nats err = %v", err)
	}
}

func TestNewKafkaMsg_SkipsEmptyHeaderKeys(t *testing.T) {
	now := time.Now()
	msg := newKafkaMsg("identity.user_registered", OutgoingMessage{
		Key:  []byte("alice"),
		Body: []byte(`{}`),
		Headers: []Header{
			{Key: "cID", Value: []byte("abc")},
			{Key: "", Value: []byte("dropped")},
		},
	}, now)

	if msg.Topic != "identity.user_registered" || string(msg.Key) != "alice" || !msg.Time.Equal(now) {
		t.Fatalf("msg = %+v", msg)
	}
	if len(msg.Headers) != 1 || msg.Headers[0].Key != "cID" {
		t.Fatalf("headers = %+v", msg.Headers)
	}
}

func TestNewNATSMsg_CopiesHeaders(t *testing.T) {
	msg := newNATSMsg("identity.password_reset_completed", OutgoingMessage{
		Body:    []byte(`{"username":"alice"}`),
		Headers: []Header{{Key: "cID", Value: []byte("abc")}, {Key: ""}},
	})

	if msg.Subject != "identity.password_reset_completed" {
		t.Fatalf("subject = %s", msg.Subject)
	}
	if msg.Header.Get("cID") != "abc" || len(msg.Header) != 1 {
		t.Fatalf("header = %v", msg.Header)
	}
}

func TestKafka_PublishValidation(t *testing.T) {
	k, err := NewKafka(KafkaConfig{Brokers: []string{"localhost:9092"}})
	if err != nil {
		t.Fatalf("new kafka: %v", err)
	}

	if _, err := k.Publish(context.Background(), "", OutgoingMessage{}); !errors.Is(err, ErrDestinationRequired) {
		t.Fatalf("err = %v", err)
	}

	if err := k.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := k.Publish(context.Background(), "topic", OutgoingMessage{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("closed err = %v", err)
	}
}

func TestNoop(t *testing.T) {
	for _, driver := range []string{"", "NOOP", " noop "} {
		m, err := NewFromDriver(driver, FactoryOptions{})
		if err != nil {
			t.Fatalf("driver %q: %v", driver, err)
		}
		if _, ok := m.(*Noop); !ok {
			t.Fatalf("driver %q: got %T", driver, m)
		}
	}

	n := NewNoop()
	res, err := n.Publish(context.Background(), "identity.user_registered", OutgoingMessage{Body: []byte("{}")})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if res.Topic != "identity.user_registered" || res.Timestamp.IsZero() {
		t.Fatalf("result = %+v", res)
	}

	if _, err := n.Publish(context.Background(), " ", OutgoingMessage{}); !errors.Is(err, ErrDestinationRequired) {
		t.Fatalf("empty destination err = %v", err)
	}

	if err := n.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := n.Publish(context.Background(), "x", OutgoingMessage{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("closed err = %v", err)
	}
}
