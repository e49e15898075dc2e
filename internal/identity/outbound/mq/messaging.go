package mq

import (
	"context"
	"encoding/json"

	"github.com/shandysiswandi/minibank/internal/identity/usecase"
	"github.com/shandysiswandi/minibank/internal/pkg/clock"
	"github.com/shandysiswandi/minibank/internal/pkg/instrument"
	"github.com/shandysiswandi/minibank/internal/pkg/messaging"
	"github.com/shandysiswandi/minibank/internal/pkg/uid"
	"github.com/shandysiswandi/minibank/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client messaging.Publisher
	ins    instrument.Instrumentation
	uuid   uid.StringID
	clock  clock.Clocker
}

func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation, uuid uid.StringID, clk clock.Clocker) *Messaging {
	return &Messaging{client: client, ins: ins, uuid: uuid, clock: clk}
}

func (m *Messaging) PublishUserRegistered(ctx context.Context, msg usecase.UserRegisteredEvent) error {
	return m.publish(ctx, "PublishUserRegistered", event.UserRegisteredDestination, msg.Username, event.UserRegisteredMessage{
		EventID:    m.uuid.Generate(),
		UserID:     msg.UserID,
		Username:   msg.Username,
		Email:      msg.Email,
		FullName:   msg.FullName,
		OccurredAt: m.clock.Now(),
	})
}

func (m *Messaging) PublishPasswordResetCompleted(ctx context.Context, msg usecase.PasswordResetCompletedEvent) error {
	return m.publish(ctx, "PublishPasswordResetCompleted", event.PasswordResetCompletedDestination, msg.Username, event.PasswordResetCompletedMessage{
		EventID:    m.uuid.Generate(),
		Username:   msg.Username,
		Email:      msg.Email,
		OccurredAt: m.clock.Now(),
	})
}

// publish keys messages by username so one account's events stay ordered on
// a Kafka partition.
func (m *Messaging) publish(ctx context.Context, name, destination, key string, payload any) error {
	ctx, span := m.ins.Tracer("identity.outbound.mq").Start(ctx, name)
	defer span.End()

	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	cID := instrument.GetCorrelationID(ctx)
	if _, err := m.client.Publish(ctx, destination, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(key),
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(cID)}},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
