package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
)

// ErrNotConfirmed is returned when the broker rejects a published click.
var ErrNotConfirmed = errors.New("click message not confirmed by broker")

type publishChannel interface {
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error)
}

// ClickPublisher records clicks by publishing them to the clicks queue.
type ClickPublisher struct {
	ch    publishChannel
	queue string
}

func NewClickPublisher(ch publishChannel, queue string) *ClickPublisher {
	return &ClickPublisher{
		ch:    ch,
		queue: queue,
	}
}

// RecordClick publishes a persistent click message and waits for the broker
// to confirm it when the channel is in confirm mode. The key is the message id,
// so a click published twice is stored once.
func (p *ClickPublisher) RecordClick(ctx context.Context, key string, mappingID int64, at time.Time) error {
	const op = "adapter.queue.ClickPublisher.RecordClick"

	body, err := json.Marshal(clickMessage{
		Key:       key,
		MappingID: mappingID,
		ClickedAt: at.UTC(),
	})
	if err != nil {
		return fmt.Errorf("%s: failed to encode message: %w", op, err)
	}

	headers := amqp.Table{}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier(headers))

	confirmation, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		Headers:      headers,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    key,
		Timestamp:    at.UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("%s: failed to publish message: %w", op, err)
	}

	if confirmation == nil {
		return nil
	}

	acked, err := confirmation.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("%s: failed to wait for confirmation: %w", op, err)
	}

	if !acked {
		return fmt.Errorf("%s: %w", op, ErrNotConfirmed)
	}

	return nil
}
