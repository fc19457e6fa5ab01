// Package queue moves click events through rabbitmq: the redirect path
// publishes them and a pool of workers appends them to the click log.
package queue

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/propagation"
)

type clickMessage struct {
	Key       string    `json:"key"`
	MappingID int64     `json:"mappingId"`
	ClickedAt time.Time `json:"clickedAt"`
}

// OpenChannel opens a channel in confirm mode and declares the durable queue.
func OpenChannel(conn *amqp.Connection, queue string) (*amqp.Channel, error) {
	const op = "adapter.queue.OpenChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open channel: %w", op, err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("%s: failed to enable confirms: %w", op, err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("%s: failed to declare queue: %w", op, err)
	}

	return ch, nil
}

// headerCarrier adapts message headers to the otel propagation carrier.
type headerCarrier amqp.Table

var _ propagation.TextMapCarrier = headerCarrier{}

func (c headerCarrier) Get(key string) string {
	v, _ := c[key].(string)
	return v
}

func (c headerCarrier) Set(key, value string) {
	c[key] = value
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}

	return keys
}
