package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/metrics"
)

// Consumer outcomes.
const (
	OutcomeStored   = "stored"
	OutcomeDropped  = "dropped"
	OutcomeRequeued = "requeued"
)

const tracerName = "github.com/vadimbarashkov/shortlink/internal/adapter/queue"

type consumeChannel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	ConsumeWithContext(ctx context.Context, queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

type clickLog interface {
	RecordClick(ctx context.Context, key string, mappingID int64, at time.Time) error
}

// ClickConsumer appends queued clicks to the click log with a fixed number
// of workers.
type ClickConsumer struct {
	ch      consumeChannel
	queue   string
	clicks  clickLog
	workers int
	logger  *slog.Logger
}

func NewClickConsumer(ch consumeChannel, queue string, clicks clickLog, workers int, logger *slog.Logger) *ClickConsumer {
	if workers <= 0 {
		workers = 1
	}

	return &ClickConsumer{
		ch:      ch,
		queue:   queue,
		clicks:  clicks,
		workers: workers,
		logger:  logger,
	}
}

// Run consumes the queue until ctx is canceled or the channel is closed.
func (c *ClickConsumer) Run(ctx context.Context) error {
	const op = "adapter.queue.ClickConsumer.Run"

	if err := c.ch.Qos(c.workers*2, 0, false); err != nil {
		return fmt.Errorf("%s: failed to set qos: %w", op, err)
	}

	deliveries, err := c.ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to consume queue: %w", op, err)
	}

	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < c.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case d, ok := <-deliveries:
					if !ok {
						return nil
					}
					c.handle(ctx, d)
				}
			}
		})
	}

	return g.Wait()
}

func (c *ClickConsumer) handle(ctx context.Context, d amqp.Delivery) {
	ctx = otel.GetTextMapPropagator().Extract(ctx, headerCarrier(d.Headers))
	ctx, span := otel.Tracer(tracerName).Start(ctx, "clicks.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.String("messaging.message.id", d.MessageId)),
	)
	defer span.End()

	logger := c.logger.With(slog.String("message_id", d.MessageId))

	var msg clickMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		logger.Error("dropping malformed click message", slog.Any("err", err))
		c.settle(logger, d.Nack(false, false), OutcomeDropped)
		return
	}

	if msg.Key == "" {
		msg.Key = d.MessageId
	}

	if msg.Key == "" {
		logger.Error("dropping click message without key")
		c.settle(logger, d.Nack(false, false), OutcomeDropped)
		return
	}

	if err := c.clicks.RecordClick(ctx, msg.Key, msg.MappingID, msg.ClickedAt); err != nil {
		span.RecordError(err)

		if errors.Is(err, entity.ErrURLNotFound) {
			logger.Warn("dropping click of unknown mapping", slog.Int64("mapping_id", msg.MappingID))
			c.settle(logger, d.Nack(false, false), OutcomeDropped)
			return
		}

		logger.Error("failed to record click", slog.Any("err", err))
		c.settle(logger, d.Nack(false, true), OutcomeRequeued)
		return
	}

	c.settle(logger, d.Ack(false), OutcomeStored)
}

func (c *ClickConsumer) settle(logger *slog.Logger, err error, outcome string) {
	if err != nil {
		logger.Error("failed to settle click message", slog.Any("err", err))
		return
	}

	metrics.QueuedClicks.WithLabelValues(outcome).Inc()
}
