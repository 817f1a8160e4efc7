package kafka

import (
	"context"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/order-fulfillment/pkg/broker"
	"github.com/dmehra2102/order-fulfillment/pkg/tracing"
)

type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, eventType string, payload []byte) error
}

// Consumer commits every message whatever the dispatch result; a lost
// notification never holds up the order events behind it.
type Consumer struct {
	log        *slog.Logger
	reader     Reader
	dispatcher Dispatcher
	tracer     trace.Tracer
}

func NewConsumer(log *slog.Logger, reader Reader, dispatcher Dispatcher) *Consumer {
	return &Consumer{
		log:        log,
		reader:     reader,
		dispatcher: dispatcher,
		tracer:     otel.Tracer("notification-consumer"),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		eventType := broker.HeaderValue(msg.Headers, broker.HeaderEventType)
		msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
		msgCtx, span := c.tracer.Start(msgCtx, "ConsumeOrderEvent", trace.WithAttributes(attribute.String("event.type", eventType)))
		if err := c.dispatcher.Dispatch(msgCtx, eventType, msg.Value); err != nil {
			span.RecordError(err)
			c.log.Error("notification failed", "event_type", eventType, "key", string(msg.Key), "err", err)
		}
		span.End()

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("commit failed", "offset", msg.Offset, "err", err)
		}
	}
}
