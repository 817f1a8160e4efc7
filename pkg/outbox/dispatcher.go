package outbox

import (
	"context"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/dmehra2102/order-fulfillment/pkg/broker"
	"github.com/dmehra2102/order-fulfillment/pkg/tracing"
)

type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Dispatcher struct {
	log          *slog.Logger
	producer     Producer
	defaultTopic string
}

// NewDispatcher publishes events to their own topic, falling back to
// defaultTopic for rows written without one.
func NewDispatcher(log *slog.Logger, producer Producer, defaultTopic string) *Dispatcher {
	return &Dispatcher{log: log, producer: producer, defaultTopic: defaultTopic}
}

func (d *Dispatcher) Dispatch(ctx context.Context, event Event) error {
	headers := make([]kafka.Header, 0, len(event.Headers)+2)
	carrier := tracing.HeaderCarrier{Headers: &headers}
	for k, v := range event.Headers {
		carrier.Set(k, v)
	}
	carrier.Set(broker.HeaderEventType, event.Type)
	if event.Traceparent != "" {
		carrier.Set(tracing.TraceparentHeader, event.Traceparent)
	}

	topic := event.Topic
	if topic == "" {
		topic = d.defaultTopic
	}
	msg := kafka.Message{
		Topic:   topic,
		Key:     []byte(event.AggregateID),
		Value:   event.Payload,
		Headers: headers,
	}
	if err := d.producer.WriteMessages(ctx, msg); err != nil {
		d.log.Error("outbox dispatch failed", "event_id", event.ID, "topic", topic, "err", err)
		return err
	}
	d.log.Info("outbox dispatched", "event_id", event.ID, "type", event.Type, "topic", topic)
	return nil
}
