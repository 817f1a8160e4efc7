package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/order-fulfillment/internal/fulfillment/application"
	"github.com/dmehra2102/order-fulfillment/internal/fulfillment/domain"
	order "github.com/dmehra2102/order-fulfillment/internal/order/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/broker"
	"github.com/dmehra2102/order-fulfillment/pkg/tracing"
)

type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Handler interface {
	Handle(ctx context.Context, req order.FulfillmentRequested) (domain.Result, error)
}

// Consumer feeds fulfillment requests to the processor one at a time. The
// offset is committed once the processor reached an outcome; a processing
// error retries the same message with backoff and, if the worker stops
// first, leaves it uncommitted for redelivery.
type Consumer struct {
	log     *slog.Logger
	reader  Reader
	handler Handler
	tracer  trace.Tracer
	backoff func() backoff.BackOff
}

func NewConsumer(log *slog.Logger, reader Reader, handler Handler) *Consumer {
	return &Consumer{
		log:     log,
		reader:  reader,
		handler: handler,
		tracer:  otel.Tracer("fulfillment-consumer"),
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
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
		if err := c.process(ctx, msg); err != nil {
			// only returns once ctx is done
			return nil
		}
		if err := c.commit(ctx, msg); err != nil {
			c.log.Error("commit failed", "offset", msg.Offset, "err", err)
		}
	}
}

// commit survives shutdown so an outcome reached just before it is not
// redelivered.
func (c *Consumer) commit(ctx context.Context, msg kafka.Message) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return c.reader.CommitMessages(ctx, msg)
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	if et := broker.HeaderValue(msg.Headers, broker.HeaderEventType); et != "" && et != order.EventFulfillmentRequested {
		c.log.Debug("ignoring event", "event_type", et, "offset", msg.Offset)
		return nil
	}

	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "ConsumeFulfillmentRequested")
	defer span.End()

	var req order.FulfillmentRequested
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		c.log.Error("unmarshal failed, dropping message", "offset", msg.Offset, "key", string(msg.Key), "err", err)
		return nil
	}

	op := func() error {
		res, err := c.handler.Handle(msgCtx, req)
		if errors.Is(err, application.ErrClaimHeld) {
			c.log.Info("order claimed elsewhere, waiting", "order_id", req.OrderID)
			return err
		}
		if err != nil {
			c.log.Error("fulfillment failed, will retry", "order_id", req.OrderID, "err", err)
			return err
		}
		c.log.Info("fulfillment processed", "order_id", res.OrderID, "outcome", res.Outcome)
		return nil
	}
	return backoff.Retry(op, backoff.WithContext(c.backoff(), ctx))
}
