package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/order-fulfillment/internal/fulfillment/application"
	"github.com/dmehra2102/order-fulfillment/internal/fulfillment/domain"
	order "github.com/dmehra2102/order-fulfillment/internal/order/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/broker"
)

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type scriptedHandler struct {
	mu       sync.Mutex
	failures int
	failWith error
	calls    []string
	// onSuccess runs before a successful result is returned.
	onSuccess func()
}

func (h *scriptedHandler) Handle(_ context.Context, req order.FulfillmentRequested) (domain.Result, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, req.OrderID)
	if h.failures > 0 {
		h.failures--
		if h.failWith != nil {
			return domain.Result{}, h.failWith
		}
		return domain.Result{}, errors.New("db unavailable")
	}
	if h.onSuccess != nil {
		h.onSuccess()
	}
	return domain.Result{Outcome: domain.Succeeded, OrderID: req.OrderID}, nil
}

func (h *scriptedHandler) seen() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

func message(t *testing.T, offset int64, orderID string) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(order.FulfillmentRequested{
		OrderID: orderID, CustomerID: "cust-1", PaymentMethod: "pm",
		Address: order.Address{PostalCode: "20040030"},
		Items:   []order.OrderItem{{ProductID: "A", Quantity: 1, UnitPrice: decimal.NewFromInt(1)}},
	})
	require.NoError(t, err)
	return kafka.Message{
		Offset:  offset,
		Key:     []byte(orderID),
		Value:   raw,
		Headers: []kafka.Header{{Key: broker.HeaderEventType, Value: []byte(order.EventFulfillmentRequested)}},
	}
}

func newConsumer(r Reader, h Handler) *Consumer {
	c := NewConsumer(slog.New(slog.NewTextHandler(io.Discard, nil)), r, h)
	c.backoff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }
	return c
}

func TestConsumerCommitsAfterOutcome(t *testing.T) {
	other := message(t, 2, "ord-x")
	other.Headers = []kafka.Header{{Key: broker.HeaderEventType, Value: []byte("SomethingElse")}}
	r := &fakeReader{msgs: []kafka.Message{
		message(t, 1, "ord-1"),
		other,
		{Offset: 3, Value: []byte("{not json")},
		message(t, 4, "ord-2"),
	}}
	h := &scriptedHandler{}
	c := newConsumer(r, h)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return len(r.commits()) == 4 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []int64{1, 2, 3, 4}, r.commits())
	assert.Equal(t, []string{"ord-1", "ord-2"}, h.seen())
	assert.True(t, r.closed)
}

func TestConsumerRetriesProcessingErrors(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{message(t, 7, "ord-1")}}
	h := &scriptedHandler{failures: 2}
	c := newConsumer(r, h)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return len(r.commits()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"ord-1", "ord-1", "ord-1"}, h.seen())
}

func TestConsumerLeavesFailingMessageUncommittedOnShutdown(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{message(t, 9, "ord-1")}}
	h := &scriptedHandler{failures: 1 << 30}
	c := newConsumer(r, h)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return len(h.seen()) >= 3 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Empty(t, r.commits())
}

func TestConsumerWaitsOutHeldClaim(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{message(t, 5, "ord-1")}}
	h := &scriptedHandler{failures: 3, failWith: application.ErrClaimHeld}
	c := newConsumer(r, h)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return len(r.commits()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Len(t, h.seen(), 4)
	assert.Equal(t, []int64{5}, r.commits())
}

func TestConsumerCommitsOutcomeReachedDuringShutdown(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{message(t, 11, "ord-1")}}
	h := &scriptedHandler{}
	c := newConsumer(r, h)

	ctx, cancel := context.WithCancel(context.Background())
	h.onSuccess = cancel
	require.NoError(t, c.Run(ctx))

	assert.Equal(t, []int64{11}, r.commits())
}
