package application

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/order-fulfillment/internal/notification/domain"
	order "github.com/dmehra2102/order-fulfillment/internal/order/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/metrics"
)

type directory map[string]domain.Contact

func (d directory) Contact(_ context.Context, id string) (domain.Contact, error) {
	c, ok := d[id]
	if !ok {
		return domain.Contact{}, domain.ErrContactNotFound
	}
	return c, nil
}

type mailbox struct {
	sent []domain.Notification
	err  error
}

func (o *mailbox) Send(_ context.Context, n domain.Notification) error {
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, n)
	return nil
}

func newDispatcher(sender *mailbox) (*Dispatcher, *metrics.Pipeline) {
	m := metrics.NewNop()
	contacts := directory{"cust-1": {CustomerID: "cust-1", Name: "Ana", Email: "ana@example.com"}}
	return NewDispatcher(slog.New(slog.NewTextHandler(io.Discard, nil)), contacts, sender, m), m
}

func payload(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestDispatchConfirmation(t *testing.T) {
	sender := &mailbox{}
	d, m := newDispatcher(sender)

	err := d.Dispatch(context.Background(), order.EventOrderProcessed, payload(t, order.OrderProcessed{
		OrderID: "ord-1", CustomerID: "cust-1", TotalAmount: decimal.RequireFromString("127.00"),
	}))
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	n := sender.sent[0]
	assert.Equal(t, domain.KindConfirmation, n.Kind)
	assert.Equal(t, "ana@example.com", n.To.Email)
	assert.Contains(t, n.Subject, "ord-1")
	assert.Contains(t, n.Body, "127.00")
	assert.Contains(t, n.Body, "Ana")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Notifications.WithLabelValues("confirmation", "sent")))
}

func TestDispatchFailureNotice(t *testing.T) {
	sender := &mailbox{}
	d, _ := newDispatcher(sender)

	err := d.Dispatch(context.Background(), order.EventOrderFailed, payload(t, order.OrderFailed{
		OrderID: "ord-2", CustomerID: "cust-1", Reason: "Your card was declined.",
	}))
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, domain.KindFailure, sender.sent[0].Kind)
	assert.Contains(t, sender.sent[0].Body, "Your card was declined.")
}

func TestDispatchMissingContactIsSkipped(t *testing.T) {
	sender := &mailbox{}
	d, m := newDispatcher(sender)

	err := d.Dispatch(context.Background(), order.EventOrderProcessed, payload(t, order.OrderProcessed{OrderID: "ord-1", CustomerID: "cust-unknown"}))

	assert.NoError(t, err)
	assert.Empty(t, sender.sent)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Notifications.WithLabelValues("confirmation", "skipped")))
}

func TestDispatchIgnoresOtherEvents(t *testing.T) {
	sender := &mailbox{}
	d, _ := newDispatcher(sender)

	assert.NoError(t, d.Dispatch(context.Background(), order.EventFulfillmentRequested, []byte(`{}`)))
	assert.Empty(t, sender.sent)
}

func TestDispatchReportsSendAndDecodeErrors(t *testing.T) {
	sender := &mailbox{err: errors.New("smtp: 421 service not available")}
	d, m := newDispatcher(sender)

	err := d.Dispatch(context.Background(), order.EventOrderProcessed, payload(t, order.OrderProcessed{OrderID: "ord-1", CustomerID: "cust-1"}))
	assert.ErrorIs(t, err, sender.err)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Notifications.WithLabelValues("confirmation", "failed")))

	assert.Error(t, d.Dispatch(context.Background(), order.EventOrderProcessed, []byte(`{`)))
}
