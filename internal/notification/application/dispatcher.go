package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmehra2102/order-fulfillment/internal/notification/domain"
	order "github.com/dmehra2102/order-fulfillment/internal/order/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/metrics"
)

// Dispatcher turns order events into customer messages. It is best effort:
// nothing it does feeds back into the order.
type Dispatcher struct {
	log      *slog.Logger
	contacts ContactDirectory
	sender   Sender
	metrics  *metrics.Pipeline
}

func NewDispatcher(log *slog.Logger, contacts ContactDirectory, sender Sender, m *metrics.Pipeline) *Dispatcher {
	return &Dispatcher{log: log, contacts: contacts, sender: sender, metrics: m}
}

// Dispatch handles one event. Unknown event types and customers without a
// contact are skipped without error.
func (d *Dispatcher) Dispatch(ctx context.Context, eventType string, payload []byte) error {
	switch eventType {
	case order.EventOrderProcessed:
		var ev order.OrderProcessed
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", eventType, err)
		}
		return d.notify(ctx, domain.KindConfirmation, ev.OrderID, ev.CustomerID, func(c domain.Contact) (string, string) {
			return fmt.Sprintf("Order %s confirmed", ev.OrderID),
				fmt.Sprintf("Hi %s,\n\nYour order %s has been paid and will ship soon.\nTotal charged: %s\n", greeting(c), ev.OrderID, ev.TotalAmount.StringFixed(2))
		})
	case order.EventOrderFailed:
		var ev order.OrderFailed
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", eventType, err)
		}
		return d.notify(ctx, domain.KindFailure, ev.OrderID, ev.CustomerID, func(c domain.Contact) (string, string) {
			return fmt.Sprintf("We could not complete order %s", ev.OrderID),
				fmt.Sprintf("Hi %s,\n\nUnfortunately order %s could not be completed (%s). You have not been charged.\n", greeting(c), ev.OrderID, ev.Reason)
		})
	default:
		d.log.Debug("event ignored", "event_type", eventType)
		return nil
	}
}

func (d *Dispatcher) notify(ctx context.Context, kind domain.Kind, orderID, customerID string, render func(domain.Contact) (string, string)) error {
	log := d.log.With("order_id", orderID, "customer_id", customerID, "kind", kind)

	contact, err := d.contacts.Contact(ctx, customerID)
	if errors.Is(err, domain.ErrContactNotFound) {
		log.Warn("no contact on file, notification skipped")
		d.metrics.Notifications.WithLabelValues(string(kind), "skipped").Inc()
		return nil
	}
	if err != nil {
		d.metrics.Notifications.WithLabelValues(string(kind), "failed").Inc()
		return fmt.Errorf("lookup contact: %w", err)
	}

	subject, body := render(contact)
	if err := d.sender.Send(ctx, domain.Notification{Kind: kind, OrderID: orderID, To: contact, Subject: subject, Body: body}); err != nil {
		d.metrics.Notifications.WithLabelValues(string(kind), "failed").Inc()
		return fmt.Errorf("send %s: %w", kind, err)
	}
	d.metrics.Notifications.WithLabelValues(string(kind), "sent").Inc()
	log.Info("notification sent")
	return nil
}

func greeting(c domain.Contact) string {
	if c.Name != "" {
		return c.Name
	}
	return "there"
}
