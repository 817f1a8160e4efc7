package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	cart "github.com/dmehra2102/order-fulfillment/internal/cart/domain"
	"github.com/dmehra2102/order-fulfillment/internal/order/domain"
)

type Service struct {
	log       *slog.Logger
	carts     CartReader
	publisher Publisher
	orders    OrderReader
	tracer    trace.Tracer
	now       func() time.Time
	newID     func() string
}

func NewService(log *slog.Logger, carts CartReader, publisher Publisher, orders OrderReader) *Service {
	return &Service{
		log:       log,
		carts:     carts,
		publisher: publisher,
		orders:    orders,
		tracer:    otel.Tracer("checkout"),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// InitiateCheckout publishes a snapshot of the customer's cart for
// fulfillment and returns the id the order will have once it exists. The
// cart and stock are left untouched.
func (s *Service) InitiateCheckout(ctx context.Context, customerID string, addr domain.Address, paymentMethod string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "InitiateCheckout")
	defer span.End()

	c, err := s.carts.Get(ctx, customerID)
	if errors.Is(err, cart.ErrCartNotFound) {
		return "", domain.ErrEmptyCart
	}
	if err != nil {
		return "", err
	}
	if c.IsEmpty() {
		return "", domain.ErrEmptyCart
	}

	if strings.TrimSpace(addr.PostalCode) == "" {
		return "", fmt.Errorf("%w: postal code is required", domain.ErrInvalidCheckout)
	}
	if strings.TrimSpace(paymentMethod) == "" {
		return "", fmt.Errorf("%w: payment method is required", domain.ErrInvalidCheckout)
	}

	lines := c.Snapshot()
	items := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, domain.OrderItem{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: l.UnitPrice})
	}

	req := domain.FulfillmentRequested{
		OrderID:       s.newID(),
		CustomerID:    customerID,
		Address:       addr,
		PaymentMethod: paymentMethod,
		Items:         items,
		RequestedAt:   s.now().UTC(),
	}
	span.SetAttributes(attribute.String("order.id", req.OrderID), attribute.Int("order.items", len(items)))

	if err := s.publisher.RequestFulfillment(ctx, req); err != nil {
		return "", fmt.Errorf("publish fulfillment request: %w", err)
	}
	s.log.Info("checkout accepted", "order_id", req.OrderID, "customer_id", customerID, "items", len(items))
	return req.OrderID, nil
}

// GetOrder returns domain.ErrOrderNotFound until fulfillment has persisted
// the order.
func (s *Service) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	return s.orders.Get(ctx, id)
}
