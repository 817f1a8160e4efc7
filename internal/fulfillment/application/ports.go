package application

import (
	"context"

	"github.com/shopspring/decimal"

	inventory "github.com/dmehra2102/order-fulfillment/internal/inventory/domain"
	order "github.com/dmehra2102/order-fulfillment/internal/order/domain"
	payment "github.com/dmehra2102/order-fulfillment/internal/payment/domain"
	shipping "github.com/dmehra2102/order-fulfillment/internal/shipping/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/outbox"
)

type OrderStore interface {
	// Settled is true once the id was persisted as an order or recorded as
	// failed.
	Settled(ctx context.Context, id string) (bool, error)
	// SaveWithOutbox returns order.ErrDuplicateOrder when the id is taken.
	SaveWithOutbox(ctx context.Context, o order.Order, msgs ...outbox.Message) error
	RecordFailure(ctx context.Context, f order.Failure, msgs ...outbox.Message) error
}

type Stock interface {
	Reserve(ctx context.Context, lines []inventory.Line) ([]inventory.Line, error)
	Release(ctx context.Context, lines []inventory.Line) error
}

type ShippingQuoter interface {
	Quote(ctx context.Context, originPostalCode, destinationPostalCode string) shipping.Quote
}

type PaymentCharger interface {
	Charge(ctx context.Context, orderID string, amount decimal.Decimal, method string) (payment.Payment, error)
}

type CartPruner interface {
	// RemoveOrdered takes the ordered quantities out of the customer's cart.
	RemoveOrdered(ctx context.Context, customerID string, ordered map[string]int) error
}

// Claims guards against two workers handling the same order id.
type Claims interface {
	Claim(ctx context.Context, orderID string) (bool, error)
	Release(ctx context.Context, orderID string) error
}
