package domain

import (
	"time"

	"github.com/shopspring/decimal"

	payment "github.com/dmehra2102/order-fulfillment/internal/payment/domain"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
	StatusReturned  OrderStatus = "returned"
)

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

type OrderItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Shipping is filled from the quote at creation; carrier and tracking code
// are set later by logistics.
type Shipping struct {
	Cost              decimal.Decimal
	EstimatedDelivery time.Time
	LiveQuote         bool
	Carrier           string
	TrackingCode      string
}

type Order struct {
	ID              string
	CustomerID      string
	Items           []OrderItem
	ShippingAddress Address
	Payment         payment.Payment
	Shipping        Shipping
	TotalAmount     decimal.Decimal
	Status          OrderStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewOrder assembles a paid order. The total is items plus shipping and is
// not recomputed afterwards.
func NewOrder(id, customerID string, items []OrderItem, addr Address, ship Shipping, pay payment.Payment, now time.Time) Order {
	now = now.UTC()
	return Order{
		ID:              id,
		CustomerID:      customerID,
		Items:           items,
		ShippingAddress: addr,
		Payment:         pay,
		Shipping:        ship,
		TotalAmount:     Subtotal(items).Add(ship.Cost),
		Status:          StatusPaid,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func Subtotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Failure is the durable record of a fulfillment that ended without an
// order. Its id can never be fulfilled afterwards.
type Failure struct {
	OrderID    string
	CustomerID string
	Outcome    string
	Reason     string
	ProductID  string
	FailedAt   time.Time
}
