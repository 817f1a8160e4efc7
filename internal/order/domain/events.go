package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types as written to the outbox and carried in the event_type header.
const (
	EventFulfillmentRequested = "FulfillmentRequested"
	EventOrderProcessed       = "OrderProcessed"
	EventOrderFailed          = "OrderFailed"
)

// FulfillmentRequested crosses the checkout -> fulfillment boundary. Items
// are a snapshot of the cart at checkout; nothing downstream re-reads live
// prices.
type FulfillmentRequested struct {
	OrderID       string      `json:"order_id"`
	CustomerID    string      `json:"customer_id"`
	Address       Address     `json:"address"`
	PaymentMethod string      `json:"payment_method"`
	Items         []OrderItem `json:"items"`
	RequestedAt   time.Time   `json:"requested_at"`
}

type OrderProcessed struct {
	OrderID     string          `json:"order_id"`
	CustomerID  string          `json:"customer_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// OrderFailed is only published when failure notification is switched on.
type OrderFailed struct {
	OrderID    string `json:"order_id"`
	CustomerID string `json:"customer_id"`
	Reason     string `json:"reason"`
	ProductID  string `json:"product_id,omitempty"`
}
