package application

import (
	"context"

	cart "github.com/dmehra2102/order-fulfillment/internal/cart/domain"
	"github.com/dmehra2102/order-fulfillment/internal/order/domain"
)

type CartReader interface {
	Get(ctx context.Context, customerID string) (*cart.Cart, error)
}

// Publisher hands a fulfillment request to the asynchronous pipeline.
type Publisher interface {
	RequestFulfillment(ctx context.Context, req domain.FulfillmentRequested) error
}

type OrderReader interface {
	Get(ctx context.Context, id string) (domain.Order, error)
}
