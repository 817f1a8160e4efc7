package application

import (
	"context"

	"github.com/dmehra2102/order-fulfillment/internal/inventory/domain"
)

type StockRepository interface {
	Product(ctx context.Context, id string) (domain.Product, error)
	// DecrementIfAvailable removes qty units in one conditional update. It
	// fails with *domain.ShortfallError when the product is missing or holds
	// fewer than qty units, leaving stock untouched.
	DecrementIfAvailable(ctx context.Context, productID string, qty int) error
	Increment(ctx context.Context, productID string, qty int) error
}
