package application

import (
	"context"

	"github.com/dmehra2102/order-fulfillment/internal/cart/domain"
	inventory "github.com/dmehra2102/order-fulfillment/internal/inventory/domain"
)

type CartRepository interface {
	// ByCustomer returns domain.ErrCartNotFound when the customer never added
	// anything.
	ByCustomer(ctx context.Context, customerID string) (*domain.Cart, error)
	Save(ctx context.Context, c *domain.Cart) error
}

// ProductCatalog supplies the price captured when a product is first added.
type ProductCatalog interface {
	Product(ctx context.Context, id string) (inventory.Product, error)
}
