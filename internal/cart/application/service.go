package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmehra2102/order-fulfillment/internal/cart/domain"
)

type Service struct {
	log     *slog.Logger
	repo    CartRepository
	catalog ProductCatalog
}

func NewService(log *slog.Logger, repo CartRepository, catalog ProductCatalog) *Service {
	return &Service{log: log, repo: repo, catalog: catalog}
}

func (s *Service) Get(ctx context.Context, customerID string) (*domain.Cart, error) {
	return s.repo.ByCustomer(ctx, customerID)
}

// AddItem creates the cart on first use. If a concurrent request created
// the customer's cart first, the item is added to that cart instead.
func (s *Service) AddItem(ctx context.Context, customerID, productID string, qty int) (*domain.Cart, error) {
	if qty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	product, err := s.catalog.Product(ctx, productID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		c, err := s.repo.ByCustomer(ctx, customerID)
		if errors.Is(err, domain.ErrCartNotFound) {
			c = domain.New(uuid.NewString(), customerID)
			s.log.Info("cart created", "cart_id", c.ID, "customer_id", customerID)
		} else if err != nil {
			return nil, err
		}

		if err := c.Add(productID, qty, product.Price); err != nil {
			return nil, err
		}
		err = s.repo.Save(ctx, c)
		if errors.Is(err, domain.ErrCartExists) && attempt == 0 {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("save cart: %w", err)
		}
		return c, nil
	}
}

func (s *Service) DecreaseItem(ctx context.Context, customerID, productID string, qty int) (*domain.Cart, error) {
	return s.mutate(ctx, customerID, func(c *domain.Cart) error { return c.Decrease(productID, qty) })
}

func (s *Service) RemoveItem(ctx context.Context, customerID, productID string) (*domain.Cart, error) {
	return s.mutate(ctx, customerID, func(c *domain.Cart) error { return c.Remove(productID) })
}

// Clear empties the customer's cart. A customer without a cart is a no-op.
func (s *Service) Clear(ctx context.Context, customerID string) error {
	_, err := s.mutate(ctx, customerID, func(c *domain.Cart) error {
		c.Clear()
		return nil
	})
	if errors.Is(err, domain.ErrCartNotFound) {
		return nil
	}
	return err
}

// RemoveOrdered takes the ordered quantities out of the customer's cart.
// Lines added after checkout, and any quantity above what was ordered, stay
// in the cart. A customer without a cart is a no-op.
func (s *Service) RemoveOrdered(ctx context.Context, customerID string, ordered map[string]int) error {
	_, err := s.mutate(ctx, customerID, func(c *domain.Cart) error {
		for productID, qty := range ordered {
			if qty <= 0 {
				continue
			}
			if err := c.Decrease(productID, qty); err != nil && !errors.Is(err, domain.ErrLineNotFound) {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, domain.ErrCartNotFound) {
		return nil
	}
	return err
}

func (s *Service) mutate(ctx context.Context, customerID string, fn func(*domain.Cart) error) (*domain.Cart, error) {
	c, err := s.repo.ByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return c, nil
}
