package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Product is owned by the catalog; the pipeline only reads its price and
// decrements its stock.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
	Stock int
}

type Line struct {
	ProductID string
	Quantity  int
}

// ShortfallError reports the line that stopped a reservation.
type ShortfallError struct {
	ProductID string
	Requested int
	Available int
	Missing   bool
}

func (e *ShortfallError) Error() string {
	if e.Missing {
		return fmt.Sprintf("product %s: %v", e.ProductID, ErrProductNotFound)
	}
	return fmt.Sprintf("product %s: %v (requested %d, available %d)", e.ProductID, ErrInsufficientStock, e.Requested, e.Available)
}

func (e *ShortfallError) Unwrap() error {
	if e.Missing {
		return ErrProductNotFound
	}
	return ErrInsufficientStock
}
