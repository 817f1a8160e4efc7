package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrLineNotFound    = errors.New("product not in cart")
	ErrCartNotFound    = errors.New("cart not found")
	// ErrCartExists is returned when a new cart loses the race against
	// another cart created for the same customer.
	ErrCartExists = errors.New("customer already has a cart")
)

type Line struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Cart holds a customer's pending selections. Every line has a positive
// quantity and a product appears in at most one line.
type Cart struct {
	ID         string
	CustomerID string
	Lines      []Line
	UpdatedAt  time.Time
}

func New(id, customerID string) *Cart {
	return &Cart{ID: id, CustomerID: customerID, UpdatedAt: time.Now().UTC()}
}

// Add merges into an existing line, keeping the price captured when the
// product was first added.
func (c *Cart) Add(productID string, qty int, unitPrice decimal.Decimal) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if i := c.index(productID); i >= 0 {
		c.Lines[i].Quantity += qty
	} else {
		c.Lines = append(c.Lines, Line{ProductID: productID, Quantity: qty, UnitPrice: unitPrice})
	}
	c.touch()
	return nil
}

// Decrease lowers a line's quantity and drops the line once it reaches zero.
func (c *Cart) Decrease(productID string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	i := c.index(productID)
	if i < 0 {
		return ErrLineNotFound
	}
	c.Lines[i].Quantity -= qty
	if c.Lines[i].Quantity <= 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	}
	c.touch()
	return nil
}

func (c *Cart) Remove(productID string) error {
	i := c.index(productID)
	if i < 0 {
		return ErrLineNotFound
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	c.touch()
	return nil
}

func (c *Cart) Clear() {
	c.Lines = nil
	c.touch()
}

func (c *Cart) IsEmpty() bool { return c == nil || len(c.Lines) == 0 }

// Snapshot copies the lines so later cart edits cannot reach the caller.
func (c *Cart) Snapshot() []Line {
	out := make([]Line, len(c.Lines))
	copy(out, c.Lines)
	return out
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

func (c *Cart) index(productID string) int {
	for i, l := range c.Lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) touch() { c.UpdatedAt = time.Now().UTC() }
