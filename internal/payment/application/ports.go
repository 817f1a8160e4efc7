package application

import (
	"context"

	"github.com/shopspring/decimal"
)

type CaptureRequest struct {
	// IdempotencyKey makes a repeated capture for the same order return the
	// original result instead of charging twice.
	IdempotencyKey string
	Amount         decimal.Decimal
	Currency       string
	PaymentMethod  string
}

// Gateway captures funds synchronously. Any failure is a
// *domain.PaymentError. Implementations do not retry.
type Gateway interface {
	Capture(ctx context.Context, req CaptureRequest) (transactionID string, err error)
}
