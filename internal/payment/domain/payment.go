package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusAuthorized Status = "authorized"
	StatusPaid       Status = "paid"
	StatusFailed     Status = "failed"
)

// Payment is written once, by fulfillment, as part of the order aggregate.
type Payment struct {
	Amount         decimal.Decimal
	Currency       string
	Method         string
	Status         Status
	TransactionRef string
	CreatedAt      time.Time
}

// MinorUnits converts an amount to the processor's integer representation,
// rounding half away from zero ("10.005" -> 1001).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
