package application

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/order-fulfillment/internal/shipping/domain"
)

// ErrPostalCodeNotFound is returned by a PostalLookup that answered but did
// not know the code.
var ErrPostalCodeNotFound = errors.New("postal code not found")

// RateOption is one priced service returned by the carrier rate API.
type RateOption struct {
	Service      string
	Price        decimal.Decimal
	DeliveryDays int
}

type RateClient interface {
	// Configured reports whether a credential is available.
	Configured() bool
	Quote(ctx context.Context, originPostalCode, destinationPostalCode string) (RateOption, error)
}

type PostalLookup interface {
	Lookup(ctx context.Context, postalCode string) (domain.AddressInfo, error)
}
