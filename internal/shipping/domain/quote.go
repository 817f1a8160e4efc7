package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NotAvailable fills address fields that could not be resolved.
const NotAvailable = "not available"

type AddressInfo struct {
	PostalCode   string `json:"postal_code"`
	Street       string `json:"street"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}

func UnresolvedAddress(postalCode string) AddressInfo {
	return AddressInfo{
		PostalCode:   postalCode,
		Street:       NotAvailable,
		Neighborhood: NotAvailable,
		City:         NotAvailable,
		State:        NotAvailable,
	}
}

// Quote is the resolver's answer. Live is false when the cost came from the
// distance heuristic rather than the carrier API.
type Quote struct {
	Cost         decimal.Decimal `json:"cost"`
	DeliveryDays int             `json:"delivery_days"`
	Live         bool            `json:"live"`
	Service      string          `json:"service,omitempty"`
	Origin       AddressInfo     `json:"origin"`
	Destination  AddressInfo     `json:"destination"`
}

// EstimatedDelivery is now plus the quoted days, in UTC.
func (q Quote) EstimatedDelivery(now time.Time) time.Time {
	return now.UTC().AddDate(0, 0, q.DeliveryDays)
}

// NormalizePostalCode strips everything but digits ("01001-000" -> "01001000").
func NormalizePostalCode(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
