package application

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/dmehra2102/order-fulfillment/internal/shipping/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/metrics"
)

type Config struct {
	BasePrice           decimal.Decimal
	DefaultDeliveryDays int
	// Live enables the carrier API tier. It is only used when the rate
	// client also has a credential.
	Live bool
}

func DefaultConfig() Config {
	return Config{
		BasePrice:           decimal.RequireFromString("15.00"),
		DefaultDeliveryDays: 7,
	}
}

// Resolver prices a shipment with the carrier API when it can and with the
// postal prefix distance heuristic otherwise. It never fails.
type Resolver struct {
	log     *slog.Logger
	cfg     Config
	rates   RateClient
	postal  PostalLookup
	metrics *metrics.Pipeline
	tracer  trace.Tracer
}

// NewResolver accepts nil rates or postal; the matching tier is then skipped.
func NewResolver(log *slog.Logger, cfg Config, rates RateClient, postal PostalLookup, m *metrics.Pipeline) *Resolver {
	return &Resolver{
		log:     log,
		cfg:     cfg,
		rates:   rates,
		postal:  postal,
		metrics: m,
		tracer:  otel.Tracer("shipping-resolver"),
	}
}

func (r *Resolver) Quote(ctx context.Context, originPostalCode, destinationPostalCode string) domain.Quote {
	ctx, span := r.tracer.Start(ctx, "ShippingQuote")
	defer span.End()

	origin := domain.NormalizePostalCode(originPostalCode)
	dest := domain.NormalizePostalCode(destinationPostalCode)

	var q domain.Quote
	var g errgroup.Group
	g.Go(func() error {
		q.Origin = r.ResolveAddress(ctx, origin)
		return nil
	})
	g.Go(func() error {
		q.Destination = r.ResolveAddress(ctx, dest)
		return nil
	})

	if opt, ok := r.live(ctx, origin, dest); ok {
		q.Cost = opt.Price
		q.DeliveryDays = opt.DeliveryDays
		q.Service = opt.Service
		q.Live = true
	} else {
		q.Cost = r.cfg.BasePrice.Mul(Multiplier(origin, dest)).Round(2)
		q.DeliveryDays = r.cfg.DefaultDeliveryDays
	}
	_ = g.Wait()

	tier := "heuristic"
	if q.Live {
		tier = "live"
	}
	r.metrics.ShippingQuote.WithLabelValues(tier).Inc()
	span.SetAttributes(attribute.String("shipping.tier", tier), attribute.String("shipping.cost", q.Cost.StringFixed(2)))
	return q
}

func (r *Resolver) live(ctx context.Context, origin, dest string) (RateOption, bool) {
	if !r.cfg.Live || r.rates == nil || !r.rates.Configured() {
		return RateOption{}, false
	}
	opt, err := r.rates.Quote(ctx, origin, dest)
	if err != nil {
		r.log.Warn("live shipping quote unavailable, using heuristic", "origin", origin, "destination", dest, "err", err)
		return RateOption{}, false
	}
	return opt, true
}

// ResolveAddress never returns an empty address: lookup service, then the
// static prefix table, then "not available" placeholders.
func (r *Resolver) ResolveAddress(ctx context.Context, postalCode string) domain.AddressInfo {
	postalCode = domain.NormalizePostalCode(postalCode)
	if r.postal != nil && postalCode != "" {
		addr, err := r.postal.Lookup(ctx, postalCode)
		if err == nil {
			return fillBlanks(addr, postalCode)
		}
		if errors.Is(err, ErrPostalCodeNotFound) {
			r.log.Debug("postal code unknown to lookup service", "postal_code", postalCode)
		} else {
			r.log.Warn("postal lookup failed", "postal_code", postalCode, "err", err)
		}
	}

	addr := domain.UnresolvedAddress(postalCode)
	if prefix, ok := prefixOf(postalCode); ok {
		if p, ok := lookupPrefix(prefix); ok {
			addr.City = p.city
			addr.State = p.state
		}
	}
	return addr
}

// Multiplier scales the base price by how far apart the 3-digit prefixes of
// the two postal codes are. Codes without a numeric prefix get 1.0.
func Multiplier(originPostalCode, destinationPostalCode string) decimal.Decimal {
	a, okA := prefixOf(originPostalCode)
	b, okB := prefixOf(destinationPostalCode)
	if !okA || !okB {
		return decimal.NewFromInt(1)
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff == 0:
		return decimal.NewFromInt(1)
	case diff <= 50:
		return decimal.RequireFromString("1.5")
	case diff <= 200:
		return decimal.RequireFromString("1.8")
	default:
		return decimal.RequireFromString("2.5")
	}
}

func prefixOf(postalCode string) (int, bool) {
	if len(postalCode) < 3 {
		return 0, false
	}
	for _, c := range postalCode[:3] {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, _ := strconv.Atoi(postalCode[:3])
	return n, true
}

func fillBlanks(addr domain.AddressInfo, postalCode string) domain.AddressInfo {
	if addr.PostalCode == "" {
		addr.PostalCode = postalCode
	}
	for _, f := range []*string{&addr.Street, &addr.Neighborhood, &addr.City, &addr.State} {
		if *f == "" {
			*f = domain.NotAvailable
		}
	}
	return addr
}
