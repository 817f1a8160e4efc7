package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/order-fulfillment/internal/fulfillment/domain"
	inventory "github.com/dmehra2102/order-fulfillment/internal/inventory/domain"
	order "github.com/dmehra2102/order-fulfillment/internal/order/domain"
	payment "github.com/dmehra2102/order-fulfillment/internal/payment/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/broker"
	"github.com/dmehra2102/order-fulfillment/pkg/metrics"
	"github.com/dmehra2102/order-fulfillment/pkg/outbox"
	"github.com/dmehra2102/order-fulfillment/pkg/tracing"
)

// ErrClaimHeld means another delivery holds the order's claim while the
// order is not settled yet.
var ErrClaimHeld = errors.New("order claimed by another delivery")

const cleanupTimeout = 10 * time.Second

type Config struct {
	// OriginPostalCode is where every shipment leaves from.
	OriginPostalCode string
	Compensation     domain.CompensationPolicy
	// PublishFailures emits OrderFailed for shortfalls and declined payments.
	PublishFailures bool
}

type Deps struct {
	Orders   OrderStore
	Stock    Stock
	Shipping ShippingQuoter
	Payments PaymentCharger
	Carts    CartPruner
	Claims   Claims
}

// Processor turns one FulfillmentRequested into a paid, persisted order, or
// into a Result explaining why not.
type Processor struct {
	log     *slog.Logger
	cfg     Config
	deps    Deps
	metrics *metrics.Pipeline
	tracer  trace.Tracer
	now     func() time.Time
}

func NewProcessor(log *slog.Logger, cfg Config, deps Deps, m *metrics.Pipeline) *Processor {
	if cfg.Compensation == "" {
		cfg.Compensation = domain.Compensate
	}
	return &Processor{
		log:     log,
		cfg:     cfg,
		deps:    deps,
		metrics: m,
		tracer:  otel.Tracer("fulfillment-processor"),
		now:     time.Now,
	}
}

// Handle runs the fulfillment steps strictly in order: stock, shipping,
// payment, persist, cart. A returned error means the request should be
// redelivered; every business outcome comes back as a Result instead.
func (p *Processor) Handle(ctx context.Context, req order.FulfillmentRequested) (domain.Result, error) {
	ctx, span := p.tracer.Start(ctx, "ProcessFulfillment", trace.WithAttributes(attribute.String("order.id", req.OrderID)))
	defer span.End()

	res, err := p.handle(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.metrics.Fulfillments.WithLabelValues("error").Inc()
		return domain.Result{}, err
	}
	span.SetAttributes(attribute.String("fulfillment.outcome", string(res.Outcome)))
	p.metrics.Fulfillments.WithLabelValues(string(res.Outcome)).Inc()
	return res, nil
}

func (p *Processor) handle(ctx context.Context, req order.FulfillmentRequested) (domain.Result, error) {
	log := p.log.With("order_id", req.OrderID)

	if reason := validate(req); reason != "" {
		log.Warn("fulfillment request rejected", "reason", reason)
		return domain.Result{Outcome: domain.Rejected, OrderID: req.OrderID, Reason: reason}, nil
	}

	settled, err := p.deps.Orders.Settled(ctx, req.OrderID)
	if err != nil {
		return domain.Result{}, fmt.Errorf("check order: %w", err)
	}
	if settled {
		log.Info("order already settled, skipping")
		return domain.Result{Outcome: domain.Duplicate, OrderID: req.OrderID}, nil
	}
	claimed, err := p.deps.Claims.Claim(ctx, req.OrderID)
	if err != nil {
		return domain.Result{}, fmt.Errorf("claim order: %w", err)
	}
	if !claimed {
		// Either another delivery is still working on it or a worker died
		// holding the claim. Retry until the order settles or the claim expires.
		return domain.Result{}, ErrClaimHeld
	}

	lines := make([]inventory.Line, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, inventory.Line{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	applied, err := p.deps.Stock.Reserve(ctx, lines)
	if err != nil {
		var se *inventory.ShortfallError
		if errors.As(err, &se) {
			return p.fail(ctx, log, req, applied, domain.StockShortfall, se.Error(), se.ProductID)
		}
		return domain.Result{}, p.abort(ctx, log, req.OrderID, applied, fmt.Errorf("reserve stock: %w", err))
	}

	subtotal := order.Subtotal(req.Items)
	quote := p.deps.Shipping.Quote(ctx, p.cfg.OriginPostalCode, req.Address.PostalCode)
	total := subtotal.Add(quote.Cost)
	log.Info("order priced", "subtotal", subtotal.StringFixed(2), "shipping", quote.Cost.StringFixed(2), "live_quote", quote.Live, "total", total.StringFixed(2))

	pay, err := p.deps.Payments.Charge(ctx, req.OrderID, total, req.PaymentMethod)
	if err != nil {
		if ctx.Err() != nil {
			// Interrupted, not declined. The retry reuses the idempotency key.
			return domain.Result{}, p.abort(ctx, log, req.OrderID, applied, fmt.Errorf("charge interrupted: %w", err))
		}
		reason := err.Error()
		var pe *payment.PaymentError
		if errors.As(err, &pe) {
			reason = pe.Reason
		}
		return p.fail(ctx, log, req, applied, domain.PaymentFailed, reason, "")
	}

	now := p.now()
	o := order.NewOrder(req.OrderID, req.CustomerID, req.Items, req.Address, order.Shipping{
		Cost:              quote.Cost,
		EstimatedDelivery: quote.EstimatedDelivery(now),
		LiveQuote:         quote.Live,
		Carrier:           quote.Service,
	}, pay, now)

	processed := outbox.Message{
		AggregateType: "order",
		AggregateID:   o.ID,
		Type:          order.EventOrderProcessed,
		Topic:         broker.TopicOrderEvents,
		Payload:       order.OrderProcessed{OrderID: o.ID, CustomerID: o.CustomerID, TotalAmount: o.TotalAmount},
		Headers:       map[string]string{"source": "fulfillment-service"},
		Traceparent:   tracing.Traceparent(ctx),
	}
	if err := p.deps.Orders.SaveWithOutbox(ctx, o, processed); err != nil {
		if errors.Is(err, order.ErrDuplicateOrder) {
			p.restore(ctx, log, applied, "order persisted concurrently")
			return domain.Result{Outcome: domain.Duplicate, OrderID: req.OrderID}, nil
		}
		return domain.Result{}, p.abort(ctx, log, req.OrderID, applied, fmt.Errorf("persist order: %w", err))
	}

	ordered := make(map[string]int, len(req.Items))
	for _, item := range req.Items {
		ordered[item.ProductID] += item.Quantity
	}
	if err := p.deps.Carts.RemoveOrdered(ctx, req.CustomerID, ordered); err != nil {
		log.Warn("cart update failed", "customer_id", req.CustomerID, "err", err)
	}
	log.Info("order fulfilled", "total", o.TotalAmount.StringFixed(2), "transaction_ref", pay.TransactionRef)
	return domain.Result{Outcome: domain.Succeeded, OrderID: o.ID, Order: &o}, nil
}

// fail records a terminal failure before applying the compensation policy.
// If the record cannot be written the request is aborted for redelivery.
func (p *Processor) fail(ctx context.Context, log *slog.Logger, req order.FulfillmentRequested, applied []inventory.Line, outcome domain.Outcome, reason, productID string) (domain.Result, error) {
	var msgs []outbox.Message
	if p.cfg.PublishFailures {
		msgs = append(msgs, outbox.Message{
			AggregateType: "order",
			AggregateID:   req.OrderID,
			Type:          order.EventOrderFailed,
			Topic:         broker.TopicOrderEvents,
			Payload:       order.OrderFailed{OrderID: req.OrderID, CustomerID: req.CustomerID, Reason: reason, ProductID: productID},
			Headers:       map[string]string{"source": "fulfillment-service"},
			Traceparent:   tracing.Traceparent(ctx),
		})
	}
	err := p.deps.Orders.RecordFailure(ctx, order.Failure{
		OrderID:    req.OrderID,
		CustomerID: req.CustomerID,
		Outcome:    string(outcome),
		Reason:     reason,
		ProductID:  productID,
		FailedAt:   p.now().UTC(),
	}, msgs...)
	if err != nil {
		return domain.Result{}, p.abort(ctx, log, req.OrderID, applied, fmt.Errorf("record %s: %w", outcome, err))
	}

	p.compensate(ctx, log, applied, string(outcome))
	return domain.Result{Outcome: outcome, OrderID: req.OrderID, ProductID: productID, Reason: reason}, nil
}

// abort hands the request back for redelivery. The redelivery reserves
// stock again, so decrements are restored whatever the policy.
func (p *Processor) abort(ctx context.Context, log *slog.Logger, orderID string, applied []inventory.Line, cause error) error {
	p.restore(ctx, log, applied, "processing error")
	ctx, cancel := cleanupContext(ctx)
	defer cancel()
	if err := p.deps.Claims.Release(ctx, orderID); err != nil {
		log.Error("claim release failed", "err", err)
	}
	return cause
}

func (p *Processor) compensate(ctx context.Context, log *slog.Logger, applied []inventory.Line, why string) {
	if p.cfg.Compensation == domain.Accept {
		for _, l := range applied {
			log.Warn("stock decrement left in place", "why", why, "product_id", l.ProductID, "quantity", l.Quantity)
		}
		return
	}
	p.restore(ctx, log, applied, why)
}

func (p *Processor) restore(ctx context.Context, log *slog.Logger, applied []inventory.Line, why string) {
	if len(applied) == 0 {
		return
	}
	ctx, cancel := cleanupContext(ctx)
	defer cancel()
	if err := p.deps.Stock.Release(ctx, applied); err != nil {
		log.Error("stock restore failed", "why", why, "err", err)
		return
	}
	log.Info("stock restored", "why", why, "lines", len(applied))
}

// cleanupContext keeps ctx values and trace but survives its cancellation,
// so shutdown cannot interrupt a rollback halfway.
func cleanupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
}

func validate(req order.FulfillmentRequested) string {
	switch {
	case strings.TrimSpace(req.OrderID) == "":
		return "missing order id"
	case strings.TrimSpace(req.CustomerID) == "":
		return "missing customer id"
	case strings.TrimSpace(req.PaymentMethod) == "":
		return "missing payment method"
	case strings.TrimSpace(req.Address.PostalCode) == "":
		return "missing destination postal code"
	case len(req.Items) == 0:
		return "no items"
	}
	for _, item := range req.Items {
		if item.ProductID == "" || item.Quantity <= 0 || item.UnitPrice.IsNegative() {
			return fmt.Sprintf("invalid item %q", item.ProductID)
		}
	}
	return ""
}
