package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/order-fulfillment/internal/payment/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/metrics"
)

type Service struct {
	log      *slog.Logger
	gateway  Gateway
	currency string
	metrics  *metrics.Pipeline
	tracer   trace.Tracer
	now      func() time.Time
}

func NewService(log *slog.Logger, gateway Gateway, currency string, m *metrics.Pipeline) *Service {
	return &Service{
		log:      log,
		gateway:  gateway,
		currency: strings.ToLower(currency),
		metrics:  m,
		tracer:   otel.Tracer("payment-service"),
		now:      time.Now,
	}
}

// Charge captures amount for orderID and returns the payment record to be
// stored with the order. The order id is the gateway idempotency key.
func (s *Service) Charge(ctx context.Context, orderID string, amount decimal.Decimal, method string) (domain.Payment, error) {
	ctx, span := s.tracer.Start(ctx, "CapturePayment", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("payment.amount", amount.StringFixed(2)),
	))
	defer span.End()

	txID, err := s.gateway.Capture(ctx, CaptureRequest{
		IdempotencyKey: orderID,
		Amount:         amount,
		Currency:       s.currency,
		PaymentMethod:  method,
	})
	if err != nil {
		var pe *domain.PaymentError
		if !errors.As(err, &pe) {
			pe = &domain.PaymentError{Reason: err.Error(), Err: err}
		}
		s.metrics.Payments.WithLabelValues("failed").Inc()
		span.RecordError(pe)
		span.SetStatus(codes.Error, pe.Reason)
		s.log.Warn("payment capture failed", "order_id", orderID, "reason", pe.Reason)
		return domain.Payment{}, pe
	}

	s.metrics.Payments.WithLabelValues("succeeded").Inc()
	s.log.Info("payment captured", "order_id", orderID, "transaction_ref", txID)
	return domain.Payment{
		Amount:         amount,
		Currency:       s.currency,
		Method:         method,
		Status:         domain.StatusPaid,
		TransactionRef: txID,
		CreatedAt:      s.now().UTC(),
	}, nil
}
