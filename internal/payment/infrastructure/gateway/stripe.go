// Package gateway captures payments through Stripe PaymentIntents.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/dmehra2102/order-fulfillment/internal/payment/application"
	"github.com/dmehra2102/order-fulfillment/internal/payment/domain"
)

type Config struct {
	SecretKey string
	// APIURL overrides the Stripe endpoint (stripe-mock, tests).
	APIURL  string
	Timeout time.Duration
}

type Stripe struct {
	api *client.API
}

// NewStripe builds a client with SDK network retries switched off; a failed
// capture is retried by message redelivery, under the same idempotency key.
func NewStripe(cfg Config) (*Stripe, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	bc := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if cfg.APIURL != "" {
		bc.URL = stripe.String(cfg.APIURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, bc)
	return &Stripe{api: client.New(cfg.SecretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})}, nil
}

func (s *Stripe) Capture(ctx context.Context, req application.CaptureRequest) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(domain.MinorUnits(req.Amount)),
		Currency:      stripe.String(req.Currency),
		PaymentMethod: stripe.String(req.PaymentMethod),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	params.AddMetadata("order_id", req.IdempotencyKey)

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.Msg != "" {
			return "", &domain.PaymentError{Reason: se.Msg, Err: err}
		}
		return "", &domain.PaymentError{Reason: err.Error(), Err: err}
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		reason := fmt.Sprintf("payment intent %s status %s", pi.ID, pi.Status)
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			reason = pi.LastPaymentError.Msg
		}
		return "", &domain.PaymentError{Reason: reason}
	}
	return pi.ID, nil
}
