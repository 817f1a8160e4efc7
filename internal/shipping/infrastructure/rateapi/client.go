// Package rateapi talks to the carrier's shipment calculation endpoint.
package rateapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmehra2102/order-fulfillment/internal/shipping/application"
)

const calculatePath = "/api/v2/me/shipment/calculate"

var ErrNoOptions = errors.New("carrier returned no usable rate option")

type Config struct {
	BaseURL   string
	Token     string
	Services  []string
	Timeout   time.Duration
	UserAgent string
}

type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "order-fulfillment"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

func (c *Client) Configured() bool {
	return c.cfg.Token != "" && c.cfg.BaseURL != ""
}

type postalCode struct {
	PostalCode string `json:"postal_code"`
}

type packageSpec struct {
	Height float64 `json:"height"`
	Width  float64 `json:"width"`
	Length float64 `json:"length"`
	Weight float64 `json:"weight"`
}

type options struct {
	InsuranceValue float64 `json:"insurance_value"`
	Receipt        bool    `json:"receipt"`
	OwnHand        bool    `json:"own_hand"`
}

type calculateRequest struct {
	From     postalCode  `json:"from"`
	To       postalCode  `json:"to"`
	Package  packageSpec `json:"package"`
	Options  options     `json:"options"`
	Services string      `json:"services,omitempty"`
}

type rateOption struct {
	ID           json.RawMessage `json:"id"`
	Name         string          `json:"name"`
	Price        *Price          `json:"price"`
	DeliveryTime *DeliveryTime   `json:"delivery_time"`
	Error        string          `json:"error"`
}

// Quote returns the first option the carrier could price.
func (c *Client) Quote(ctx context.Context, origin, destination string) (application.RateOption, error) {
	body, err := json.Marshal(calculateRequest{
		From:     postalCode{PostalCode: origin},
		To:       postalCode{PostalCode: destination},
		Package:  packageSpec{Height: 4, Width: 12, Length: 17, Weight: 0.3},
		Options:  options{},
		Services: strings.Join(c.cfg.Services, ","),
	})
	if err != nil {
		return application.RateOption{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+calculatePath, bytes.NewReader(body))
	if err != nil {
		return application.RateOption{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return application.RateOption{}, fmt.Errorf("rate api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return application.RateOption{}, fmt.Errorf("rate api: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var opts []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&opts); err != nil {
		return application.RateOption{}, fmt.Errorf("rate api: decode response: %w", err)
	}
	return firstUsable(opts)
}

// Options the carrier cannot serve come back with an error field and no
// price; those, and options that fail to decode, are skipped.
func firstUsable(raw []json.RawMessage) (application.RateOption, error) {
	var lastErr error
	for _, r := range raw {
		var o rateOption
		if err := json.Unmarshal(r, &o); err != nil {
			lastErr = err
			continue
		}
		if o.Error != "" || o.Price == nil || o.DeliveryTime == nil {
			continue
		}
		return application.RateOption{
			Service:      o.Name,
			Price:        o.Price.Decimal,
			DeliveryDays: o.DeliveryTime.Days,
		}, nil
	}
	if lastErr != nil {
		return application.RateOption{}, fmt.Errorf("%w: %v", ErrNoOptions, lastErr)
	}
	return application.RateOption{}, ErrNoOptions
}
