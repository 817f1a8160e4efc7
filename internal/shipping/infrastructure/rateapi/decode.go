package rateapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var errEmptyValue = errors.New("empty value")

type deliveryShape int

const (
	shapeNumber deliveryShape = iota + 1
	shapeString
	shapeObject
)

// DeliveryTime is the carrier's delivery estimate. The API sends it as a
// bare number, a numeric string or an object with a days field.
type DeliveryTime struct {
	Shape deliveryShape
	Days  int
}

func (d *DeliveryTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return fmt.Errorf("delivery_time: %w", errEmptyValue)
	}
	switch b[0] {
	case '{':
		var obj struct {
			Days json.RawMessage `json:"days"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return fmt.Errorf("delivery_time: %w", err)
		}
		var inner DeliveryTime
		if err := inner.UnmarshalJSON(obj.Days); err != nil {
			return err
		}
		if inner.Shape == shapeObject {
			return fmt.Errorf("delivery_time: nested object")
		}
		d.Shape, d.Days = shapeObject, inner.Days
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("delivery_time: %w", err)
		}
		days, err := parseDays(s)
		if err != nil {
			return err
		}
		d.Shape, d.Days = shapeString, days
	default:
		days, err := parseDays(string(b))
		if err != nil {
			return err
		}
		d.Shape, d.Days = shapeNumber, days
	}
	return nil
}

// Partial days round up.
func parseDays(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("delivery_time: %w", errEmptyValue)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("delivery_time: invalid value %q", s)
	}
	if f < 0 {
		return 0, fmt.Errorf("delivery_time: negative value %q", s)
	}
	return int(math.Ceil(f)), nil
}

// Price accepts 23.5 and "23.50" alike.
type Price struct {
	decimal.Decimal
}

func (p *Price) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return fmt.Errorf("price: %w", errEmptyValue)
	}
	raw := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return fmt.Errorf("price: %w", err)
		}
		raw = strings.TrimSpace(raw)
	}
	if raw == "" {
		return fmt.Errorf("price: %w", errEmptyValue)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("price: invalid value %q", raw)
	}
	if d.IsNegative() {
		return fmt.Errorf("price: negative value %q", raw)
	}
	p.Decimal = d
	return nil
}
