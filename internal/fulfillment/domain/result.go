package domain

import (
	order "github.com/dmehra2102/order-fulfillment/internal/order/domain"
)

type Outcome string

const (
	Succeeded      Outcome = "succeeded"
	StockShortfall Outcome = "stock_shortfall"
	PaymentFailed  Outcome = "payment_failed"
	// Duplicate means the request was already handled, or is being handled
	// by another worker. Nothing was done.
	Duplicate Outcome = "duplicate"
	// Rejected means the request itself was malformed.
	Rejected Outcome = "rejected"
)

// Result is what happened to one fulfillment request. ProductID is set for
// StockShortfall, Reason for PaymentFailed and Rejected, Order for Succeeded.
type Result struct {
	Outcome   Outcome
	OrderID   string
	ProductID string
	Reason    string
	Order     *order.Order
}

type CompensationPolicy string

const (
	// Compensate restores stock taken by a request that did not complete.
	Compensate CompensationPolicy = "compensate"
	// Accept leaves those decrements in place and only logs them.
	Accept CompensationPolicy = "accept"
)

func ParseCompensationPolicy(s string) (CompensationPolicy, bool) {
	switch CompensationPolicy(s) {
	case Compensate, "":
		return Compensate, true
	case Accept:
		return Accept, true
	}
	return "", false
}
