package domain

import "fmt"

// PaymentError is the single failure the capture gateway reports, whether the
// processor declined the charge or could not be reached.
type PaymentError struct {
	Reason string
	Err    error
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("payment failed: %s", e.Reason)
}

func (e *PaymentError) Unwrap() error { return e.Err }
