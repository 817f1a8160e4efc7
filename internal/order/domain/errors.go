package domain

import "errors"

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidCheckout = errors.New("invalid checkout request")
	ErrOrderNotFound   = errors.New("order not found")
	ErrDuplicateOrder  = errors.New("order already exists")
)
