package domain

import "errors"

var ErrContactNotFound = errors.New("contact not found")

type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindFailure      Kind = "failure"
)

type Contact struct {
	CustomerID string
	Name       string
	Email      string
}

type Notification struct {
	Kind    Kind
	OrderID string
	To      Contact
	Subject string
	Body    string
}
