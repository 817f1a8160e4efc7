package application

import (
	"context"

	"github.com/dmehra2102/order-fulfillment/internal/notification/domain"
)

type ContactDirectory interface {
	// Contact returns domain.ErrContactNotFound when the customer has no
	// address on file.
	Contact(ctx context.Context, customerID string) (domain.Contact, error)
}

type Sender interface {
	Send(ctx context.Context, n domain.Notification) error
}
