package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/order-fulfillment/internal/notification/domain"
)

type Contacts struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewContacts(log *slog.Logger, pool *pgxpool.Pool) *Contacts {
	return &Contacts{log: log, pool: pool}
}

func (c *Contacts) Contact(ctx context.Context, customerID string) (domain.Contact, error) {
	var name string
	var email *string
	err := c.pool.QueryRow(ctx, `SELECT name, email FROM customers WHERE id=$1`, customerID).Scan(&name, &email)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Contact{}, domain.ErrContactNotFound
	}
	if err != nil {
		return domain.Contact{}, err
	}
	if email == nil || *email == "" {
		return domain.Contact{}, domain.ErrContactNotFound
	}
	return domain.Contact{CustomerID: customerID, Name: name, Email: *email}, nil
}
