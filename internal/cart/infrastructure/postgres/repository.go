package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/order-fulfillment/internal/cart/domain"
)

const uniqueViolation = "23505"

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) ByCustomer(ctx context.Context, customerID string) (*domain.Cart, error) {
	c := &domain.Cart{}
	err := r.pool.QueryRow(ctx, `SELECT id, customer_id, updated_at FROM carts WHERE customer_id=$1`, customerID).
		Scan(&c.ID, &c.CustomerID, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCartNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT product_id, quantity, unit_price FROM cart_lines WHERE cart_id=$1 ORDER BY position`, c.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var l domain.Line
		if err := rows.Scan(&l.ProductID, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, err
		}
		c.Lines = append(c.Lines, l)
	}
	return c, rows.Err()
}

// Save replaces the stored lines with the cart's current lines.
func (r *Repository) Save(ctx context.Context, c *domain.Cart) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO carts (id, customer_id, updated_at) VALUES ($1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET updated_at=$3`, c.ID, c.CustomerID, c.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrCartExists
	}
	if err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id=$1`, c.ID); err != nil {
		return err
	}

	if len(c.Lines) > 0 {
		batch := &pgx.Batch{}
		for i, l := range c.Lines {
			batch.Queue(`INSERT INTO cart_lines (cart_id, product_id, position, quantity, unit_price) VALUES ($1,$2,$3,$4,$5)`,
				c.ID, l.ProductID, i, l.Quantity, l.UnitPrice)
		}
		if err = tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
