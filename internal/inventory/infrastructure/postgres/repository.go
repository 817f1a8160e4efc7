package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/order-fulfillment/internal/inventory/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{
		log:  log,
		pool: pool,
	}
}

func (r *Repository) Product(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := r.pool.QueryRow(ctx, `SELECT id, name, price, stock FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.Price, &p.Stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

// DecrementIfAvailable is a single conditional UPDATE, so two concurrent
// fulfillments can never take the same unit.
func (r *Repository) DecrementIfAvailable(ctx context.Context, productID string, qty int) error {
	ct, err := r.pool.Exec(ctx, `UPDATE products SET stock = stock - $2, updated_at = now() WHERE id = $1 AND stock >= $2`, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	var available int
	err = r.pool.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1`, productID).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return &domain.ShortfallError{ProductID: productID, Requested: qty, Missing: true}
	}
	if err != nil {
		return err
	}
	return &domain.ShortfallError{ProductID: productID, Requested: qty, Available: available}
}

func (r *Repository) Increment(ctx context.Context, productID string, qty int) error {
	ct, err := r.pool.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1`, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// Upsert seeds or replaces a catalog row. The catalog itself is managed
// elsewhere; this exists for fixtures and local setup.
func (r *Repository) Upsert(ctx context.Context, p domain.Product) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO products (id, name, price, stock) VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET name=$2, price=$3, stock=$4, updated_at=now()`,
		p.ID, p.Name, p.Price, p.Stock)
	return err
}
