package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/order-fulfillment/internal/order/domain"
	payment "github.com/dmehra2102/order-fulfillment/internal/payment/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/broker"
	"github.com/dmehra2102/order-fulfillment/pkg/outbox"
	"github.com/dmehra2102/order-fulfillment/pkg/tracing"
)

const aggregateType = "order"

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// SaveWithOutbox writes the whole aggregate (order, items, payment, shipment)
// and the given events in one transaction. An order id that already exists
// yields domain.ErrDuplicateOrder and nothing is written.
func (r *Repository) SaveWithOutbox(ctx context.Context, o domain.Order, msgs ...outbox.Message) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `INSERT INTO orders (id, customer_id, status, total_amount, ship_street, ship_city, ship_state, ship_postal_code, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO NOTHING`,
		o.ID, o.CustomerID, string(o.Status), o.TotalAmount,
		o.ShippingAddress.Street, o.ShippingAddress.City, o.ShippingAddress.State, o.ShippingAddress.PostalCode,
		o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrDuplicateOrder
	}

	batch := &pgx.Batch{}
	for _, item := range o.Items {
		batch.Queue(`INSERT INTO order_items (order_id, product_id, quantity, unit_price) VALUES ($1,$2,$3,$4)`,
			o.ID, item.ProductID, item.Quantity, item.UnitPrice)
	}
	p := o.Payment
	batch.Queue(`INSERT INTO payments (order_id, amount, currency, method, status, transaction_ref, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		o.ID, p.Amount, p.Currency, p.Method, string(p.Status), p.TransactionRef, p.CreatedAt)
	s := o.Shipping
	batch.Queue(`INSERT INTO shipments (order_id, cost, estimated_delivery, live_quote, carrier, tracking_code) VALUES ($1,$2,$3,$4,$5,$6)`,
		o.ID, s.Cost, s.EstimatedDelivery, s.LiveQuote, s.Carrier, s.TrackingCode)
	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	for _, m := range msgs {
		if err := outbox.Insert(ctx, tx, m); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	var o domain.Order
	var status, payStatus string
	err := r.pool.QueryRow(ctx, `
		SELECT o.id, o.customer_id, o.status, o.total_amount,
		       o.ship_street, o.ship_city, o.ship_state, o.ship_postal_code, o.created_at, o.updated_at,
		       p.amount, p.currency, p.method, p.status, p.transaction_ref, p.created_at,
		       s.cost, s.estimated_delivery, s.live_quote, s.carrier, s.tracking_code
		FROM orders o
		JOIN payments p ON p.order_id = o.id
		JOIN shipments s ON s.order_id = o.id
		WHERE o.id = $1`, id).
		Scan(&o.ID, &o.CustomerID, &status, &o.TotalAmount,
			&o.ShippingAddress.Street, &o.ShippingAddress.City, &o.ShippingAddress.State, &o.ShippingAddress.PostalCode,
			&o.CreatedAt, &o.UpdatedAt,
			&o.Payment.Amount, &o.Payment.Currency, &o.Payment.Method, &payStatus, &o.Payment.TransactionRef, &o.Payment.CreatedAt,
			&o.Shipping.Cost, &o.Shipping.EstimatedDelivery, &o.Shipping.LiveQuote, &o.Shipping.Carrier, &o.Shipping.TrackingCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.OrderStatus(status)
	o.Payment.Status = payment.Status(payStatus)

	rows, err := r.pool.Query(ctx, `SELECT product_id, quantity, unit_price FROM order_items WHERE order_id=$1 ORDER BY product_id`, id)
	if err != nil {
		return domain.Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return domain.Order{}, err
		}
		o.Items = append(o.Items, item)
	}
	return o, rows.Err()
}

// Settled reports whether the order id already reached an end state: the
// order was persisted or its failure was recorded.
func (r *Repository) Settled(ctx context.Context, id string) (bool, error) {
	var settled bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id=$1)
		OR EXISTS (SELECT 1 FROM fulfillment_failures WHERE order_id=$1)`, id).Scan(&settled)
	return settled, err
}

// RecordFailure stores f and the given events in one transaction. A failure
// already recorded for the id is kept and the events are not written again.
func (r *Repository) RecordFailure(ctx context.Context, f domain.Failure, msgs ...outbox.Message) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `INSERT INTO fulfillment_failures (order_id, customer_id, outcome, reason, product_id, failed_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (order_id) DO NOTHING`,
		f.OrderID, f.CustomerID, f.Outcome, f.Reason, f.ProductID, f.FailedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		r.log.Info("fulfillment failure already recorded", "order_id", f.OrderID)
		return nil
	}
	for _, m := range msgs {
		if err := outbox.Insert(ctx, tx, m); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// RequestFulfillment queues the request on the outbox; the relay delivers it
// to the fulfillment topic keyed by order id.
func (r *Repository) RequestFulfillment(ctx context.Context, req domain.FulfillmentRequested) error {
	return r.Publish(ctx, outbox.Message{
		AggregateType: aggregateType,
		AggregateID:   req.OrderID,
		Type:          domain.EventFulfillmentRequested,
		Topic:         broker.TopicFulfillmentRequests,
		Payload:       req,
		Headers:       map[string]string{"source": "order-service"},
		Traceparent:   tracing.Traceparent(ctx),
	})
}

// Publish writes a standalone event to the outbox.
func (r *Repository) Publish(ctx context.Context, m outbox.Message) error {
	return outbox.Insert(ctx, r.pool, m)
}
