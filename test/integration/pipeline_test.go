//go:build integration

package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartapp "github.com/dmehra2102/order-fulfillment/internal/cart/application"
	cartpg "github.com/dmehra2102/order-fulfillment/internal/cart/infrastructure/postgres"
	"github.com/dmehra2102/order-fulfillment/internal/fulfillment/application"
	fulfillment "github.com/dmehra2102/order-fulfillment/internal/fulfillment/domain"
	invapp "github.com/dmehra2102/order-fulfillment/internal/inventory/application"
	inventory "github.com/dmehra2102/order-fulfillment/internal/inventory/domain"
	invpg "github.com/dmehra2102/order-fulfillment/internal/inventory/infrastructure/postgres"
	order "github.com/dmehra2102/order-fulfillment/internal/order/domain"
	orderpg "github.com/dmehra2102/order-fulfillment/internal/order/infrastructure/postgres"
	payment "github.com/dmehra2102/order-fulfillment/internal/payment/domain"
	shipping "github.com/dmehra2102/order-fulfillment/internal/shipping/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/broker"
	"github.com/dmehra2102/order-fulfillment/pkg/idempotency"
	"github.com/dmehra2102/order-fulfillment/pkg/metrics"
	"github.com/dmehra2102/order-fulfillment/pkg/outbox"
)

var env *Env

func TestMain(m *testing.M) {
	ctx := context.Background()
	var err error
	env, err = Setup(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "container setup failed:", err)
		os.Exit(1)
	}
	if err := createTopics(env.KAddr[0], broker.TopicFulfillmentRequests, broker.TopicOrderEvents); err != nil {
		fmt.Fprintln(os.Stderr, "topic setup failed:", err)
		env.Teardown(ctx)
		os.Exit(1)
	}
	code := m.Run()
	env.Teardown(ctx)
	os.Exit(code)
}

func createTopics(addr string, topics ...string) error {
	conn, err := kafka.Dial("tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	cc, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return err
	}
	defer cc.Close()
	cfgs := make([]kafka.TopicConfig, 0, len(topics))
	for _, t := range topics {
		cfgs = append(cfgs, kafka.TopicConfig{Topic: t, NumPartitions: 1, ReplicationFactor: 1})
	}
	return cc.CreateTopics(cfgs...)
}

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedProduct(t *testing.T, repo *invpg.Repository, price string, stock int) string {
	t.Helper()
	id := "p-" + uuid.NewString()[:8]
	require.NoError(t, repo.Upsert(context.Background(), inventory.Product{
		ID: id, Name: id, Price: decimal.RequireFromString(price), Stock: stock,
	}))
	return id
}

func TestConditionalDecrementNeverOversells(t *testing.T) {
	ctx := context.Background()
	repo := invpg.NewRepository(quietLog(), env.Pool)
	id := seedProduct(t, repo, "10.00", 5)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, short int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.DecrementIfAvailable(ctx, id, 1)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
				return
			}
			var se *inventory.ShortfallError
			if assert.ErrorAs(t, err, &se) {
				short++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assert.Equal(t, 7, short)
	p, err := repo.Product(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)
}

func TestDecrementUnknownProduct(t *testing.T) {
	repo := invpg.NewRepository(quietLog(), env.Pool)
	err := repo.DecrementIfAvailable(context.Background(), "p-missing", 1)

	var se *inventory.ShortfallError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Missing)
}

func paidOrder(id string) order.Order {
	now := time.Now().UTC().Truncate(time.Millisecond)
	items := []order.OrderItem{
		{ProductID: "A", Quantity: 2, UnitPrice: decimal.RequireFromString("50.00")},
		{ProductID: "B", Quantity: 1, UnitPrice: decimal.RequireFromString("12.00")},
	}
	return order.NewOrder(id, "cust-1", items, order.Address{City: "São Paulo", State: "SP", PostalCode: "01310100"},
		order.Shipping{Cost: decimal.RequireFromString("15.00"), EstimatedDelivery: now.AddDate(0, 0, 7)},
		payment.Payment{
			Amount: decimal.RequireFromString("127.00"), Currency: "brl", Method: "pm_card_visa",
			Status: payment.StatusPaid, TransactionRef: "pi_123", CreatedAt: now,
		}, now)
}

func TestOrderRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := orderpg.NewRepository(quietLog(), env.Pool)
	id := uuid.NewString()

	_, err := repo.Get(ctx, id)
	require.ErrorIs(t, err, order.ErrOrderNotFound)

	require.NoError(t, repo.SaveWithOutbox(ctx, paidOrder(id)))

	settled, err := repo.Settled(ctx, id)
	require.NoError(t, err)
	assert.True(t, settled)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("127.00").Equal(got.TotalAmount))
	assert.Equal(t, order.StatusPaid, got.Status)
	assert.Equal(t, "pi_123", got.Payment.TransactionRef)
	assert.Equal(t, payment.StatusPaid, got.Payment.Status)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "A", got.Items[0].ProductID)

	err = repo.SaveWithOutbox(ctx, paidOrder(id))
	require.ErrorIs(t, err, order.ErrDuplicateOrder)
}

func TestFailureRecordSettlesOrder(t *testing.T) {
	ctx := context.Background()
	repo := orderpg.NewRepository(quietLog(), env.Pool)
	id := uuid.NewString()

	settled, err := repo.Settled(ctx, id)
	require.NoError(t, err)
	assert.False(t, settled)

	f := order.Failure{
		OrderID:    id,
		CustomerID: "cust-1",
		Outcome:    "stock_shortfall",
		Reason:     "insufficient stock",
		ProductID:  "B",
		FailedAt:   time.Now().UTC(),
	}
	msg := outbox.Message{
		AggregateType: "order",
		AggregateID:   id,
		Type:          order.EventOrderFailed,
		Topic:         broker.TopicOrderEvents,
		Payload:       order.OrderFailed{OrderID: id, CustomerID: "cust-1", Reason: f.Reason, ProductID: "B"},
	}
	require.NoError(t, repo.RecordFailure(ctx, f, msg))
	require.NoError(t, repo.RecordFailure(ctx, f, msg))

	settled, err = repo.Settled(ctx, id)
	require.NoError(t, err)
	assert.True(t, settled)

	var rows int
	require.NoError(t, env.Pool.QueryRow(ctx, `SELECT count(*) FROM outbox WHERE aggregate_id = $1`, id).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestOutboxRelayDeliversToTopic(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	log := quietLog()

	repo := orderpg.NewRepository(log, env.Pool)
	req := order.FulfillmentRequested{
		OrderID:       uuid.NewString(),
		CustomerID:    "cust-relay",
		Address:       order.Address{PostalCode: "01310100"},
		PaymentMethod: "pm_card_visa",
		Items:         []order.OrderItem{{ProductID: "A", Quantity: 1, UnitPrice: decimal.RequireFromString("50.00")}},
		RequestedAt:   time.Now().UTC(),
	}
	require.NoError(t, repo.RequestFulfillment(ctx, req))

	writer := broker.NewWriter(env.KAddr)
	defer writer.Close()
	relay := outbox.NewRelay(log, outbox.NewPGStore(log, env.Pool, 3), outbox.NewDispatcher(log, writer, broker.TopicOrderEvents), "it-relay")
	n, err := relay.Flush(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     env.KAddr,
		Topic:       broker.TopicFulfillmentRequests,
		Partition:   0,
		StartOffset: kafka.FirstOffset,
	})
	defer reader.Close()
	for {
		msg, err := reader.ReadMessage(ctx)
		require.NoError(t, err)
		if string(msg.Key) != req.OrderID {
			continue
		}
		assert.Equal(t, order.EventFulfillmentRequested, broker.HeaderValue(msg.Headers, broker.HeaderEventType))
		assert.Contains(t, string(msg.Value), `"customer_id":"cust-relay"`)
		return
	}
}

func TestClaimStore(t *testing.T) {
	ctx := context.Background()
	claims := idempotency.NewStore(env.RDB, time.Minute)
	id := uuid.NewString()

	first, err := claims.Claim(ctx, id)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := claims.Claim(ctx, id)
	require.NoError(t, err)
	assert.False(t, second)

	require.NoError(t, claims.Release(ctx, id))
	again, err := claims.Claim(ctx, id)
	require.NoError(t, err)
	assert.True(t, again)
}

type flatQuote struct{}

func (flatQuote) Quote(context.Context, string, string) shipping.Quote {
	return shipping.Quote{Cost: decimal.RequireFromString("15.00"), DeliveryDays: 7, Service: "heuristic"}
}

type approveAll struct{}

func (approveAll) Charge(_ context.Context, orderID string, amount decimal.Decimal, method string) (payment.Payment, error) {
	return payment.Payment{
		Amount: amount, Currency: "brl", Method: method, Status: payment.StatusPaid,
		TransactionRef: "pi_" + orderID[:8], CreatedAt: time.Now().UTC(),
	}, nil
}

func TestProcessorAgainstRealStores(t *testing.T) {
	ctx := context.Background()
	log := quietLog()

	stockRepo := invpg.NewRepository(log, env.Pool)
	a := seedProduct(t, stockRepo, "50.00", 3)
	b := seedProduct(t, stockRepo, "12.00", 1)

	stock := invapp.NewService(log, stockRepo)
	carts := cartapp.NewService(log, cartpg.NewRepository(log, env.Pool), stock)
	customer := "cust-" + uuid.NewString()[:8]
	_, err := carts.AddItem(ctx, customer, a, 2)
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, customer, b, 1)
	require.NoError(t, err)
	// added after checkout; survives fulfillment
	_, err = carts.AddItem(ctx, customer, b, 1)
	require.NoError(t, err)

	orders := orderpg.NewRepository(log, env.Pool)
	p := application.NewProcessor(log, application.Config{OriginPostalCode: "01001000"}, application.Deps{
		Orders:   orders,
		Stock:    stock,
		Shipping: flatQuote{},
		Payments: approveAll{},
		Carts:    carts,
		Claims:   idempotency.NewStore(env.RDB, time.Minute),
	}, metrics.NewNop())

	req := order.FulfillmentRequested{
		OrderID:       uuid.NewString(),
		CustomerID:    customer,
		Address:       order.Address{PostalCode: "20040002"},
		PaymentMethod: "pm_card_visa",
		Items: []order.OrderItem{
			{ProductID: a, Quantity: 2, UnitPrice: decimal.RequireFromString("50.00")},
			{ProductID: b, Quantity: 1, UnitPrice: decimal.RequireFromString("12.00")},
		},
		RequestedAt: time.Now().UTC(),
	}

	res, err := p.Handle(ctx, req)
	require.NoError(t, err)
	require.Equal(t, fulfillment.Succeeded, res.Outcome)

	saved, err := orders.Get(ctx, req.OrderID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("127.00").Equal(saved.TotalAmount))

	pa, err := stockRepo.Product(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 1, pa.Stock)

	c, err := carts.Get(ctx, customer)
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, b, c.Lines[0].ProductID)
	assert.Equal(t, 1, c.Lines[0].Quantity)

	again, err := p.Handle(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, fulfillment.Duplicate, again.Outcome)
	pa, err = stockRepo.Product(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 1, pa.Stock)
}
