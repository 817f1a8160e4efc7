//go:build integration

// Package integration runs the repositories, outbox relay and claim store
// against real Postgres, Kafka and Redis containers.
package integration

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/dmehra2102/order-fulfillment/pkg/database"
)

type Env struct {
	PG    *postgres.PostgresContainer
	Kafka *kafka.KafkaContainer
	Redis *tcredis.RedisContainer

	Pool  *pgxpool.Pool
	RDB   *redis.Client
	KAddr []string
}

func Setup(ctx context.Context) (env *Env, err error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	env = &Env{}
	defer func() {
		if err != nil {
			env.Teardown(context.Background())
			env = nil
		}
	}()

	env.PG, err = postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("orderflow"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return env, err
	}
	pgURL, err := env.PG.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return env, err
	}
	if env.Pool, err = pgxpool.New(context.Background(), pgURL); err != nil {
		return env, err
	}
	if err = database.Migrate(ctx, env.Pool); err != nil {
		return env, err
	}

	env.Kafka, err = kafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		kafka.WithClusterID("order-fulfillment-test"),
	)
	if err != nil {
		return env, err
	}
	if env.KAddr, err = env.Kafka.Brokers(ctx); err != nil {
		return env, err
	}

	env.Redis, err = tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return env, err
	}
	redisURL, err := env.Redis.ConnectionString(ctx)
	if err != nil {
		return env, err
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return env, err
	}
	env.RDB = redis.NewClient(opts)
	return env, nil
}

func (e *Env) Teardown(context.Context) {
	if e.RDB != nil {
		_ = e.RDB.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	var running []testcontainers.Container
	if e.Redis != nil {
		running = append(running, e.Redis)
	}
	if e.Kafka != nil {
		running = append(running, e.Kafka)
	}
	if e.PG != nil {
		running = append(running, e.PG)
	}
	for _, c := range running {
		_ = testcontainers.TerminateContainer(c)
	}
}
