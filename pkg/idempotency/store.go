package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store records which fulfillment requests a worker has taken on. A claim is
// a SETNX on a per-order key, so concurrent or repeated deliveries of the
// same request race for one key and only one of them proceeds.
type Store struct {
	rdb    redis.UniversalClient
	ttl    time.Duration
	prefix string
}

func NewStore(rdb redis.UniversalClient, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl, prefix: "idem:fulfillment"}
}

func (s *Store) Key(orderID string) string {
	return fmt.Sprintf("%s:%s", s.prefix, orderID)
}

// Claim reports whether the caller now owns orderID.
func (s *Store) Claim(ctx context.Context, orderID string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, s.Key(orderID), time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Release drops a claim so a redelivered request can be processed again.
func (s *Store) Release(ctx context.Context, orderID string) error {
	return s.rdb.Del(ctx, s.Key(orderID)).Err()
}
