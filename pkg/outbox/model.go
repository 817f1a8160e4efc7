package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

type Event struct {
	ID            int64
	AggregateType string
	AggregateID   string
	Type          string
	Topic         string
	Payload       []byte
	Headers       map[string]string
	Traceparent   string
	CreatedAt     time.Time
	Status        Status
	RelayID       string
	RetryCount    int
	LastError     *string
}

// Message is an event about to be written to the outbox.
type Message struct {
	AggregateType string
	AggregateID   string
	Type          string
	Topic         string
	Payload       any
	Headers       map[string]string
	Traceparent   string
}

// Execer is satisfied by *pgxpool.Pool and pgx.Tx, so a message can be
// written inside the same transaction as the state change it announces.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func Insert(ctx context.Context, db Execer, m Message) error {
	payload, err := json.Marshal(m.Payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", m.Type, err)
	}
	headers := m.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	_, err = db.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, topic, payload, headers, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,'pending')`,
		m.AggregateType, m.AggregateID, m.Type, m.Topic, payload, headers, m.Traceparent)
	return err
}
