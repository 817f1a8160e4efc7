// Package broker builds kafka-go readers and writers with the settings every
// service in this repo shares.
package broker

import (
	"github.com/segmentio/kafka-go"
)

const (
	HeaderEventType   = "event_type"
	HeaderTraceparent = "traceparent"
)

// Topics used by the pipeline.
const (
	TopicFulfillmentRequests = "fulfillment.requests"
	TopicOrderEvents         = "order.events"
)

func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// NewReader returns a consumer-group reader. Offsets are committed
// explicitly by the caller after a message has been handled.
func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  group,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

func HeaderValue(h []kafka.Header, key string) string {
	for _, hh := range h {
		if hh.Key == key {
			return string(hh.Value)
		}
	}
	return ""
}
