package kafka

import (
	"context"
	"encoding/json"
	"log"

	"github.com/segmentio/kafka-go"

	"github.com/example/storefront/internal/domain/order"
)

// EventHandler processes one decoded order lifecycle event.
type EventHandler func(ctx context.Context, event order.Event) error

// Consumer reads order lifecycle events from a Kafka topic as part of a
// consumer group. Decoding the envelope happens here so handlers only
// ever see well-formed events.
type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader}
}

// Consume reads events until ctx is cancelled. A message that fails to
// decode or to handle is logged and skipped; the order store, not the
// topic, is the source of truth, so nothing is retried here.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("[Events] Failed to read message: %v", err)
				continue
			}

			event, err := decodeEvent(msg.Value)
			if err != nil {
				log.Printf("[Events] Dropping undecodable message with key %q: %v", msg.Key, err)
				continue
			}

			if err := handler(ctx, event); err != nil {
				log.Printf("[Events] Failed to handle %s event for %s: %v", event.Type, event.OrderNumber, err)
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func decodeEvent(value []byte) (order.Event, error) {
	var event order.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return order.Event{}, err
	}
	return event, nil
}
