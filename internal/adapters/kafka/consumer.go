package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"staybook/internal/domain"
)

// Consumer reads reservation events for the notifier worker. The queue is
// at-least-once: handlers must tolerate duplicates.
type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			Topic:   topic,
			GroupID: groupID,
		}),
	}
}

// Fetch blocks until the next event (or ctx cancellation). Call Commit with
// the returned message once the event has been handled.
func (c *Consumer) Fetch(ctx context.Context) (domain.ReservationEvent, kafka.Message, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return domain.ReservationEvent{}, kafka.Message{}, err
	}
	var ev domain.ReservationEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return domain.ReservationEvent{}, msg, fmt.Errorf("decode reservation event: %w", err)
	}
	return ev, msg, nil
}

func (c *Consumer) Commit(ctx context.Context, msg kafka.Message) error {
	return c.reader.CommitMessages(ctx, msg)
}

func (c *Consumer) Close() error { return c.reader.Close() }
