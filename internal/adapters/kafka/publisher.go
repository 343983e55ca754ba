package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"staybook/internal/domain"
)

// Publisher writes reservation events to the outbound topic. It is only ever
// invoked after the booking transaction commits; delivery is best-effort and
// the caller drops failures.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, ev domain.ReservationEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal reservation event: %w", err)
	}
	msg := kafka.Message{
		// key by booking so redeliveries of the same reservation stay ordered
		Key:   []byte(strconv.FormatInt(ev.BookingID, 10)),
		Value: data,
		Time:  ev.Timestamp,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write reservation event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error { return p.writer.Close() }
