// Package events publishes live class lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/COS301-SE-2025/Gym-Manager-sub000/internal/live"
	"github.com/segmentio/kafka-go"
)

// publishTimeout bounds how long a lifecycle call waits on the broker.
const publishTimeout = 5 * time.Second

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher implements live.Publisher. Messages are keyed by class id
// so one class's events stay ordered within a partition.
type KafkaPublisher struct {
	w     MessageWriter
	topic string
	log   *slog.Logger
}

var _ live.Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, log *slog.Logger) *KafkaPublisher {
	return NewPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		Async:        false,
	}, topic, log)
}

// NewPublisher wraps an existing writer. The writer must already target topic.
func NewPublisher(w MessageWriter, topic string, log *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{w: w, topic: topic, log: log}
}

// Publish writes one event.
func (p *KafkaPublisher) Publish(ctx context.Context, evt live.Event) error {
	msg, err := encode(evt)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing %s to %s: %w", evt.Type, p.topic, err)
	}
	p.log.Debug("event published", "type", evt.Type, "class_id", evt.ClassID, "id", evt.ID)
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

func encode(evt live.Event) (kafka.Message, error) {
	value, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encoding event %s: %w", evt.Type, err)
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatInt(evt.ClassID, 10)),
		Value: value,
		Time:  evt.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(evt.Type)},
			{Key: "event-id", Value: []byte(evt.ID)},
		},
	}, nil
}
