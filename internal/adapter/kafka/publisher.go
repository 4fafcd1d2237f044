// Package kafka publishes fired alerts to the notification bus consumed by
// downstream delivery services.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/quake-alert-service/internal/domain"
)

// Publisher produces alert payloads to a Kafka topic. It implements
// alert.Notifier.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the alert topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Notify serializes and publishes one alert payload. The message key is the
// event id so redeliveries of the same event land on one partition.
func (p *Publisher) Notify(ctx context.Context, payload domain.AlertPayload) error {
	msg, err := serializeToMessage(payload)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals an AlertPayload into a Kafka message.
func serializeToMessage(payload domain.AlertPayload) (kafkago.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert payload: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(payload.Event.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "delivery_id", Value: []byte(payload.DeliveryID)},
			{Key: "fired_at", Value: []byte(payload.FiredAt.Format(time.RFC3339))},
		},
	}, nil
}
