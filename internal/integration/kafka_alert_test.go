//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	kafkaadapter "github.com/couchcryptid/quake-alert-service/internal/adapter/kafka"
	"github.com/couchcryptid/quake-alert-service/internal/domain"
)

const testAlertTopic = "quake-alerts-test"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka container and returns its broker addr.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.6.1")
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close() //nolint:errcheck

	require.NoError(t, conn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestAlertPublishRoundTrip verifies the Publisher against real Kafka: one
// fired alert lands on the topic with the event id key, the delivery headers,
// and a payload that deserializes back to the original.
func TestAlertPublishRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testAlertTopic)

	dist := 42.5
	payload := domain.AlertPayload{
		DeliveryID: "delivery-1",
		FiredAt:    time.Date(2024, time.May, 12, 3, 14, 10, 0, time.UTC),
		DistanceKm: &dist,
		Event: domain.Event{
			ID:        "36778801",
			Time:      time.Date(2024, time.May, 12, 3, 14, 5, 0, time.UTC),
			Magnitude: 3.2,
			MagType:   "ML",
			Place:     "5 km SW Napoli",
			Geo:       domain.Coordinate{Lat: 40.8518, Lon: 14.2681},
			HasGeo:    true,
			DepthKm:   7.3,
			Kind:      "earthquake",
		},
	}

	publisher := kafkaadapter.NewPublisher([]string{broker}, testAlertTopic, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	require.NoError(t, publisher.Notify(ctx, payload))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testAlertTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from alert topic")

	assert.Equal(t, payload.Event.ID, string(msg.Key))

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "delivery-1", headers["delivery_id"])
	firedAt, err := time.Parse(time.RFC3339, headers["fired_at"])
	require.NoError(t, err, "fired_at header should be RFC3339")
	assert.True(t, firedAt.Equal(payload.FiredAt))

	var got domain.AlertPayload
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, payload.DeliveryID, got.DeliveryID)
	assert.Equal(t, payload.Event.ID, got.Event.ID)
	assert.Equal(t, payload.Event.Magnitude, got.Event.Magnitude)
	require.NotNil(t, got.DistanceKm)
	assert.Equal(t, dist, *got.DistanceKm)
}

// TestAlertPublishFanout checks that distinct deliveries of the same event
// keep the same key but carry distinct delivery ids.
func TestAlertPublishFanout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testAlertTopic)

	publisher := kafkaadapter.NewPublisher([]string{broker}, testAlertTopic, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	base := domain.AlertPayload{
		FiredAt: time.Now().UTC(),
		Event:   domain.Event{ID: "evt-1", Time: time.Now().UTC(), Magnitude: 2.8, Place: "Campi Flegrei"},
	}
	for i := 0; i < 3; i++ {
		p := base
		p.DeliveryID = fmt.Sprintf("delivery-%d", i)
		require.NoError(t, publisher.Notify(ctx, p))
	}

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testAlertTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err)

		assert.Equal(t, "evt-1", string(msg.Key))
		for _, h := range msg.Headers {
			if h.Key == "delivery_id" {
				seen[string(h.Value)] = true
			}
		}
	}
	assert.Len(t, seen, 3, "each delivery should carry a distinct id")
}
