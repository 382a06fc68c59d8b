// Package consumer provides Kafka consumer functionality for the raw
// monitoring events topic.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"telemon/internal/events"
)

const (
	readTimeout    = 10 * time.Second
	commitInterval = time.Second
)

// Consumer wraps a Kafka reader and provides a simple interface for
// consuming raw events published by application processes.
type Consumer struct {
	reader *kafka.Reader
	topic  string
}

// NewConsumer creates a new Kafka consumer with the specified brokers,
// topic, and group ID. The consumer is configured for at-least-once
// delivery semantics; duplicate redeliveries are harmless because the
// pipeline deduplicates by fingerprint anyway.
func NewConsumer(brokers, topic, groupID string) (*Consumer, error) {
	if brokers == "" {
		return nil, fmt.Errorf("brokers cannot be empty")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	if groupID == "" {
		return nil, fmt.Errorf("groupID cannot be empty")
	}

	brokerList := strings.Split(brokers, ",")
	for i := range brokerList {
		brokerList[i] = strings.TrimSpace(brokerList[i])
	}

	slog.Info("Initializing Kafka consumer",
		"brokers", brokerList,
		"topic", topic,
		"group_id", groupID,
	)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokerList,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        readTimeout,
		CommitInterval: commitInterval,
		StartOffset:    kafka.FirstOffset,
	})

	return &Consumer{
		reader: reader,
		topic:  topic,
	}, nil
}

// ReadEvent reads the next message and deserializes it as an Event.
// Returns an error if reading or deserialization fails.
func (c *Consumer) ReadEvent(ctx context.Context) (*events.Event, error) {
	msg, err := c.reader.ReadMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read message from Kafka: %w", err)
	}

	var ev events.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if !ev.Level.Valid() {
		ev.Level = events.ParseLevel(string(ev.Level))
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = msg.Time
	}
	return &ev, nil
}

// Close closes the reader and releases resources.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
