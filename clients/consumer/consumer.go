package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"mb-route-sync/models"

	"github.com/segmentio/kafka-go"
)

// KafkaConsumerInterface defines the kafka.Reader functionality used.
// This allows for mocking the kafka.Reader in tests.
type KafkaConsumerInterface interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads imposter sync events from a Kafka topic.
type Consumer struct {
	reader KafkaConsumerInterface
}

// kafkaConsumerCreator allows injecting a mock reader for testing.
type kafkaConsumerCreator func(config *kafka.ReaderConfig) (KafkaConsumerInterface, error)

var defaultKafkaConsumerCreator kafkaConsumerCreator = func(config *kafka.ReaderConfig) (KafkaConsumerInterface, error) {
	return kafka.NewReader(*config), nil
}

// NewConsumer joins groupID on topic. With fromBeginning set, a group
// without committed offsets starts at the oldest event instead of the
// newest.
func NewConsumer(bootstrapServers []string, topic, groupID string, fromBeginning bool) (*Consumer, error) {
	log.Printf("Setting up Kafka consumer for topic %s (group %s)", topic, groupID)

	startOffset := kafka.LastOffset
	if fromBeginning {
		startOffset = kafka.FirstOffset
	}
	config := kafka.ReaderConfig{
		Brokers:     bootstrapServers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
		MaxWait:     time.Second,
		StartOffset: startOffset,
	}

	r, err := defaultKafkaConsumerCreator(&config)
	if err != nil {
		log.Printf("ERROR: Failed to create Kafka consumer: %v", err)
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}
	return &Consumer{reader: r}, nil
}

// Next blocks until the next sync event arrives or ctx is done.
func (c *Consumer) Next(ctx context.Context) (models.SyncEvent, error) {
	msg, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			log.Printf("ERROR: Consumer error reading message: %v", err)
		}
		return models.SyncEvent{}, err
	}

	var event models.SyncEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return models.SyncEvent{}, fmt.Errorf("failed to unmarshal sync event at offset %d: %w", msg.Offset, err)
	}
	for _, h := range msg.Headers {
		if h.Key == "correlationId" && event.ID == "" {
			event.ID = string(h.Value)
		}
	}
	return event, nil
}

// Close closes the consumer connection
func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		log.Printf("ERROR: Error closing Kafka consumer: %v", err)
		return err
	}
	return nil
}
