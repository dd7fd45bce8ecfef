package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"mb-route-sync/models"

	"github.com/segmentio/kafka-go"
)

// KafkaProducerInterface defines the kafka.Writer functionality used.
// This allows for mocking the kafka.Writer in tests.
type KafkaProducerInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes imposter sync events to a Kafka topic.
type Producer struct {
	writer KafkaProducerInterface
	topic  string
}

// kafkaProducerCreator allows injecting a mock writer for testing.
type kafkaProducerCreator func(writer *kafka.Writer) (KafkaProducerInterface, error)

var defaultKafkaProducerCreator kafkaProducerCreator = func(writer *kafka.Writer) (KafkaProducerInterface, error) {
	return writer, nil
}

// NewProducer initializes a Kafka producer for the given topic.
func NewProducer(bootstrapServers []string, topic string) (*Producer, error) {
	log.Printf("Setting up Kafka producer for topic %s at %s", topic, strings.Join(bootstrapServers, ","))
	w := &kafka.Writer{
		Addr:         kafka.TCP(bootstrapServers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	writer, err := defaultKafkaProducerCreator(w)
	if err != nil {
		log.Printf("ERROR: Failed to create Kafka producer: %v", err)
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return &Producer{writer: writer, topic: topic}, nil
}

// Publish writes one sync event, keyed by imposter port so events for the
// same imposter stay ordered within a partition.
func (p *Producer) Publish(ctx context.Context, event models.SyncEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal sync event: %w", err)
	}
	msg := kafka.Message{
		Key:     []byte(strconv.Itoa(event.Port)),
		Value:   value,
		Headers: []kafka.Header{{Key: "correlationId", Value: []byte(event.ID)}},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to produce sync event to topic %s: %w", p.topic, err)
	}
	log.Printf("Delivered %s event for port %d to topic %s", event.Operation, event.Port, p.topic)
	return nil
}

// Close closes the producer connection.
func (p *Producer) Close() error {
	log.Println("Closing Kafka producer.")
	if err := p.writer.Close(); err != nil {
		log.Printf("ERROR: Error closing Kafka producer: %v", err)
		return err
	}
	return nil
}
