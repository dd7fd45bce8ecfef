package consumer

import (
	"context"
	"errors"
	"testing"

	"mb-route-sync/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockKafkaConsumer is a mock implementation of KafkaConsumerInterface for testing.
type MockKafkaConsumer struct {
	mock.Mock
}

func (m *MockKafkaConsumer) ReadMessage(ctx context.Context) (kafka.Message, error) {
	args := m.Called(ctx)
	msg := args.Get(0)
	if msg == nil {
		return kafka.Message{}, args.Error(1)
	}
	return msg.(kafka.Message), args.Error(1)
}

func (m *MockKafkaConsumer) Close() error {
	args := m.Called()
	return args.Error(0)
}

func withMockCreator(t *testing.T, mockKafka *MockKafkaConsumer, seen *kafka.ReaderConfig) {
	t.Helper()
	old := defaultKafkaConsumerCreator
	defaultKafkaConsumerCreator = func(config *kafka.ReaderConfig) (KafkaConsumerInterface, error) {
		if seen != nil {
			*seen = *config
		}
		return mockKafka, nil
	}
	t.Cleanup(func() { defaultKafkaConsumerCreator = old })
}

func TestNewConsumer(t *testing.T) {
	t.Run("Successfully creates consumer", func(t *testing.T) {
		var cfg kafka.ReaderConfig
		withMockCreator(t, new(MockKafkaConsumer), &cfg)

		c, err := NewConsumer([]string{"localhost:9092"}, "imposter-sync", "mbsync-events", true)
		require.NoError(t, err)
		assert.NotNil(t, c.reader)
		assert.Equal(t, "imposter-sync", cfg.Topic)
		assert.Equal(t, "mbsync-events", cfg.GroupID)
		assert.Equal(t, kafka.FirstOffset, cfg.StartOffset)

		_, err = NewConsumer([]string{"localhost:9092"}, "imposter-sync", "mbsync-events", false)
		require.NoError(t, err)
		assert.Equal(t, kafka.LastOffset, cfg.StartOffset)
	})

	t.Run("Returns error if Kafka consumer creation fails", func(t *testing.T) {
		old := defaultKafkaConsumerCreator
		defaultKafkaConsumerCreator = func(config *kafka.ReaderConfig) (KafkaConsumerInterface, error) {
			return nil, errors.New("failed to create Kafka consumer mock")
		}
		defer func() { defaultKafkaConsumerCreator = old }()

		c, err := NewConsumer([]string{"invalid"}, "imposter-sync", "g", false)
		assert.Error(t, err)
		assert.Nil(t, c)
		assert.Contains(t, err.Error(), "failed to create Kafka consumer mock")
	})
}

func TestNext(t *testing.T) {
	mockKafka := new(MockKafkaConsumer)
	withMockCreator(t, mockKafka, nil)
	c, err := NewConsumer([]string{"localhost:9092"}, "imposter-sync", "g", false)
	require.NoError(t, err)

	t.Run("Decodes event", func(t *testing.T) {
		mockKafka.On("ReadMessage", mock.Anything).Return(kafka.Message{
			Value: []byte(`{"id":"abc","operation":"replace","port":4545,"protocol":"http","stubCount":2}`),
		}, nil).Once()

		event, err := c.Next(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "abc", event.ID)
		assert.Equal(t, models.SyncReplace, event.Operation)
		assert.Equal(t, 4545, event.Port)
		assert.Equal(t, 2, event.StubCount)
	})

	t.Run("Falls back to correlationId header", func(t *testing.T) {
		mockKafka.On("ReadMessage", mock.Anything).Return(kafka.Message{
			Value:   []byte(`{"operation":"create","port":4545}`),
			Headers: []kafka.Header{{Key: "correlationId", Value: []byte("from-header")}},
		}, nil).Once()

		event, err := c.Next(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "from-header", event.ID)
	})

	t.Run("Rejects garbage", func(t *testing.T) {
		mockKafka.On("ReadMessage", mock.Anything).Return(kafka.Message{Value: []byte("not json"), Offset: 7}, nil).Once()

		_, err := c.Next(context.Background())
		assert.ErrorContains(t, err, "offset 7")
	})

	t.Run("Propagates read errors", func(t *testing.T) {
		mockKafka.On("ReadMessage", mock.Anything).Return(nil, context.Canceled).Once()

		_, err := c.Next(context.Background())
		assert.ErrorIs(t, err, context.Canceled)
	})

	mockKafka.AssertExpectations(t)
}

func TestClose(t *testing.T) {
	mockKafka := new(MockKafkaConsumer)
	withMockCreator(t, mockKafka, nil)
	c, err := NewConsumer([]string{"localhost:9092"}, "imposter-sync", "g", false)
	require.NoError(t, err)

	mockKafka.On("Close").Return(errors.New("already closed")).Once()
	assert.EqualError(t, c.Close(), "already closed")
	mockKafka.AssertExpectations(t)
}
