package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/papertrade/papertrade/internal/models"
)

// Producer publishes order lifecycle events to Kafka.
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a new Kafka producer.
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishOrderOpened publishes an order opened event.
func (p *Producer) PublishOrderOpened(ctx context.Context, order *models.Order) error {
	return p.publish(ctx, order.Symbol, models.OrderEvent{
		EventType: models.EventOrderOpened,
		Order:     order,
		Symbol:    order.Symbol,
		Timestamp: time.Now(),
	})
}

// PublishOrderClosed publishes an order closed event.
func (p *Producer) PublishOrderClosed(ctx context.Context, order *models.Order) error {
	return p.publish(ctx, order.Symbol, models.OrderEvent{
		EventType: models.EventOrderClosed,
		Order:     order,
		Symbol:    order.Symbol,
		Timestamp: time.Now(),
	})
}

func (p *Producer) publish(ctx context.Context, key string, event models.OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
