package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/papertrade/papertrade/internal/models"
)

// Sweeper is the subset of the engine the consumer needs.
type Sweeper interface {
	EvaluateAutoClose(ctx context.Context, symbol string, price decimal.Decimal) ([]string, error)
}

// Consumer reads price tick events from Kafka and drives the auto-close
// evaluation for each tick. A failed tick is logged and skipped; the next
// tick for the symbol retries naturally.
type Consumer struct {
	reader *kafka.Reader
	engine Sweeper
	logger *slog.Logger
}

// NewConsumer creates a Kafka consumer for price tick events.
func NewConsumer(brokers []string, topic, groupID string, engine Sweeper, logger *slog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader: reader,
		engine: engine,
		logger: logger,
	}
}

// Start consumes messages until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("starting kafka consumer", "topic", c.reader.Config().Topic)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("kafka consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				c.logger.Error("error reading message", "error", err)
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.logger.Error("error processing message", "error", err)
			}
		}
	}
}

// processMessage handles a single price tick message.
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.PriceTickEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal price tick: %w", err)
	}

	if event.EventType != models.EventPriceTick {
		c.logger.Debug("ignoring event type", "event_type", event.EventType)
		return nil
	}
	if event.Symbol == "" || !event.Price.IsPositive() {
		return fmt.Errorf("invalid price tick: symbol=%q price=%s", event.Symbol, event.Price)
	}

	closed, err := c.engine.EvaluateAutoClose(ctx, event.Symbol, event.Price)
	if err != nil {
		return fmt.Errorf("auto-close evaluation failed for %s: %w", event.Symbol, err)
	}
	if len(closed) > 0 {
		c.logger.Info("auto-closed orders from price tick",
			"symbol", event.Symbol,
			"price", event.Price,
			"count", len(closed),
		)
	}
	return nil
}

// Close closes the Kafka consumer.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
