package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventOrderOpened = "ORDER_OPENED"
	EventOrderClosed = "ORDER_CLOSED"
	EventPriceTick   = "PRICE_TICK"
)

// OrderEvent represents a Kafka event for order lifecycle changes.
type OrderEvent struct {
	EventType string    `json:"event_type"`
	Order     *Order    `json:"order,omitempty"`
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
}

// PriceTickEvent represents a Kafka price update for a symbol. Each tick
// drives one auto-close evaluation pass.
type PriceTickEvent struct {
	EventType string          `json:"event_type"`
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}
