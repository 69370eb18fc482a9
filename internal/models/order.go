package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order direction constants
const (
	DirectionLong  = "LONG"
	DirectionShort = "SHORT"
)

// Order status constants
const (
	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

// Close reason constants
const (
	CloseReasonStopLoss   = "STOP_LOSS"
	CloseReasonTakeProfit = "TAKE_PROFIT"
	CloseReasonManual     = "MANUAL"
)

// Order represents a single simulated market order with its risk thresholds.
// ExitPrice, Result, ClosedAt and CloseReason are all nil while the order is
// open and all set once it closes. An order closes exactly once.
type Order struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	PortfolioID string           `json:"portfolio_id"`
	Symbol      string           `json:"symbol"`
	Direction   string           `json:"direction"`
	Quantity    decimal.Decimal  `json:"quantity"`
	EntryPrice  decimal.Decimal  `json:"entry_price"`
	StopLoss    decimal.Decimal  `json:"stop_loss"`
	TakeProfit  decimal.Decimal  `json:"take_profit"`
	Status      string           `json:"status"`
	ExitPrice   *decimal.Decimal `json:"exit_price,omitempty"`
	Result      *decimal.Decimal `json:"result,omitempty"`
	CloseReason *string          `json:"close_reason,omitempty"`
	OpenedAt    time.Time        `json:"opened_at"`
	ClosedAt    *time.Time       `json:"closed_at,omitempty"`
}

// IsOpen reports whether the order is still open.
func (o *Order) IsOpen() bool {
	return o.Status == StatusOpen
}

// Notional returns entry price times quantity, the cash value of the
// position at open.
func (o *Order) Notional() decimal.Decimal {
	return o.EntryPrice.Mul(o.Quantity)
}
