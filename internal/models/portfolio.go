package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultStartingBalance is the cash a portfolio starts with unless the
// caller supplies an initial balance.
var DefaultStartingBalance = decimal.NewFromInt(10000)

// Portfolio represents a user's virtual trading account. Cash is the liquid
// balance available to trade; NetWorth is cash plus the valuation of open
// positions, refreshed outside the order hot path.
type Portfolio struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Name      string          `json:"name"`
	Cash      decimal.Decimal `json:"cash"`
	NetWorth  decimal.Decimal `json:"net_worth"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
