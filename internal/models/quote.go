package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a point-in-time price for a symbol as reported by the market data
// provider.
type Quote struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	AsOf   time.Time       `json:"as_of"`
}
