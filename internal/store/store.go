// Package store defines the storage interfaces the order lifecycle engine
// depends on, decoupling it from the Postgres implementation.
package store

import (
	"context"
	"errors"

	"github.com/papertrade/papertrade/internal/models"
)

// ErrNotFound is returned when a requested record does not exist, or when a
// guarded write (portfolio lock, order close) matches no row.
var ErrNotFound = errors.New("record not found")

// Tx exposes the mutating operations available inside a single database
// transaction. The portfolio row is locked for the duration of the
// transaction, so same-portfolio cash mutations are serialized.
type Tx interface {
	// PortfolioForUpdate loads a portfolio and acquires a row lock on it.
	PortfolioForUpdate(ctx context.Context, id string) (*models.Portfolio, error)

	// UpdatePortfolioBalances persists the cash and net worth of a portfolio.
	UpdatePortfolioBalances(ctx context.Context, p *models.Portfolio) error

	// CreateOrder inserts a new open order and fills in its generated fields.
	CreateOrder(ctx context.Context, o *models.Order) error

	// CloseOrder marks an open order closed with the exit fields taken from o.
	// It returns ErrNotFound if the order does not exist or is already
	// closed, so a close can never be applied twice.
	CloseOrder(ctx context.Context, o *models.Order) error
}

// Store is the durable record of portfolios and orders.
type Store interface {
	// InTx runs fn inside a single database transaction, committing on nil
	// and rolling back on error.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// Order retrieves a single order by ID.
	Order(ctx context.Context, id string) (*models.Order, error)

	// OpenOrdersBySymbol returns all open orders for a symbol.
	OpenOrdersBySymbol(ctx context.Context, symbol string) ([]*models.Order, error)

	// OpenOrdersByPortfolio returns all open orders in a portfolio.
	OpenOrdersByPortfolio(ctx context.Context, portfolioID string) ([]*models.Order, error)

	// OpenSymbols returns the distinct symbols that have at least one open
	// order, for the periodic auto-close sweep.
	OpenSymbols(ctx context.Context) ([]string, error)
}
