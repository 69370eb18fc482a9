package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/papertrade/papertrade/internal/models"
	"github.com/papertrade/papertrade/internal/store"
)

const orderColumns = `
	id, user_id, portfolio_id, symbol, direction, quantity, entry_price,
	stop_loss, take_profit, status, exit_price, result, close_reason,
	opened_at, closed_at
`

// CreateOrder inserts a new open order inside the transaction.
func (t *Tx) CreateOrder(ctx context.Context, o *models.Order) error {
	query := `
		INSERT INTO orders (
			user_id, portfolio_id, symbol, direction, quantity,
			entry_price, stop_loss, take_profit, status, opened_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	now := time.Now()
	err := t.tx.QueryRowContext(ctx, query,
		o.UserID, o.PortfolioID, o.Symbol, o.Direction, o.Quantity,
		o.EntryPrice, o.StopLoss, o.TakeProfit, models.StatusOpen, now,
	).Scan(&o.ID)

	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	o.Status = models.StatusOpen
	o.OpenedAt = now
	return nil
}

// CloseOrder marks an open order closed with the exit fields taken from o.
// The status guard makes the transition one-shot: a second close matches no
// row and returns store.ErrNotFound.
func (t *Tx) CloseOrder(ctx context.Context, o *models.Order) error {
	query := `
		UPDATE orders SET
			status = $2, exit_price = $3, result = $4, close_reason = $5, closed_at = $6
		WHERE id = $1 AND status = $7
	`
	result, err := t.tx.ExecContext(ctx, query,
		o.ID, models.StatusClosed, o.ExitPrice, o.Result, o.CloseReason, o.ClosedAt,
		models.StatusOpen,
	)
	if err != nil {
		return fmt.Errorf("failed to close order: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return store.ErrNotFound
	}
	o.Status = models.StatusClosed
	return nil
}

// Order retrieves a single order by ID.
func (db *DB) Order(ctx context.Context, id string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(db.conn.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return o, nil
}

// OpenOrdersBySymbol returns all open orders for a symbol, oldest first so
// the auto-close sweep is deterministic.
func (db *DB) OpenOrdersBySymbol(ctx context.Context, symbol string) ([]*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE symbol = $1 AND status = $2
		ORDER BY opened_at
	`
	return db.queryOrders(ctx, query, symbol, models.StatusOpen)
}

// OpenOrdersByPortfolio returns all open orders in a portfolio.
func (db *DB) OpenOrdersByPortfolio(ctx context.Context, portfolioID string) ([]*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE portfolio_id = $1 AND status = $2
		ORDER BY opened_at
	`
	return db.queryOrders(ctx, query, portfolioID, models.StatusOpen)
}

// OrdersByPortfolio returns every order in a portfolio, newest first.
func (db *DB) OrdersByPortfolio(ctx context.Context, portfolioID string) ([]*models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE portfolio_id = $1
		ORDER BY opened_at DESC
	`
	return db.queryOrders(ctx, query, portfolioID)
}

// OpenSymbols returns the distinct symbols that currently have open orders.
func (db *DB) OpenSymbols(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT symbol FROM orders WHERE status = $1 ORDER BY symbol`

	rows, err := db.conn.QueryContext(ctx, query, models.StatusOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to query open symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

func (db *DB) queryOrders(ctx context.Context, query string, args ...interface{}) ([]*models.Order, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	var exitPrice, result sql.NullString
	var closeReason sql.NullString
	var closedAt sql.NullTime

	err := row.Scan(
		&o.ID, &o.UserID, &o.PortfolioID, &o.Symbol, &o.Direction, &o.Quantity,
		&o.EntryPrice, &o.StopLoss, &o.TakeProfit, &o.Status,
		&exitPrice, &result, &closeReason, &o.OpenedAt, &closedAt,
	)
	if err != nil {
		return nil, err
	}

	if exitPrice.Valid {
		d, err := decimal.NewFromString(exitPrice.String)
		if err != nil {
			return nil, fmt.Errorf("invalid exit price %q: %w", exitPrice.String, err)
		}
		o.ExitPrice = &d
	}
	if result.Valid {
		d, err := decimal.NewFromString(result.String)
		if err != nil {
			return nil, fmt.Errorf("invalid result %q: %w", result.String, err)
		}
		o.Result = &d
	}
	if closeReason.Valid {
		o.CloseReason = &closeReason.String
	}
	if closedAt.Valid {
		o.ClosedAt = &closedAt.Time
	}

	return &o, nil
}
