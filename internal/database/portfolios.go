package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/papertrade/papertrade/internal/models"
	"github.com/papertrade/papertrade/internal/store"
)

// CreatePortfolio inserts a new portfolio and fills in the generated fields.
func (db *DB) CreatePortfolio(ctx context.Context, p *models.Portfolio) error {
	query := `
		INSERT INTO portfolios (user_id, name, cash, net_worth, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id
	`
	now := time.Now()
	err := db.conn.QueryRowContext(ctx, query,
		p.UserID, p.Name, p.Cash, p.NetWorth, now,
	).Scan(&p.ID)

	if err != nil {
		return fmt.Errorf("failed to create portfolio: %w", err)
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// Portfolio retrieves a portfolio by ID.
func (db *DB) Portfolio(ctx context.Context, id string) (*models.Portfolio, error) {
	query := `
		SELECT id, user_id, name, cash, net_worth, created_at, updated_at
		FROM portfolios
		WHERE id = $1
	`
	return scanPortfolio(db.conn.QueryRowContext(ctx, query, id))
}

// PortfoliosByUser retrieves all portfolios owned by a user, oldest first.
func (db *DB) PortfoliosByUser(ctx context.Context, userID string) ([]*models.Portfolio, error) {
	query := `
		SELECT id, user_id, name, cash, net_worth, created_at, updated_at
		FROM portfolios
		WHERE user_id = $1
		ORDER BY created_at
	`
	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	var portfolios []*models.Portfolio
	for rows.Next() {
		var p models.Portfolio
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Cash, &p.NetWorth, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, &p)
	}
	return portfolios, rows.Err()
}

// PortfolioForUpdate loads a portfolio inside the transaction and locks its
// row until the transaction ends. Concurrent cash mutations on the same
// portfolio queue behind this lock.
func (t *Tx) PortfolioForUpdate(ctx context.Context, id string) (*models.Portfolio, error) {
	query := `
		SELECT id, user_id, name, cash, net_worth, created_at, updated_at
		FROM portfolios
		WHERE id = $1
		FOR UPDATE
	`
	return scanPortfolio(t.tx.QueryRowContext(ctx, query, id))
}

// UpdatePortfolioBalances persists the cash and net worth of a portfolio.
func (t *Tx) UpdatePortfolioBalances(ctx context.Context, p *models.Portfolio) error {
	query := `
		UPDATE portfolios SET cash = $2, net_worth = $3, updated_at = $4
		WHERE id = $1
	`
	p.UpdatedAt = time.Now()
	result, err := t.tx.ExecContext(ctx, query, p.ID, p.Cash, p.NetWorth, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update portfolio balances: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPortfolio(row rowScanner) (*models.Portfolio, error) {
	var p models.Portfolio
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Cash, &p.NetWorth, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}
	return &p, nil
}
