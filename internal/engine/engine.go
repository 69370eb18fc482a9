// Package engine implements the order lifecycle: opening orders against a
// portfolio, evaluating stop-loss/take-profit auto-closes on price ticks,
// and manual closes at externally fetched prices. It is the sole owner of
// the math relating order state to portfolio cash.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/papertrade/papertrade/internal/models"
	"github.com/papertrade/papertrade/internal/store"
)

// QuoteSource supplies a current price for a symbol. Implementations must
// bound their own call latency; the engine treats any failure as a
// transient price-unavailable condition.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
}

// EventPublisher receives order lifecycle notifications. Publish failures
// are logged, never surfaced to the caller.
type EventPublisher interface {
	PublishOrderOpened(ctx context.Context, o *models.Order) error
	PublishOrderClosed(ctx context.Context, o *models.Order) error
}

// Engine coordinates order state and portfolio balances. All cash mutations
// run inside a store transaction holding a row lock on the portfolio, so
// concurrent operations on one portfolio are serialized while operations on
// different portfolios proceed in parallel.
type Engine struct {
	store  store.Store
	quotes QuoteSource
	events EventPublisher
	logger *slog.Logger
}

// New creates an Engine. events may be nil when no broker is configured.
func New(st store.Store, quotes QuoteSource, events EventPublisher, logger *slog.Logger) *Engine {
	return &Engine{
		store:  st,
		quotes: quotes,
		events: events,
		logger: logger,
	}
}

// OpenOrderParams carries the fields of an open-order request.
type OpenOrderParams struct {
	UserID      string
	PortfolioID string
	Symbol      string
	Direction   string
	Quantity    decimal.Decimal
	EntryPrice  decimal.Decimal
	StopLoss    decimal.Decimal
	TakeProfit  decimal.Decimal
}

func (p *OpenOrderParams) validate() error {
	switch {
	case p.UserID == "":
		return fmt.Errorf("%w: user id is required", ErrInvalidOrder)
	case p.PortfolioID == "":
		return fmt.Errorf("%w: portfolio id is required", ErrInvalidOrder)
	case p.Symbol == "":
		return fmt.Errorf("%w: symbol is required", ErrInvalidOrder)
	case p.Direction != models.DirectionLong && p.Direction != models.DirectionShort:
		return fmt.Errorf("%w: direction must be %s or %s", ErrInvalidOrder, models.DirectionLong, models.DirectionShort)
	case !p.Quantity.IsPositive():
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidOrder)
	case !p.EntryPrice.IsPositive():
		return fmt.Errorf("%w: entry price must be positive", ErrInvalidOrder)
	case !p.StopLoss.IsPositive():
		return fmt.Errorf("%w: stop loss must be positive", ErrInvalidOrder)
	case !p.TakeProfit.IsPositive():
		return fmt.Errorf("%w: take profit must be positive", ErrInvalidOrder)
	}
	return nil
}

// OpenOrder opens a simulated market order against a portfolio. Longs debit
// the notional from cash and require it to be covered; shorts credit the
// full sale proceeds with no margin check, modelling a pure PnL simulator.
// The portfolio update and the order insert commit atomically. Returns the
// created order and the portfolio's resulting cash.
func (e *Engine) OpenOrder(ctx context.Context, params OpenOrderParams) (*models.Order, decimal.Decimal, error) {
	if err := params.validate(); err != nil {
		return nil, decimal.Zero, err
	}

	order := &models.Order{
		UserID:      params.UserID,
		PortfolioID: params.PortfolioID,
		Symbol:      params.Symbol,
		Direction:   params.Direction,
		Quantity:    params.Quantity,
		EntryPrice:  params.EntryPrice,
		StopLoss:    params.StopLoss,
		TakeProfit:  params.TakeProfit,
	}

	var cashAfter decimal.Decimal
	err := e.store.InTx(ctx, func(tx store.Tx) error {
		portfolio, err := tx.PortfolioForUpdate(ctx, params.PortfolioID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrPortfolioNotFound
		}
		if err != nil {
			return err
		}

		notional := order.Notional()
		if params.Direction == models.DirectionLong {
			if portfolio.Cash.LessThan(notional) {
				return ErrInsufficientFunds
			}
			portfolio.Cash = portfolio.Cash.Sub(notional)
		} else {
			portfolio.Cash = portfolio.Cash.Add(notional)
		}

		if err := tx.UpdatePortfolioBalances(ctx, portfolio); err != nil {
			return err
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}

		cashAfter = portfolio.Cash
		return nil
	})
	if err != nil {
		return nil, decimal.Zero, err
	}

	e.logger.Info("order opened",
		"order_id", order.ID,
		"portfolio_id", order.PortfolioID,
		"symbol", order.Symbol,
		"direction", order.Direction,
		"notional", order.Notional(),
	)
	e.publishOpened(ctx, order)

	return order, cashAfter, nil
}

// EvaluateAutoClose checks every open order on the symbol against the
// current price and closes the ones whose stop-loss or take-profit level is
// crossed. A failure on one order is logged and does not stop the sweep.
// Returns the IDs of the orders that closed.
func (e *Engine) EvaluateAutoClose(ctx context.Context, symbol string, currentPrice decimal.Decimal) ([]string, error) {
	orders, err := e.store.OpenOrdersBySymbol(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load open orders for %s: %w", symbol, err)
	}

	var closed []string
	for _, order := range orders {
		reason := triggeredCloseReason(order, currentPrice)
		if reason == "" {
			continue
		}

		if err := e.closeAuto(ctx, order, currentPrice, reason); err != nil {
			e.logger.Error("auto-close failed",
				"order_id", order.ID,
				"symbol", symbol,
				"reason", reason,
				"error", err,
			)
			continue
		}
		closed = append(closed, order.ID)
	}
	return closed, nil
}

// triggeredCloseReason returns the close reason the price tick triggers, or
// "" when neither threshold is crossed. The stop-loss check runs after the
// take-profit check and overwrites it, so stop-loss wins when a single tick
// satisfies both. Policy choice carried over from the original system.
func triggeredCloseReason(o *models.Order, price decimal.Decimal) string {
	var reason string
	if o.Direction == models.DirectionLong {
		if price.GreaterThanOrEqual(o.TakeProfit) {
			reason = models.CloseReasonTakeProfit
		}
		if price.LessThanOrEqual(o.StopLoss) {
			reason = models.CloseReasonStopLoss
		}
	} else {
		if price.LessThanOrEqual(o.TakeProfit) {
			reason = models.CloseReasonTakeProfit
		}
		if price.GreaterThanOrEqual(o.StopLoss) {
			reason = models.CloseReasonStopLoss
		}
	}
	return reason
}

// tradeResult computes the realized PnL of closing the order at price.
func tradeResult(o *models.Order, price decimal.Decimal) decimal.Decimal {
	if o.Direction == models.DirectionLong {
		return price.Sub(o.EntryPrice).Mul(o.Quantity)
	}
	return o.EntryPrice.Sub(price).Mul(o.Quantity)
}

// closeAuto performs one threshold-triggered close. Auto-close credits the
// portfolio net worth with the position value plus the realized result;
// cash is settled by the manual close path only, per the original balance
// model.
func (e *Engine) closeAuto(ctx context.Context, order *models.Order, price decimal.Decimal, reason string) error {
	result := tradeResult(order, price)

	err := e.store.InTx(ctx, func(tx store.Tx) error {
		portfolio, err := tx.PortfolioForUpdate(ctx, order.PortfolioID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrPortfolioNotFound
		}
		if err != nil {
			return err
		}

		portfolio.NetWorth = portfolio.NetWorth.Add(price.Mul(order.Quantity)).Add(result)
		if err := tx.UpdatePortfolioBalances(ctx, portfolio); err != nil {
			return err
		}

		return e.markClosed(ctx, tx, order, price, result, reason)
	})
	if err != nil {
		return err
	}

	e.logger.Info("order auto-closed",
		"order_id", order.ID,
		"symbol", order.Symbol,
		"reason", reason,
		"exit_price", price,
		"result", result,
	)
	e.publishClosed(ctx, order)
	return nil
}

// CloseOrderManually closes an open order at the current market price
// fetched from the quote source. The order must exist, belong to userID,
// and still be open. Returns the closed order and the portfolio's resulting
// cash.
func (e *Engine) CloseOrderManually(ctx context.Context, userID, orderID string) (*models.Order, decimal.Decimal, error) {
	order, err := e.store.Order(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, decimal.Zero, ErrOrderNotFound
	}
	if err != nil {
		return nil, decimal.Zero, err
	}
	if order.UserID != userID {
		return nil, decimal.Zero, ErrOrderNotFound
	}
	if !order.IsOpen() {
		return nil, decimal.Zero, ErrOrderClosed
	}

	quote, err := e.quotes.Quote(ctx, order.Symbol)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	price := quote.Price
	result := tradeResult(order, price)
	value := price.Mul(order.Quantity)

	var cashAfter decimal.Decimal
	err = e.store.InTx(ctx, func(tx store.Tx) error {
		portfolio, err := tx.PortfolioForUpdate(ctx, order.PortfolioID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrPortfolioNotFound
		}
		if err != nil {
			return err
		}

		// Closing a long sells the position back to cash. Closing a short
		// buys the position back at the current price; the open-short credit
		// plus this debit nets to exactly the realized result.
		if order.Direction == models.DirectionLong {
			portfolio.Cash = portfolio.Cash.Add(value)
			portfolio.NetWorth = portfolio.NetWorth.Add(value).Add(result)
		} else {
			portfolio.Cash = portfolio.Cash.Sub(value)
			portfolio.NetWorth = portfolio.NetWorth.Sub(value.Sub(result))
		}

		if err := tx.UpdatePortfolioBalances(ctx, portfolio); err != nil {
			return err
		}
		if err := e.markClosed(ctx, tx, order, price, result, models.CloseReasonManual); err != nil {
			return err
		}

		cashAfter = portfolio.Cash
		return nil
	})
	if err != nil {
		return nil, decimal.Zero, err
	}

	e.logger.Info("order closed manually",
		"order_id", order.ID,
		"symbol", order.Symbol,
		"exit_price", price,
		"result", result,
	)
	e.publishClosed(ctx, order)

	return order, cashAfter, nil
}

// markClosed fills in the exit fields and applies the one-shot close. A
// concurrent close already committed shows up here as ErrOrderClosed and
// rolls the whole transaction back.
func (e *Engine) markClosed(ctx context.Context, tx store.Tx, order *models.Order, price, result decimal.Decimal, reason string) error {
	now := time.Now()
	order.ExitPrice = &price
	order.Result = &result
	order.CloseReason = &reason
	order.ClosedAt = &now

	if err := tx.CloseOrder(ctx, order); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrOrderClosed
		}
		return err
	}
	return nil
}

// RefreshNetWorth recomputes a portfolio's net worth as cash plus the
// mark-to-market value of its open positions and persists it. Long
// positions add price times quantity; shorts subtract the buy-back cost,
// whose proceeds already sit in cash.
func (e *Engine) RefreshNetWorth(ctx context.Context, portfolioID string) (decimal.Decimal, error) {
	orders, err := e.store.OpenOrdersByPortfolio(ctx, portfolioID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load open orders: %w", err)
	}

	prices := make(map[string]decimal.Decimal)
	for _, order := range orders {
		if _, ok := prices[order.Symbol]; ok {
			continue
		}
		quote, err := e.quotes.Quote(ctx, order.Symbol)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
		}
		prices[order.Symbol] = quote.Price
	}

	var netWorth decimal.Decimal
	err = e.store.InTx(ctx, func(tx store.Tx) error {
		portfolio, err := tx.PortfolioForUpdate(ctx, portfolioID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrPortfolioNotFound
		}
		if err != nil {
			return err
		}

		netWorth = portfolio.Cash
		for _, order := range orders {
			value := prices[order.Symbol].Mul(order.Quantity)
			if order.Direction == models.DirectionLong {
				netWorth = netWorth.Add(value)
			} else {
				netWorth = netWorth.Sub(value)
			}
		}

		portfolio.NetWorth = netWorth
		return tx.UpdatePortfolioBalances(ctx, portfolio)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return netWorth, nil
}

func (e *Engine) publishOpened(ctx context.Context, order *models.Order) {
	if e.events == nil {
		return
	}
	if err := e.events.PublishOrderOpened(ctx, order); err != nil {
		e.logger.Warn("failed to publish order opened event", "order_id", order.ID, "error", err)
	}
}

func (e *Engine) publishClosed(ctx context.Context, order *models.Order) {
	if e.events == nil {
		return
	}
	if err := e.events.PublishOrderClosed(ctx, order); err != nil {
		e.logger.Warn("failed to publish order closed event", "order_id", order.ID, "error", err)
	}
}
