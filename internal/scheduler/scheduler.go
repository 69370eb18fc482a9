// Package scheduler runs the periodic auto-close sweep: every interval it
// fetches a fresh price for each symbol with open orders and hands it to
// the engine for threshold evaluation.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/papertrade/papertrade/internal/models"
)

// SymbolLister returns the distinct symbols that have open orders.
type SymbolLister interface {
	OpenSymbols(ctx context.Context) ([]string, error)
}

// QuoteSource supplies a current price for a symbol.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
}

// Sweeper evaluates auto-close conditions for a symbol at a price.
type Sweeper interface {
	EvaluateAutoClose(ctx context.Context, symbol string, price decimal.Decimal) ([]string, error)
}

// Scheduler drives periodic auto-close sweeps.
type Scheduler struct {
	symbols      SymbolLister
	quotes       QuoteSource
	engine       Sweeper
	interval     time.Duration
	quoteTimeout time.Duration
	logger       *slog.Logger
}

// New creates a Scheduler.
func New(symbols SymbolLister, quotes QuoteSource, engine Sweeper, interval, quoteTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		symbols:      symbols,
		quotes:       quotes,
		engine:       engine,
		interval:     interval,
		quoteTimeout: quoteTimeout,
		logger:       logger,
	}
}

// Run sweeps on every tick until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("starting auto-close scheduler", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("auto-close scheduler shutting down")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one evaluation pass over all symbols with open orders. A
// failure on one symbol skips that symbol for this tick; the next tick
// retries it.
func (s *Scheduler) Sweep(ctx context.Context) {
	symbols, err := s.symbols.OpenSymbols(ctx)
	if err != nil {
		s.logger.Error("failed to list open symbols", "error", err)
		return
	}

	for _, symbol := range symbols {
		quoteCtx, cancel := context.WithTimeout(ctx, s.quoteTimeout)
		quote, err := s.quotes.Quote(quoteCtx, symbol)
		cancel()
		if err != nil {
			s.logger.Warn("skipping symbol, price unavailable", "symbol", symbol, "error", err)
			continue
		}

		closed, err := s.engine.EvaluateAutoClose(ctx, symbol, quote.Price)
		if err != nil {
			s.logger.Error("auto-close evaluation failed", "symbol", symbol, "error", err)
			continue
		}
		if len(closed) > 0 {
			s.logger.Info("auto-closed orders", "symbol", symbol, "price", quote.Price, "count", len(closed))
		}
	}
}
