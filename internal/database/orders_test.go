package database

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papertrade/papertrade/internal/models"
	"github.com/papertrade/papertrade/internal/store"
)

func TestOrdersRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)
	ctx := context.Background()

	createPortfolio := func(t *testing.T) string {
		t.Helper()
		p := &models.Portfolio{
			UserID:   "user-1",
			Name:     "default",
			Cash:     models.DefaultStartingBalance,
			NetWorth: models.DefaultStartingBalance,
		}
		require.NoError(t, testDB.CreatePortfolio(ctx, p))
		return p.ID
	}

	newOrder := func(portfolioID, symbol string) *models.Order {
		return &models.Order{
			UserID:      "user-1",
			PortfolioID: portfolioID,
			Symbol:      symbol,
			Direction:   models.DirectionLong,
			Quantity:    decimal.NewFromInt(10),
			EntryPrice:  decimal.NewFromInt(150),
			StopLoss:    decimal.NewFromInt(140),
			TakeProfit:  decimal.NewFromInt(170),
		}
	}

	createOrder := func(t *testing.T, o *models.Order) {
		t.Helper()
		err := testDB.InTx(ctx, func(tx store.Tx) error {
			return tx.CreateOrder(ctx, o)
		})
		require.NoError(t, err)
	}

	closeOrder := func(t *testing.T, o *models.Order) error {
		t.Helper()
		price := decimal.NewFromInt(175)
		result := decimal.NewFromInt(250)
		reason := models.CloseReasonTakeProfit
		now := time.Now()
		o.ExitPrice = &price
		o.Result = &result
		o.CloseReason = &reason
		o.ClosedAt = &now
		return testDB.InTx(ctx, func(tx store.Tx) error {
			return tx.CloseOrder(ctx, o)
		})
	}

	t.Run("CreateOrder opens the order with generated fields", func(t *testing.T) {
		testDB.TruncateAll(t)
		portfolioID := createPortfolio(t)

		o := newOrder(portfolioID, "AAPL")
		createOrder(t, o)

		assert.NotEmpty(t, o.ID)
		assert.Equal(t, models.StatusOpen, o.Status)
		assert.False(t, o.OpenedAt.IsZero())

		got, err := testDB.Order(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, "AAPL", got.Symbol)
		assert.Equal(t, models.StatusOpen, got.Status)
		assert.Nil(t, got.ExitPrice)
		assert.Nil(t, got.Result)
		assert.Nil(t, got.CloseReason)
		assert.Nil(t, got.ClosedAt)
		assert.True(t, decimal.NewFromInt(10).Equal(got.Quantity))
	})

	t.Run("Order reports missing record", func(t *testing.T) {
		_, err := testDB.Order(ctx, "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("CloseOrder fills in the exit fields", func(t *testing.T) {
		testDB.TruncateAll(t)
		portfolioID := createPortfolio(t)

		o := newOrder(portfolioID, "AAPL")
		createOrder(t, o)
		require.NoError(t, closeOrder(t, o))

		got, err := testDB.Order(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusClosed, got.Status)
		require.NotNil(t, got.ExitPrice)
		assert.True(t, decimal.NewFromInt(175).Equal(*got.ExitPrice))
		require.NotNil(t, got.Result)
		assert.True(t, decimal.NewFromInt(250).Equal(*got.Result))
		require.NotNil(t, got.CloseReason)
		assert.Equal(t, models.CloseReasonTakeProfit, *got.CloseReason)
		assert.NotNil(t, got.ClosedAt)
	})

	t.Run("CloseOrder is one-shot", func(t *testing.T) {
		testDB.TruncateAll(t)
		portfolioID := createPortfolio(t)

		o := newOrder(portfolioID, "AAPL")
		createOrder(t, o)
		require.NoError(t, closeOrder(t, o))

		err := closeOrder(t, o)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("OpenOrdersBySymbol excludes closed orders and other symbols", func(t *testing.T) {
		testDB.TruncateAll(t)
		portfolioID := createPortfolio(t)

		open := newOrder(portfolioID, "AAPL")
		createOrder(t, open)
		closed := newOrder(portfolioID, "AAPL")
		createOrder(t, closed)
		require.NoError(t, closeOrder(t, closed))
		other := newOrder(portfolioID, "TSLA")
		createOrder(t, other)

		orders, err := testDB.OpenOrdersBySymbol(ctx, "AAPL")
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, open.ID, orders[0].ID)
	})

	t.Run("OrdersByPortfolio returns newest first", func(t *testing.T) {
		testDB.TruncateAll(t)
		portfolioID := createPortfolio(t)

		first := newOrder(portfolioID, "AAPL")
		createOrder(t, first)
		second := newOrder(portfolioID, "TSLA")
		createOrder(t, second)

		orders, err := testDB.OrdersByPortfolio(ctx, portfolioID)
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, second.ID, orders[0].ID)
		assert.Equal(t, first.ID, orders[1].ID)
	})

	t.Run("OpenSymbols lists distinct symbols with open orders", func(t *testing.T) {
		testDB.TruncateAll(t)
		portfolioID := createPortfolio(t)

		createOrder(t, newOrder(portfolioID, "AAPL"))
		createOrder(t, newOrder(portfolioID, "AAPL"))
		createOrder(t, newOrder(portfolioID, "TSLA"))
		done := newOrder(portfolioID, "NVDA")
		createOrder(t, done)
		require.NoError(t, closeOrder(t, done))

		symbols, err := testDB.OpenSymbols(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"AAPL", "TSLA"}, symbols)
	})
}
