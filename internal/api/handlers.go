package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/papertrade/papertrade/internal/engine"
	"github.com/papertrade/papertrade/internal/models"
)

// Repository is the read/create surface the handlers need from the store.
type Repository interface {
	CreatePortfolio(ctx context.Context, p *models.Portfolio) error
	Portfolio(ctx context.Context, id string) (*models.Portfolio, error)
	PortfoliosByUser(ctx context.Context, userID string) ([]*models.Portfolio, error)
	OrdersByPortfolio(ctx context.Context, portfolioID string) ([]*models.Order, error)
}

// OrderEngine is the order lifecycle surface the handlers need.
type OrderEngine interface {
	OpenOrder(ctx context.Context, params engine.OpenOrderParams) (*models.Order, decimal.Decimal, error)
	EvaluateAutoClose(ctx context.Context, symbol string, price decimal.Decimal) ([]string, error)
	CloseOrderManually(ctx context.Context, userID, orderID string) (*models.Order, decimal.Decimal, error)
	RefreshNetWorth(ctx context.Context, portfolioID string) (decimal.Decimal, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	db     Repository
	engine OrderEngine
	logger *slog.Logger
}

// NewHandler creates a new Handler
func NewHandler(db Repository, eng OrderEngine, logger *slog.Logger) *Handler {
	return &Handler{
		db:     db,
		engine: eng,
		logger: logger,
	}
}

// CreatePortfolio handles POST /portfolios
func (h *Handler) CreatePortfolio(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  string           `json:"user_id"`
		Name    string           `json:"name"`
		Balance *decimal.Decimal `json:"balance,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.Name == "" {
		respondError(w, http.StatusBadRequest, "user_id and name are required")
		return
	}

	balance := models.DefaultStartingBalance
	if req.Balance != nil {
		if req.Balance.IsNegative() {
			respondError(w, http.StatusBadRequest, "balance must not be negative")
			return
		}
		balance = *req.Balance
	}

	portfolio := &models.Portfolio{
		UserID:   req.UserID,
		Name:     req.Name,
		Cash:     balance,
		NetWorth: balance,
	}
	if err := h.db.CreatePortfolio(r.Context(), portfolio); err != nil {
		h.serverError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, portfolio)
}

// GetPortfolio handles GET /portfolios/{id}
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	portfolio, err := h.db.Portfolio(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusNotFound, "portfolio not found")
		return
	}
	respondJSON(w, http.StatusOK, portfolio)
}

// ListPortfolios handles GET /portfolios/user/{userId}
func (h *Handler) ListPortfolios(w http.ResponseWriter, r *http.Request) {
	portfolios, err := h.db.PortfoliosByUser(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		h.serverError(w, err)
		return
	}
	if portfolios == nil {
		portfolios = []*models.Portfolio{}
	}
	respondJSON(w, http.StatusOK, portfolios)
}

// RefreshPortfolio handles POST /portfolios/{id}/refresh
func (h *Handler) RefreshPortfolio(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	netWorth, err := h.engine.RefreshNetWorth(r.Context(), id)
	if err != nil {
		h.engineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio_id": id,
		"net_worth":    netWorth,
	})
}

// OpenOrder handles POST /orders
func (h *Handler) OpenOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      string          `json:"user_id"`
		PortfolioID string          `json:"portfolio_id"`
		Symbol      string          `json:"symbol"`
		Direction   string          `json:"direction"`
		Quantity    decimal.Decimal `json:"quantity"`
		EntryPrice  decimal.Decimal `json:"entry_price"`
		StopLoss    decimal.Decimal `json:"stop_loss"`
		TakeProfit  decimal.Decimal `json:"take_profit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, cash, err := h.engine.OpenOrder(r.Context(), engine.OpenOrderParams{
		UserID:      req.UserID,
		PortfolioID: req.PortfolioID,
		Symbol:      req.Symbol,
		Direction:   req.Direction,
		Quantity:    req.Quantity,
		EntryPrice:  req.EntryPrice,
		StopLoss:    req.StopLoss,
		TakeProfit:  req.TakeProfit,
	})
	if err != nil {
		h.engineError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"order":        order,
		"updated_cash": cash,
	})
}

// ListOrders handles GET /orders/portfolio/{portfolioId}
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.db.OrdersByPortfolio(r.Context(), mux.Vars(r)["portfolioId"])
	if err != nil {
		h.serverError(w, err)
		return
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	respondJSON(w, http.StatusOK, orders)
}

// AutoClose handles POST /orders/auto-close
func (h *Handler) AutoClose(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol       string          `json:"symbol"`
		CurrentPrice decimal.Decimal `json:"current_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Symbol == "" || !req.CurrentPrice.IsPositive() {
		respondError(w, http.StatusBadRequest, "symbol and a positive current_price are required")
		return
	}

	closed, err := h.engine.EvaluateAutoClose(r.Context(), req.Symbol, req.CurrentPrice)
	if err != nil {
		h.serverError(w, err)
		return
	}
	if closed == nil {
		closed = []string{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"closed_order_ids": closed,
		"count":            len(closed),
	})
}

// CloseOrder handles POST /orders/close
func (h *Handler) CloseOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  string `json:"user_id"`
		OrderID string `json:"order_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.OrderID == "" {
		respondError(w, http.StatusBadRequest, "user_id and order_id are required")
		return
	}

	order, cash, err := h.engine.CloseOrderManually(r.Context(), req.UserID, req.OrderID)
	if err != nil {
		h.engineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"order":        order,
		"updated_cash": cash,
	})
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// engineError maps the engine's typed errors to HTTP statuses.
func (h *Handler) engineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidOrder):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrPortfolioNotFound), errors.Is(err, engine.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrInsufficientFunds), errors.Is(err, engine.ErrOrderClosed):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrPriceUnavailable):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.serverError(w, err)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, err error) {
	h.logger.Error("request failed", "error", err)
	respondError(w, http.StatusInternalServerError, "internal server error")
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
