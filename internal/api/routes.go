package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Portfolio routes
	api.HandleFunc("/portfolios", handler.CreatePortfolio).Methods("POST")
	api.HandleFunc("/portfolios/user/{userId}", handler.ListPortfolios).Methods("GET")
	api.HandleFunc("/portfolios/{id}", handler.GetPortfolio).Methods("GET")
	api.HandleFunc("/portfolios/{id}/refresh", handler.RefreshPortfolio).Methods("POST")

	// Order routes
	api.HandleFunc("/orders", handler.OpenOrder).Methods("POST")
	api.HandleFunc("/orders/portfolio/{portfolioId}", handler.ListOrders).Methods("GET")
	api.HandleFunc("/orders/auto-close", handler.AutoClose).Methods("POST")
	api.HandleFunc("/orders/close", handler.CloseOrder).Methods("POST")

	return r
}
