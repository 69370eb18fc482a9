package engine

import "errors"

// Typed errors raised by the engine. The API layer maps these to HTTP
// statuses with errors.Is.
var (
	// ErrInvalidOrder indicates missing, zero, or negative order parameters.
	ErrInvalidOrder = errors.New("invalid order parameters")

	// ErrInsufficientFunds indicates the portfolio cash does not cover the
	// notional of a long open.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrPortfolioNotFound indicates the referenced portfolio does not exist.
	ErrPortfolioNotFound = errors.New("portfolio not found")

	// ErrOrderNotFound indicates the order does not exist or does not belong
	// to the requesting user.
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderClosed indicates the order was already closed.
	ErrOrderClosed = errors.New("order already closed")

	// ErrPriceUnavailable indicates no current price could be obtained for
	// the order's symbol. Transient; callers may retry.
	ErrPriceUnavailable = errors.New("price unavailable")
)
