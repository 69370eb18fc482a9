// Package quotes fetches current market prices and caches them with a
// short TTL to bound call volume against the provider.
package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/papertrade/papertrade/internal/models"
)

// ErrNoQuote is returned when the provider has no price for a symbol.
var ErrNoQuote = errors.New("no quote for symbol")

// Provider is an HTTP client for an FMP-style quote endpoint
// (GET {baseURL}/quote/{symbol}?apikey=...). Calls are bounded by the
// configured timeout and retried with exponential backoff.
type Provider struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	maxAttempts int
}

// NewProvider creates a Provider. timeout bounds each HTTP call.
func NewProvider(baseURL, apiKey string, timeout time.Duration, maxAttempts int) *Provider {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Provider{
		baseURL:     baseURL,
		apiKey:      apiKey,
		client:      &http.Client{Timeout: timeout},
		maxAttempts: maxAttempts,
	}
}

// providerQuote mirrors the provider's wire format.
type providerQuote struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// Quote fetches the current price for a symbol.
func (p *Provider) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	var quote *models.Quote
	err := retry(ctx, p.maxAttempts, 200*time.Millisecond, func() error {
		var err error
		quote, err = p.fetch(ctx, symbol)
		return err
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

func (p *Provider) fetch(ctx context.Context, symbol string) (*models.Quote, error) {
	u := fmt.Sprintf("%s/quote/%s?apikey=%s", p.baseURL, url.PathEscape(symbol), url.QueryEscape(p.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build quote request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote request returned status %d", resp.StatusCode)
	}

	var payload []providerQuote
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}
	if len(payload) == 0 || !payload[0].Price.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrNoQuote, symbol)
	}

	return &models.Quote{
		Symbol: symbol,
		Price:  payload[0].Price,
		AsOf:   time.Now(),
	}, nil
}

// retry calls fn up to maxAttempts times with exponential backoff starting
// at baseDelay, respecting context cancellation between attempts.
func retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var err error
	delay := baseDelay

	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		// A missing symbol will not appear on retry.
		if errors.Is(err, ErrNoQuote) {
			return err
		}

		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}
	return err
}
