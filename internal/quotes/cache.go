package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/papertrade/papertrade/internal/models"
)

// Source supplies a current price for a symbol.
type Source interface {
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
}

// CachedSource wraps a Source with a Redis cache-aside layer. Entries are
// written with a TTL and never mutated, so concurrent readers need no
// coordination beyond the atomic get/set per key.
type CachedSource struct {
	source Source
	client *redis.Client
	ttl    time.Duration
}

// NewCachedSource creates a CachedSource with the given TTL.
func NewCachedSource(source Source, client *redis.Client, ttl time.Duration) *CachedSource {
	return &CachedSource{
		source: source,
		client: client,
		ttl:    ttl,
	}
}

func cacheKey(symbol string) string {
	return fmt.Sprintf("quote:%s", symbol)
}

// Quote returns the cached price for the symbol if one is fresh, fetching
// from the underlying source and caching the result otherwise. A cache
// write failure does not fail the quote.
func (c *CachedSource) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	key := cacheKey(symbol)

	// The cache is an optimization; any read failure falls through to the
	// source so a degraded Redis never blocks a close.
	if data, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var quote models.Quote
		if err := json.Unmarshal(data, &quote); err == nil {
			return &quote, nil
		}
	}

	quote, err := c.source.Quote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(quote); err == nil {
		c.client.Set(ctx, key, data, c.ttl)
	}
	return quote, nil
}
