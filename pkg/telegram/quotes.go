package telegram

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tradeai-hq/companion/pkg/cache"
)

// Quote is a cached price for one instrument symbol.
type Quote struct {
	Symbol string
	Price  float64
	AsOf   time.Time
}

func (q Quote) String() string {
	return fmt.Sprintf("%s: %.2f (as of %s)", q.Symbol, q.Price, q.AsOf.UTC().Format(time.RFC3339))
}

// QuoteSource supplies quotes for the /price command and the startup
// warm-up.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
}

// ErrUnknownSymbol is returned by quote sources for symbols they do not
// carry.
type ErrUnknownSymbol struct {
	Symbol string
}

func (e *ErrUnknownSymbol) Error() string {
	return fmt.Sprintf("unknown symbol %q", e.Symbol)
}

// StaticQuoteSource serves quotes from a fixed symbol table. It backs
// deployments without a market data feed and the package tests.
type StaticQuoteSource map[string]float64

func (s StaticQuoteSource) Quote(ctx context.Context, symbol string) (Quote, error) {
	if err := ctx.Err(); err != nil {
		return Quote{}, err
	}
	price, ok := s[symbol]
	if !ok {
		return Quote{}, &ErrUnknownSymbol{Symbol: symbol}
	}
	return Quote{Symbol: symbol, Price: price, AsOf: time.Now()}, nil
}

// Symbols lists the symbols the source carries, sorted.
func (s StaticQuoteSource) Symbols() []string {
	symbols := make([]string, 0, len(s))
	for symbol := range s {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

func quoteCacheKey(symbol string) string {
	return "quote:" + symbol
}

// WarmQuotes fetches every symbol through the source and stores the results
// in the cache. It is the body of the startup warm-up step; the first lookup
// failure aborts the warm-up but leaves already cached quotes in place.
func WarmQuotes(ctx context.Context, source QuoteSource, c *cache.Cache, symbols []string) error {
	if source == nil || c == nil {
		return nil
	}

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return err
		}
		quote, err := source.Quote(ctx, symbol)
		if err != nil {
			return fmt.Errorf("failed to warm quote for %s: %w", symbol, err)
		}
		c.Set(quoteCacheKey(symbol), quote)
	}
	return nil
}
