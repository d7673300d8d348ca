// Package prices turns instrument symbols into prices across the four supported markets.
package prices

import (
	"context"
	"errors"
	"sort"

	"pricealert/internal/models"
)

// ErrUnavailable means the upstream could not resolve a price for the symbol right now.
var ErrUnavailable = errors.New("price unavailable")

// Source resolves a single symbol.
type Source interface {
	Price(ctx context.Context, symbol string) (float64, error)
}

// QuoteSource resolves many symbols in one upstream request. Unknown symbols are omitted.
type QuoteSource interface {
	Quotes(ctx context.Context, symbols []string) (map[string]float64, error)
}

// BatchFetcher turns a set of symbols into prices, omitting any it could not resolve.
// It never fails as a whole.
type BatchFetcher interface {
	FetchBatch(ctx context.Context, symbols []string) map[string]float64
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, symbol string) (float64, error)

func (f SourceFunc) Price(ctx context.Context, symbol string) (float64, error) { return f(ctx, symbol) }

// Fallback tries each source in order and returns the first price.
type Fallback []Source

func (f Fallback) Price(ctx context.Context, symbol string) (float64, error) {
	err := ErrUnavailable
	for _, src := range f {
		price, e := src.Price(ctx, symbol)
		if e == nil {
			return price, nil
		}
		err = e
		if ctx.Err() != nil {
			break
		}
	}
	return 0, err
}

// SymbolSets holds the distinct symbols per market needed in one cycle.
type SymbolSets map[models.Market]map[string]struct{}

func (s SymbolSets) Add(market models.Market, symbol string) {
	set, ok := s[market]
	if !ok {
		set = make(map[string]struct{})
		s[market] = set
	}
	set[symbol] = struct{}{}
}

// Symbols returns the market's symbols in sorted order.
func (s SymbolSets) Symbols(market models.Market) []string {
	set := s[market]
	out := make([]string, 0, len(set))
	for sym := range set {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Len is the total number of distinct (market, symbol) pairs.
func (s SymbolSets) Len() int {
	n := 0
	for _, set := range s {
		n += len(set)
	}
	return n
}
