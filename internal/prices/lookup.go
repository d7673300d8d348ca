package prices

import (
	"context"
	"fmt"

	"pricealert/internal/models"
)

// Lookup is the synchronous single-symbol price contract of the creation and edit paths.
// It shares the batch fetchers with the evaluation cycle.
type Lookup struct {
	fetchers Fetchers
	catalog  Catalog
}

func NewLookup(fetchers Fetchers, catalog Catalog) *Lookup {
	return &Lookup{fetchers: fetchers, catalog: catalog}
}

// Price resolves one symbol. An empty market is inferred from the symbol.
func (l *Lookup) Price(ctx context.Context, market models.Market, symbol string) (float64, error) {
	symbol = models.NormalizeSymbol(symbol)
	if market == "" {
		market = l.catalog.Classify(symbol)
	}
	fetcher, ok := l.fetchers[market]
	if !ok {
		return 0, fmt.Errorf("%w: no source for market %s", ErrUnavailable, market)
	}
	price, ok := fetcher.FetchBatch(ctx, []string{symbol})[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %s %s", ErrUnavailable, market, symbol)
	}
	return price, nil
}

// Classify exposes the catalog's market inference.
func (l *Lookup) Classify(symbol string) models.Market {
	return l.catalog.Classify(symbol)
}
