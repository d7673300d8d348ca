package prices

import (
	"context"
	"sync"

	"pricealert/internal/models"

	"go.uber.org/zap"
)

// Fetchers holds one batch fetcher per market.
type Fetchers map[models.Market]BatchFetcher

// FetchAll runs every market's fetcher concurrently and merges the results into one flat
// symbol→price map. Markets without symbols are skipped.
func (f Fetchers) FetchAll(ctx context.Context, sets SymbolSets, log *zap.Logger) map[string]float64 {
	out := make(map[string]float64, sets.Len())
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, market := range models.Markets {
		symbols := sets.Symbols(market)
		if len(symbols) == 0 {
			continue
		}
		fetcher, ok := f[market]
		if !ok {
			log.Warn("No fetcher configured for market", zap.String("market", string(market)))
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			prices := fetcher.FetchBatch(ctx, symbols)
			log.Debug("Market batch fetched",
				zap.String("market", string(market)),
				zap.Int("requested", len(symbols)),
				zap.Int("resolved", len(prices)),
			)
			mu.Lock()
			for sym, p := range prices {
				out[sym] = p
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out
}
