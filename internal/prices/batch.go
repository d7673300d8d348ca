package prices

import (
	"context"
	"sync"
	"time"

	"pricealert/internal/metrics"
	"pricealert/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FetchOptions bound the fan-out of one market fetcher.
type FetchOptions struct {
	MaxConcurrency int
	RequestTimeout time.Duration
	Limiter        Limiter
}

func (o FetchOptions) limit() int {
	if o.MaxConcurrency <= 0 {
		return 1
	}
	return o.MaxConcurrency
}

// PerSymbolFetcher issues one upstream request per symbol with a bounded number in flight.
// Every request has its own timeout, so one slow symbol only loses its own price.
type PerSymbolFetcher struct {
	market models.Market
	source Source
	opts   FetchOptions
	log    *zap.Logger
}

func NewPerSymbolFetcher(market models.Market, source Source, opts FetchOptions, log *zap.Logger) *PerSymbolFetcher {
	return &PerSymbolFetcher{market: market, source: source, opts: opts, log: log}
}

func (f *PerSymbolFetcher) FetchBatch(ctx context.Context, symbols []string) map[string]float64 {
	out := make(map[string]float64, len(symbols))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(f.opts.limit())
	for _, symbol := range symbols {
		g.Go(func() error {
			price, err := f.fetchOne(ctx, symbol)
			if err != nil {
				metrics.PriceFetchesTotal.WithLabelValues(string(f.market), "error").Inc()
				f.log.Debug("Price lookup failed",
					zap.String("market", string(f.market)),
					zap.String("symbol", symbol),
					zap.Error(err),
				)
				return nil
			}
			metrics.PriceFetchesTotal.WithLabelValues(string(f.market), "ok").Inc()
			mu.Lock()
			out[symbol] = price
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (f *PerSymbolFetcher) fetchOne(ctx context.Context, symbol string) (float64, error) {
	if f.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.RequestTimeout)
		defer cancel()
	}
	if f.opts.Limiter != nil {
		if err := f.opts.Limiter.Wait(ctx, string(f.market)); err != nil {
			return 0, err
		}
	}
	return f.source.Price(ctx, symbol)
}

// MultiSymbolFetcher sends chunks of symbols in single upstream requests. A chunk whose
// request fails is retried symbol by symbol so that one bad ticker cannot blank the rest.
type MultiSymbolFetcher struct {
	market    models.Market
	source    MultiSource
	chunkSize int
	opts      FetchOptions
	log       *zap.Logger
}

// MultiSource serves both multi-symbol and single-symbol requests.
type MultiSource interface {
	QuoteSource
	Source
}

// DefaultChunkSize is the number of tickers per multi-symbol request.
const DefaultChunkSize = 50

func NewMultiSymbolFetcher(market models.Market, source MultiSource, chunkSize int, opts FetchOptions, log *zap.Logger) *MultiSymbolFetcher {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &MultiSymbolFetcher{market: market, source: source, chunkSize: chunkSize, opts: opts, log: log}
}

func (f *MultiSymbolFetcher) FetchBatch(ctx context.Context, symbols []string) map[string]float64 {
	out := make(map[string]float64, len(symbols))
	var mu sync.Mutex
	merge := func(m map[string]float64) {
		mu.Lock()
		defer mu.Unlock()
		for k, v := range m {
			out[k] = v
		}
	}

	var g errgroup.Group
	g.SetLimit(f.opts.limit())
	for start := 0; start < len(symbols); start += f.chunkSize {
		chunk := symbols[start:min(start+f.chunkSize, len(symbols))]
		g.Go(func() error {
			quotes, err := f.fetchChunk(ctx, chunk)
			if err != nil {
				f.log.Warn("Multi-symbol request failed, falling back to single lookups",
					zap.String("market", string(f.market)),
					zap.Int("symbols", len(chunk)),
					zap.Error(err),
				)
				single := NewPerSymbolFetcher(f.market, f.source, f.opts, f.log)
				merge(single.FetchBatch(ctx, chunk))
				return nil
			}
			metrics.PriceFetchesTotal.WithLabelValues(string(f.market), "ok").Add(float64(len(quotes)))
			if missing := len(chunk) - len(quotes); missing > 0 {
				metrics.PriceFetchesTotal.WithLabelValues(string(f.market), "error").Add(float64(missing))
			}
			merge(quotes)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (f *MultiSymbolFetcher) fetchChunk(ctx context.Context, chunk []string) (map[string]float64, error) {
	if f.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.RequestTimeout)
		defer cancel()
	}
	if f.opts.Limiter != nil {
		if err := f.opts.Limiter.Wait(ctx, string(f.market)); err != nil {
			return nil, err
		}
	}
	return f.source.Quotes(ctx, chunk)
}
