package prices

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pricealert/internal/models"
)

type fakeSource struct {
	mu       sync.Mutex
	prices   map[string]float64
	fail     map[string]bool
	slow     map[string]bool
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
	calls    atomic.Int32
}

func (f *fakeSource) Price(ctx context.Context, symbol string) (float64, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}

	if f.slow[symbol] {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail[symbol] {
		return 0, ErrUnavailable
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.prices[symbol]
	if !ok {
		return 0, ErrUnavailable
	}
	return p, nil
}

func TestPerSymbolFetcherIsolatesFailures(t *testing.T) {
	src := &fakeSource{
		prices: map[string]float64{"A": 1, "B": 2, "C": 3},
		fail:   map[string]bool{"B": true},
	}
	f := NewPerSymbolFetcher(models.MarketCrypto, src, FetchOptions{MaxConcurrency: 3, RequestTimeout: time.Second}, zap.NewNop())

	got := f.FetchBatch(context.Background(), []string{"A", "B", "C"})
	assert.Equal(t, map[string]float64{"A": 1, "C": 3}, got)
	_, present := got["B"]
	assert.False(t, present, "failed symbols are omitted, not zero-valued")
}

func TestPerSymbolFetcherTimesOutSlowSymbolOnly(t *testing.T) {
	src := &fakeSource{
		prices: map[string]float64{"A": 1, "C": 3},
		slow:   map[string]bool{"SLOW": true},
	}
	f := NewPerSymbolFetcher(models.MarketCrypto, src, FetchOptions{MaxConcurrency: 4, RequestTimeout: 50 * time.Millisecond}, zap.NewNop())

	start := time.Now()
	got := f.FetchBatch(context.Background(), []string{"A", "SLOW", "C"})
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, map[string]float64{"A": 1, "C": 3}, got)
}

func TestPerSymbolFetcherBoundsConcurrency(t *testing.T) {
	prices := map[string]float64{}
	var symbols []string
	for _, s := range []string{"A", "B", "C", "D", "E", "F", "G", "H"} {
		prices[s] = 1
		symbols = append(symbols, s)
	}
	src := &fakeSource{prices: prices, delay: 20 * time.Millisecond}
	f := NewPerSymbolFetcher(models.MarketCrypto, src, FetchOptions{MaxConcurrency: 2, RequestTimeout: time.Second}, zap.NewNop())

	got := f.FetchBatch(context.Background(), symbols)
	assert.Len(t, got, len(symbols))
	assert.LessOrEqual(t, src.maxSeen.Load(), int32(2))
}

type countingLimiter struct{ waits atomic.Int32 }

func (l *countingLimiter) Wait(ctx context.Context, key string) error {
	l.waits.Add(1)
	return nil
}

func TestPerSymbolFetcherWaitsOnLimiter(t *testing.T) {
	src := &fakeSource{prices: map[string]float64{"A": 1, "B": 2}}
	lim := &countingLimiter{}
	f := NewPerSymbolFetcher(models.MarketCrypto, src, FetchOptions{MaxConcurrency: 2, Limiter: lim}, zap.NewNop())

	f.FetchBatch(context.Background(), []string{"A", "B"})
	assert.EqualValues(t, 2, lim.waits.Load())
}

type fakeMulti struct {
	fakeSource
	quotesErr error
	requests  atomic.Int32
}

func (f *fakeMulti) Quotes(ctx context.Context, symbols []string) (map[string]float64, error) {
	f.requests.Add(1)
	if f.quotesErr != nil {
		return nil, f.quotesErr
	}
	out := map[string]float64{}
	for _, s := range symbols {
		if p, ok := f.prices[s]; ok {
			out[s] = p
		}
	}
	return out, nil
}

func TestMultiSymbolFetcherChunks(t *testing.T) {
	src := &fakeMulti{fakeSource: fakeSource{prices: map[string]float64{"A": 1, "B": 2, "C": 3, "D": 4, "E": 5}}}
	f := NewMultiSymbolFetcher(models.MarketForeignEquity, src, 2, FetchOptions{MaxConcurrency: 2}, zap.NewNop())

	got := f.FetchBatch(context.Background(), []string{"A", "B", "C", "D", "E", "UNKNOWN"})
	assert.Len(t, got, 5)
	assert.EqualValues(t, 3, src.requests.Load())
	assert.EqualValues(t, 0, src.calls.Load())
}

func TestMultiSymbolFetcherFallsBackPerSymbol(t *testing.T) {
	src := &fakeMulti{
		fakeSource: fakeSource{prices: map[string]float64{"A": 1, "C": 3}, fail: map[string]bool{"B": true}},
		quotesErr:  errors.New("400 bad symbol"),
	}
	f := NewMultiSymbolFetcher(models.MarketForeignEquity, src, 10, FetchOptions{MaxConcurrency: 2}, zap.NewNop())

	got := f.FetchBatch(context.Background(), []string{"A", "B", "C"})
	assert.Equal(t, map[string]float64{"A": 1, "C": 3}, got)
}

func TestFallbackUsesSecondSource(t *testing.T) {
	first := &fakeSource{fail: map[string]bool{"BTCUSDT": true}}
	second := &fakeSource{prices: map[string]float64{"BTCUSDT": 64000}}

	p, err := Fallback{first, second}.Price(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 64000.0, p)

	_, err = Fallback{first}.Price(context.Background(), "BTCUSDT")
	assert.ErrorIs(t, err, ErrUnavailable)
}

type staticFetcher map[string]float64

func (s staticFetcher) FetchBatch(ctx context.Context, symbols []string) map[string]float64 {
	out := map[string]float64{}
	for _, sym := range symbols {
		if p, ok := s[sym]; ok {
			out[sym] = p
		}
	}
	return out
}

func TestFetchAllMergesMarkets(t *testing.T) {
	fetchers := Fetchers{
		models.MarketCrypto:        staticFetcher{"BTCUSDT": 65000},
		models.MarketForeignEquity: staticFetcher{"AAPL": 190},
		models.MarketMetal:         staticFetcher{"XAU-USD": 64.3},
	}
	sets := SymbolSets{}
	sets.Add(models.MarketCrypto, "BTCUSDT")
	sets.Add(models.MarketForeignEquity, "AAPL")
	sets.Add(models.MarketForeignEquity, "MSFT")
	sets.Add(models.MarketMetal, "XAU-USD")
	sets.Add(models.MarketDomesticEquity, "THYAO")

	got := fetchers.FetchAll(context.Background(), sets, zap.NewNop())
	assert.Equal(t, map[string]float64{"BTCUSDT": 65000, "AAPL": 190, "XAU-USD": 64.3}, got)
}

func TestLookupRoutesByMarket(t *testing.T) {
	l := NewLookup(Fetchers{
		models.MarketCrypto:         staticFetcher{"BTCUSDT": 65000},
		models.MarketDomesticEquity: staticFetcher{"THYAO": 300},
	}, DefaultCatalog())

	p, err := l.Price(context.Background(), models.MarketCrypto, "btcusdt")
	require.NoError(t, err)
	assert.Equal(t, 65000.0, p)

	p, err = l.Price(context.Background(), "", "THYAO")
	require.NoError(t, err)
	assert.Equal(t, 300.0, p)

	_, err = l.Price(context.Background(), models.MarketCrypto, "NOPEUSDT")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = l.Price(context.Background(), models.MarketMetal, "XAU-USD")
	assert.ErrorIs(t, err, ErrUnavailable)
}
