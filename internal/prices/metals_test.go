package prices

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"pricealert/internal/rates"
)

type stubRates map[string]float64

func (s stubRates) Rate(ctx context.Context, from, to string) (float64, error) {
	r, ok := s[from+to]
	if !ok {
		return 0, errors.New("no quote")
	}
	return r, nil
}

func TestGramPrice(t *testing.T) {
	assert.InDelta(t, 64.30, GramPrice(2000, 1), 0.005)
	assert.InDelta(t, 2000*32.5/31.1035, GramPrice(2000, 32.5), 1e-6)
}

func TestMetalFetcherConvertsPerCurrency(t *testing.T) {
	ounces := staticFetcher{"XAU": 2000, "XAG": 25}
	cache := rates.NewCache(stubRates{"USDTRY": 32.5}, time.Hour)
	f := NewMetalFetcher(ounces, cache, time.Now, zap.NewNop())

	got := f.FetchBatch(context.Background(), []string{"XAU-USD", "XAU-TRY", "XAG-TRY", "XPT-USD"})

	assert.InDelta(t, 64.30, got["XAU-USD"], 0.005)
	assert.InDelta(t, 2000*32.5/31.1035, got["XAU-TRY"], 1e-6)
	assert.InDelta(t, 25*32.5/31.1035, got["XAG-TRY"], 1e-6)
	_, ok := got["XPT-USD"]
	assert.False(t, ok)
}

func TestMetalFetcherRateUnavailableLeavesCurrencyUnknown(t *testing.T) {
	ounces := staticFetcher{"XAU": 2000}
	cache := rates.NewCache(stubRates{}, time.Hour)
	f := NewMetalFetcher(ounces, cache, time.Now, zap.NewNop())

	got := f.FetchBatch(context.Background(), []string{"XAU-USD", "XAU-EUR"})
	assert.Contains(t, got, "XAU-USD")
	assert.NotContains(t, got, "XAU-EUR")
}
