package prices

import (
	"context"
	"sync"
	"time"

	"pricealert/internal/models"
	"pricealert/internal/rates"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var gramsPerTroyOunce = decimal.RequireFromString("31.1035")

// MetalTickers maps metal codes to the upstream per-ounce futures tickers.
var MetalTickers = map[string]string{
	"XAU": "GC=F",
	"XAG": "SI=F",
	"XPT": "PL=F",
	"XPD": "PA=F",
}

// GramPrice converts a per-troy-ounce quote into a per-gram price in the target currency.
func GramPrice(ouncePrice, fxRate float64) float64 {
	return decimal.NewFromFloat(ouncePrice).
		Mul(decimal.NewFromFloat(fxRate)).
		Div(gramsPerTroyOunce).
		InexactFloat64()
}

// RateSource is the subset of rates.Cache the metals fetcher uses.
type RateSource interface {
	GetOrFetch(ctx context.Context, pair rates.Pair, now time.Time) (float64, error)
}

// MetalFetcher prices symbols of the form XAU-TRY: each metal's ounce quote is fetched once,
// each currency's rate comes from the rate cache once, and every combination is derived.
type MetalFetcher struct {
	ounces BatchFetcher
	rates  RateSource
	now    func() time.Time
	log    *zap.Logger
}

func NewMetalFetcher(ounces BatchFetcher, rateSource RateSource, now func() time.Time, log *zap.Logger) *MetalFetcher {
	if now == nil {
		now = time.Now
	}
	return &MetalFetcher{ounces: ounces, rates: rateSource, now: now, log: log}
}

func (f *MetalFetcher) FetchBatch(ctx context.Context, symbols []string) map[string]float64 {
	metals := make(map[string]struct{})
	currencies := make(map[string]struct{})
	for _, s := range symbols {
		metal, ccy := models.SplitMetalSymbol(s)
		metals[metal] = struct{}{}
		currencies[ccy] = struct{}{}
	}

	metalList := make([]string, 0, len(metals))
	for m := range metals {
		metalList = append(metalList, m)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ounces  map[string]float64
		fxRates = make(map[string]float64, len(currencies))
		now     = f.now()
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		ounces = f.ounces.FetchBatch(ctx, metalList)
	}()

	for ccy := range currencies {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rate, err := f.rates.GetOrFetch(ctx, rates.Pair{From: models.BaseCurrency, To: ccy}, now)
			if err != nil {
				f.log.Warn("Exchange rate unavailable, metal prices unknown this cycle",
					zap.String("currency", ccy),
					zap.Error(err),
				)
				return
			}
			mu.Lock()
			fxRates[ccy] = rate
			mu.Unlock()
		}()
	}
	wg.Wait()

	out := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		metal, ccy := models.SplitMetalSymbol(s)
		ounce, ok := ounces[metal]
		if !ok {
			continue
		}
		fx, ok := fxRates[ccy]
		if !ok {
			continue
		}
		out[s] = GramPrice(ounce, fx)
	}
	return out
}
