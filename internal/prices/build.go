package prices

import (
	"time"

	"pricealert/internal/models"
	"pricealert/internal/rates"

	"go.uber.org/zap"
)

// Upstreams locates the market-data providers.
type Upstreams struct {
	BinanceURL     string
	YahooURL       string
	DomesticSuffix string
	Timeout        time.Duration
}

// NewMarketFetchers wires the four market fetchers:
//   - foreign equities: chunked multi-symbol Yahoo requests
//   - domestic equities: per-symbol Yahoo requests with the exchange suffix
//   - crypto: per-symbol Binance, falling back to Yahoo
//   - metals: per-metal Yahoo futures quotes converted through the FX rate cache
func NewMarketFetchers(up Upstreams, opts FetchOptions, fx *rates.Cache, log *zap.Logger) Fetchers {
	yahooClient := NewHTTPClient(up.YahooURL, up.Timeout)
	binance := NewBinanceSource(NewHTTPClient(up.BinanceURL, up.Timeout))
	foreign := NewYahooSource(yahooClient, "")
	domestic := NewYahooSource(yahooClient, up.DomesticSuffix)
	metals := NewYahooSource(yahooClient, "").WithAliases(MetalTickers)

	return Fetchers{
		models.MarketForeignEquity:  NewMultiSymbolFetcher(models.MarketForeignEquity, foreign, DefaultChunkSize, opts, log),
		models.MarketDomesticEquity: NewPerSymbolFetcher(models.MarketDomesticEquity, domestic, opts, log),
		models.MarketCrypto:         NewPerSymbolFetcher(models.MarketCrypto, Fallback{binance, foreign}, opts, log),
		models.MarketMetal: NewMetalFetcher(
			NewPerSymbolFetcher(models.MarketMetal, metals, opts, log),
			fx, time.Now, log,
		),
	}
}

// NewFXSource returns the upstream used to fill the rate cache.
func NewFXSource(up Upstreams) rates.Fetcher {
	return NewYahooSource(NewHTTPClient(up.YahooURL, up.Timeout), "")
}
