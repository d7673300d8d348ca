package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// NewHTTPClient returns a resty client for one upstream.
func NewHTTPClient(baseURL string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "price-alert-notifier/1.0")
}

// BinanceSource reads the last traded price of a crypto pair.
type BinanceSource struct {
	client *resty.Client
}

func NewBinanceSource(client *resty.Client) *BinanceSource {
	return &BinanceSource{client: client}
}

type binanceTicker struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

func (b *BinanceSource) Price(ctx context.Context, symbol string) (float64, error) {
	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		Get("/api/v3/ticker/price")
	if err != nil {
		return 0, fmt.Errorf("%w: binance %s: %v", ErrUnavailable, symbol, err)
	}
	if !resp.IsSuccess() {
		return 0, fmt.Errorf("%w: binance %s: status %d", ErrUnavailable, symbol, resp.StatusCode())
	}

	var t binanceTicker
	if err := json.Unmarshal(resp.Body(), &t); err != nil {
		return 0, fmt.Errorf("%w: binance %s: %v", ErrUnavailable, symbol, err)
	}
	if !t.Price.IsPositive() {
		return 0, fmt.Errorf("%w: binance %s: no price", ErrUnavailable, symbol)
	}
	return t.Price.InexactFloat64(), nil
}

// YahooSource reads regular market prices, several symbols per request.
// Suffix is appended to outgoing tickers and stripped from results (".IS" for Borsa Istanbul).
type YahooSource struct {
	client *resty.Client
	suffix string
	alias  map[string]string
}

func NewYahooSource(client *resty.Client, suffix string) *YahooSource {
	return &YahooSource{client: client, suffix: suffix}
}

// WithAliases maps our symbols to upstream tickers, e.g. XAU → GC=F.
func (y *YahooSource) WithAliases(alias map[string]string) *YahooSource {
	y.alias = alias
	return y
}

type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol             string   `json:"symbol"`
			RegularMarketPrice *float64 `json:"regularMarketPrice"`
		} `json:"result"`
	} `json:"quoteResponse"`
}

func (y *YahooSource) ticker(symbol string) string {
	if t, ok := y.alias[symbol]; ok {
		return t
	}
	return symbol + y.suffix
}

func (y *YahooSource) Quotes(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}
	back := make(map[string]string, len(symbols))
	tickers := make([]string, 0, len(symbols))
	for _, s := range symbols {
		t := y.ticker(s)
		back[t] = s
		tickers = append(tickers, t)
	}

	resp, err := y.client.R().
		SetContext(ctx).
		SetQueryParam("symbols", strings.Join(tickers, ",")).
		Get("/v7/finance/quote")
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo: %v", ErrUnavailable, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: yahoo: status %d", ErrUnavailable, resp.StatusCode())
	}

	var body yahooQuoteResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("%w: yahoo: %v", ErrUnavailable, err)
	}

	out := make(map[string]float64, len(body.QuoteResponse.Result))
	for _, r := range body.QuoteResponse.Result {
		sym, ok := back[r.Symbol]
		if !ok || r.RegularMarketPrice == nil || *r.RegularMarketPrice <= 0 {
			continue
		}
		out[sym] = *r.RegularMarketPrice
	}
	return out, nil
}

func (y *YahooSource) Price(ctx context.Context, symbol string) (float64, error) {
	quotes, err := y.Quotes(ctx, []string{symbol})
	if err != nil {
		return 0, err
	}
	price, ok := quotes[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: yahoo %s: not found", ErrUnavailable, symbol)
	}
	return price, nil
}

// Rate implements rates.Fetcher using currency crosses such as USDTRY=X.
func (y *YahooSource) Rate(ctx context.Context, from, to string) (float64, error) {
	quotes, err := y.Quotes(ctx, []string{from + to + "=X"})
	if err != nil {
		return 0, err
	}
	rate, ok := quotes[from+to+"=X"]
	if !ok {
		return 0, fmt.Errorf("%w: yahoo fx %s%s: not found", ErrUnavailable, from, to)
	}
	return rate, nil
}
