package prices

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func binanceServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("symbol") {
		case "BTCUSDT":
			w.Write([]byte(`{"symbol":"BTCUSDT","price":"65000.12000000"}`))
		case "XYZUSDT":
			w.Write([]byte(`{"symbol":"XYZUSDT","price":"110.00"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func yahooServer(t *testing.T, prices map[string]float64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		var b strings.Builder
		b.WriteString(`{"quoteResponse":{"result":[`)
		first := true
		for _, sym := range strings.Split(r.URL.Query().Get("symbols"), ",") {
			p, ok := prices[sym]
			if !ok {
				continue
			}
			if !first {
				b.WriteString(",")
			}
			first = false
			b.WriteString(`{"symbol":"` + sym + `","regularMarketPrice":`)
			b.WriteString(strconv.FormatFloat(p, 'f', -1, 64))
			b.WriteString("}")
		}
		b.WriteString(`]}}`)
		w.Write([]byte(b.String()))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBinanceSource(t *testing.T) {
	srv := binanceServer(t)
	src := NewBinanceSource(NewHTTPClient(srv.URL, time.Second))

	p, err := src.Price(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.InDelta(t, 65000.12, p, 1e-9)

	_, err = src.Price(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestYahooSourceStripsSuffix(t *testing.T) {
	srv := yahooServer(t, map[string]float64{"THYAO.IS": 301.5, "GARAN.IS": 120.25})
	src := NewYahooSource(NewHTTPClient(srv.URL, time.Second), ".IS")

	quotes, err := src.Quotes(context.Background(), []string{"THYAO", "GARAN", "MISSING"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"THYAO": 301.5, "GARAN": 120.25}, quotes)

	_, err = src.Price(context.Background(), "MISSING")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestYahooSourceAliasesAndRate(t *testing.T) {
	srv := yahooServer(t, map[string]float64{"GC=F": 2000, "USDTRY=X": 32.5})
	client := NewHTTPClient(srv.URL, time.Second)

	metals := NewYahooSource(client, "").WithAliases(MetalTickers)
	p, err := metals.Price(context.Background(), "XAU")
	require.NoError(t, err)
	assert.Equal(t, 2000.0, p)

	fx := NewYahooSource(client, "")
	r, err := fx.Rate(context.Background(), "USD", "TRY")
	require.NoError(t, err)
	assert.Equal(t, 32.5, r)
}

func TestYahooSourceServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewYahooSource(NewHTTPClient(srv.URL, time.Second), "").Quotes(context.Background(), []string{"AAPL"})
	assert.ErrorIs(t, err, ErrUnavailable)
}
