package prices

import (
	"sort"
	"strings"

	"pricealert/internal/models"
)

// Catalog holds the static symbol-membership sets used to label a flat price map.
type Catalog struct {
	Domestic     map[string]struct{}
	Metals       map[string]struct{}
	CryptoQuotes []string
}

func setOf(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}

// DefaultCatalog lists the BIST-30 constituents, the four precious metals and the common
// quote assets of exchange crypto pairs, TRY included.
func DefaultCatalog() Catalog {
	return Catalog{
		Domestic: setOf(
			"AKBNK", "ALARK", "ARCLK", "ASELS", "BIMAS", "EKGYO", "ENKAI", "EREGL", "FROTO", "GARAN",
			"GUBRF", "HEKTS", "ISCTR", "KCHOL", "KOZAA", "KOZAL", "KRDMD", "ODAS", "PETKM", "PGSUS",
			"SAHOL", "SASA", "SISE", "TAVHL", "TCELL", "THYAO", "TOASO", "TUPRS", "YKBNK", "SOKM",
		),
		Metals:       setOf("XAU", "XAG", "XPT", "XPD"),
		CryptoQuotes: []string{"USDT", "USDC", "FDUSD", "BUSD", "TRY", "BTC", "ETH"},
	}
}

// Classify infers a market from the shape of a symbol. Only used where the caller has no
// explicit market tag.
func (c Catalog) Classify(symbol string) models.Market {
	symbol = models.NormalizeSymbol(symbol)
	if metal, _ := models.SplitMetalSymbol(symbol); c.isMetal(metal) {
		return models.MarketMetal
	}
	if _, ok := c.Domestic[symbol]; ok {
		return models.MarketDomesticEquity
	}
	for _, q := range c.CryptoQuotes {
		if len(symbol) > len(q) && strings.HasSuffix(symbol, q) {
			return models.MarketCrypto
		}
	}
	return models.MarketForeignEquity
}

func (c Catalog) isMetal(code string) bool {
	_, ok := c.Metals[code]
	return ok
}

// Quote is one labelled entry of a partitioned snapshot.
type Quote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// Partition splits a flat snapshot into per-market lists sorted by symbol. Metal entries
// are kept only for the requested currency. Every market is present, possibly empty.
func (c Catalog) Partition(snapshot map[string]float64, currency string) map[models.Market][]Quote {
	out := make(map[models.Market][]Quote, len(models.Markets))
	for _, m := range models.Markets {
		out[m] = []Quote{}
	}
	for sym, price := range snapshot {
		market := c.Classify(sym)
		if market == models.MarketMetal {
			if _, ccy := models.SplitMetalSymbol(sym); ccy != currency {
				continue
			}
		}
		out[market] = append(out[market], Quote{Symbol: sym, Price: price})
	}
	for _, quotes := range out {
		sort.Slice(quotes, func(i, j int) bool { return quotes[i].Symbol < quotes[j].Symbol })
	}
	return out
}
