package models

import (
	"fmt"
	"strings"
)

// Market is the explicit instrument category carried by every alert.
type Market string

const (
	MarketForeignEquity  Market = "foreign_equity"
	MarketDomesticEquity Market = "domestic_equity"
	MarketCrypto         Market = "crypto"
	MarketMetal          Market = "metal"
)

// Markets lists every market in a stable order.
var Markets = []Market{MarketForeignEquity, MarketDomesticEquity, MarketCrypto, MarketMetal}

func (m Market) Valid() bool {
	switch m {
	case MarketForeignEquity, MarketDomesticEquity, MarketCrypto, MarketMetal:
		return true
	}
	return false
}

func ParseMarket(s string) (Market, error) {
	m := Market(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown market %q", s)
	}
	return m, nil
}

// BaseCurrency is the currency upstream metal quotes are denominated in.
const BaseCurrency = "USD"

// MetalSymbol joins a metal code and a target currency, e.g. XAU-TRY.
func MetalSymbol(metal, currency string) string {
	return NormalizeSymbol(metal) + "-" + NormalizeSymbol(currency)
}

// SplitMetalSymbol is the inverse of MetalSymbol. A bare metal code resolves to BaseCurrency.
func SplitMetalSymbol(symbol string) (metal, currency string) {
	symbol = NormalizeSymbol(symbol)
	if i := strings.LastIndexByte(symbol, '-'); i > 0 && i < len(symbol)-1 {
		return symbol[:i], symbol[i+1:]
	}
	return symbol, BaseCurrency
}

// CurrencyForLanguage picks the display currency for metal prices.
func CurrencyForLanguage(lang string) string {
	if strings.HasPrefix(strings.ToLower(lang), "tr") {
		return "TRY"
	}
	return BaseCurrency
}
