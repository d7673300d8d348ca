package notify

import (
	"strings"

	"pricealert/internal/models"

	"github.com/shopspring/decimal"
)

type phrasebook struct {
	title     string
	body      string
	increased string
	decreased string
	metals    map[string]string
}

var phrasebooks = map[string]phrasebook{
	"en": {
		title:     "{name} price alert",
		body:      "{name} {direction} by {pct}%. Current price: {price}",
		increased: "increased",
		decreased: "decreased",
		metals:    map[string]string{"XAU": "Gold (gram)", "XAG": "Silver (gram)", "XPT": "Platinum (gram)", "XPD": "Palladium (gram)"},
	},
	"tr": {
		title:     "{name} fiyat alarmı",
		body:      "{name} %{pct} {direction}. Güncel fiyat: {price}",
		increased: "yükseldi",
		decreased: "düştü",
		metals:    map[string]string{"XAU": "Gram Altın", "XAG": "Gram Gümüş", "XPT": "Gram Platin", "XPD": "Gram Paladyum"},
	},
}

func bookFor(lang string) phrasebook {
	lang = strings.ToLower(lang)
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	if b, ok := phrasebooks[lang]; ok {
		return b
	}
	return phrasebooks["en"]
}

// DisplayName is the user-facing name of a symbol in lang.
func DisplayName(market models.Market, symbol, lang string) string {
	if market != models.MarketMetal {
		return symbol
	}
	metal, ccy := models.SplitMetalSymbol(symbol)
	name, ok := bookFor(lang).metals[metal]
	if !ok {
		return symbol
	}
	return name + " (" + ccy + ")"
}

// FormatPrice renders a price with two decimals.
func FormatPrice(price float64) string {
	return decimal.NewFromFloat(price).StringFixed(2)
}

// AlertMessage builds the localized push for a triggered alert.
func AlertMessage(token, lang string, alert *models.Alert, price float64, dir models.Direction) Message {
	book := bookFor(lang)
	word := book.increased
	if dir == models.DirectionBelow {
		word = book.decreased
	}
	name := DisplayName(alert.Market, alert.Symbol, lang)

	r := strings.NewReplacer(
		"{name}", name,
		"{direction}", word,
		"{pct}", decimal.NewFromFloat(alert.Percentage).String(),
		"{price}", FormatPrice(price),
	)
	return Message{
		Token: token,
		Title: r.Replace(book.title),
		Body:  r.Replace(book.body),
		Data: map[string]string{
			"alert_id":  alert.ID,
			"symbol":    alert.Symbol,
			"direction": string(dir),
			"price":     FormatPrice(price),
		},
	}
}
