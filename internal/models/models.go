package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidBand = errors.New("invalid alert band")

// Alert represents a one-shot percentage band alert on a single instrument.
type Alert struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Market     Market    `json:"market" db:"market"`
	Symbol     string    `json:"symbol" db:"symbol"`
	Percentage float64   `json:"percentage" db:"percentage"`
	BasePrice  float64   `json:"base_price" db:"base_price"`
	UpperLimit float64   `json:"upper_limit" db:"upper_limit"`
	LowerLimit float64   `json:"lower_limit" db:"lower_limit"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// User is the owner of alerts and the target of push notifications.
type User struct {
	ID                   string     `json:"id" db:"id"`
	NotificationsEnabled bool       `json:"notifications_enabled" db:"notifications_enabled"`
	Language             string     `json:"language" db:"language"`
	Tier                 Tier       `json:"tier" db:"tier"`
	DeviceToken          *string    `json:"device_token,omitempty" db:"device_token"`
	LastCheckedAt        *time.Time `json:"last_checked_at,omitempty" db:"last_checked_at"`
}

// CanNotify reports whether a push can be addressed to the user at all.
func (u User) CanNotify() bool {
	return u.NotificationsEnabled && u.DeviceToken != nil && *u.DeviceToken != ""
}

// Band holds the limits derived from a base price and a percentage width.
type Band struct {
	BasePrice  float64
	Percentage float64
	UpperLimit float64
	LowerLimit float64
}

// NewBand computes upper = base*(1+pct/100) and lower = base*(1-pct/100).
func NewBand(base, pct float64) (Band, error) {
	if base <= 0 {
		return Band{}, fmt.Errorf("%w: base price must be positive, got %v", ErrInvalidBand, base)
	}
	if pct <= 0 || pct >= 100 {
		return Band{}, fmt.Errorf("%w: percentage must be in (0, 100), got %v", ErrInvalidBand, pct)
	}
	b, p, hundred := decimal.NewFromFloat(base), decimal.NewFromFloat(pct), decimal.NewFromInt(100)
	return Band{
		BasePrice:  base,
		Percentage: pct,
		UpperLimit: b.Mul(hundred.Add(p)).Div(hundred).InexactFloat64(),
		LowerLimit: b.Mul(hundred.Sub(p)).Div(hundred).InexactFloat64(),
	}, nil
}

// NewAlert builds an alert whose band is anchored at price.
func NewAlert(id, userID string, market Market, symbol string, pct, price float64, now time.Time) (*Alert, error) {
	band, err := NewBand(price, pct)
	if err != nil {
		return nil, err
	}
	a := &Alert{
		ID:        id,
		UserID:    userID,
		Market:    market,
		Symbol:    NormalizeSymbol(symbol),
		CreatedAt: now,
		UpdatedAt: now,
	}
	a.applyBand(band)
	return a, nil
}

// Rearm re-anchors the band at a fresh price, keeping the percentage unless pct is positive.
func (a *Alert) Rearm(price, pct float64, now time.Time) error {
	if pct <= 0 {
		pct = a.Percentage
	}
	band, err := NewBand(price, pct)
	if err != nil {
		return err
	}
	a.applyBand(band)
	a.UpdatedAt = now
	return nil
}

func (a *Alert) applyBand(b Band) {
	a.BasePrice = b.BasePrice
	a.Percentage = b.Percentage
	a.UpperLimit = b.UpperLimit
	a.LowerLimit = b.LowerLimit
}

// Direction is the side of the band a price crossed.
type Direction string

const (
	DirectionNone  Direction = ""
	DirectionAbove Direction = "above"
	DirectionBelow Direction = "below"
)

// Breach reports which limit, if any, the price has reached. Both limits are inclusive.
func (a *Alert) Breach(price float64) Direction {
	switch {
	case price >= a.UpperLimit:
		return DirectionAbove
	case price <= a.LowerLimit:
		return DirectionBelow
	default:
		return DirectionNone
	}
}

// NormalizeSymbol trims and upper-cases an instrument symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
