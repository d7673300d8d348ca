package models

import (
	"errors"
	"time"
)

var ErrQuotaExceeded = errors.New("alert quota exceeded")

// Tier is a user's subscription level.
type Tier string

const (
	TierFree  Tier = "free"
	TierPro   Tier = "pro"
	TierUltra Tier = "ultra"
)

// TierPolicy is what a tier buys: how often alerts are checked and how many may exist.
// MaxAlerts of zero means unlimited.
type TierPolicy struct {
	Interval  time.Duration `mapstructure:"interval"`
	MaxAlerts int           `mapstructure:"max_alerts"`
}

// TierPolicies maps each tier to its policy.
type TierPolicies map[Tier]TierPolicy

func DefaultTierPolicies() TierPolicies {
	return TierPolicies{
		TierFree:  {Interval: 10 * time.Minute, MaxAlerts: 5},
		TierPro:   {Interval: 3 * time.Minute, MaxAlerts: 20},
		TierUltra: {Interval: time.Minute, MaxAlerts: 0},
	}
}

// For returns the policy of t, falling back to the free tier for unknown values.
func (p TierPolicies) For(t Tier) TierPolicy {
	if policy, ok := p[t]; ok {
		return policy
	}
	if policy, ok := p[TierFree]; ok {
		return policy
	}
	return DefaultTierPolicies()[TierFree]
}

// QuotaExceeded reports whether a user of tier t already holding count alerts may not add another.
func (p TierPolicies) QuotaExceeded(t Tier, count int) bool {
	max := p.For(t).MaxAlerts
	return max > 0 && count >= max
}
