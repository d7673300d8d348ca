package engine

import (
	"pricealert/internal/models"
	"pricealert/internal/prices"
)

// Aggregate collects the distinct symbols referenced by the alerts, partitioned by the
// alert's market tag.
func Aggregate(alertsByUser map[string][]*models.Alert) prices.SymbolSets {
	sets := prices.SymbolSets{}
	for _, alerts := range alertsByUser {
		for _, a := range alerts {
			sets.Add(a.Market, a.Symbol)
		}
	}
	return sets
}
