package engine

import (
	"time"

	"pricealert/internal/models"
)

// SelectDue returns the users whose tier interval has fully elapsed since their last check.
// A user that was never checked is always due.
func SelectDue(users []models.User, now time.Time, policies models.TierPolicies) []models.User {
	var due []models.User
	for _, u := range users {
		if u.LastCheckedAt == nil || now.Sub(*u.LastCheckedAt) >= policies.For(u.Tier).Interval {
			due = append(due, u)
		}
	}
	return due
}
