// internal/status/status.go
package status

import "time"

// Status is the lifecycle state of an asset relative to its expiration date.
type Status string

const (
	Active   Status = "active"
	Expiring Status = "expiring"
	Expired  Status = "expired"
)

// expiringWindowDays is the near-term horizon shared by the classifier,
// the scan windows, and the weekly digest.
const expiringWindowDays = 30

// Midnight truncates t to midnight in its own location. All day math in the
// pipeline runs on midnight-truncated dates.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysRemaining returns the whole days between today and the expiration
// date, both truncated to midnight. Zero means the item expires today;
// negative means it already expired.
func DaysRemaining(expiration, today time.Time) int {
	diff := Midnight(expiration).Sub(Midnight(today))
	days := int(diff / (24 * time.Hour))
	if diff%(24*time.Hour) > 0 {
		days++ // partial day still counts as remaining
	}
	return days
}

// Classify maps an expiration date to a lifecycle status. A nil expiration
// date always classifies Active. An item expiring today is Expiring, not
// Expired.
func Classify(expiration *time.Time, today time.Time) Status {
	if expiration == nil {
		return Active
	}
	days := DaysRemaining(*expiration, today)
	switch {
	case days < 0:
		return Expired
	case days <= expiringWindowDays:
		return Expiring
	default:
		return Active
	}
}
