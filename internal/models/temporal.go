package models

import "time"

// Expired reports whether a validity window ending at expiry has passed.
// A nil expiry never expires. The comparison is strict: a window ending
// exactly at now is expired. Both the IP guard and the account lock
// manager derive their lazy-expiry reads from this one helper.
func Expired(expiry *time.Time, now time.Time) bool {
	return expiry != nil && !expiry.After(now)
}
