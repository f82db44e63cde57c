package util

import "time"

// DayStart returns midnight of t's calendar day in t's own location.
// Truncate(24h) would snap to UTC midnight and shift early-morning local
// observations onto the previous day.
func DayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
