// Package status implements the water-quality status evaluation engine: the
// sliding-window metrics, the threshold decision table, and the full-history
// daily series builder. Everything in this package is deterministic, CPU-bound
// computation over caller-supplied records; all I/O lives with the callers.
package status

import "time"

// Window lengths in calendar days. A window of N days at day j covers the
// inclusive day range [j-(N-1), j], so the as-of day itself counts as the
// first of the N days.
const (
	SixWeekDays = 42
	ThirtyDays  = 30
)

// Day truncates a timestamp to its UTC calendar day (midnight).
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// dayIndex returns the number of calendar days from start to t. Both inputs
// must already be UTC midnights.
func dayIndex(t, start time.Time) int {
	return int(t.Sub(start) / (24 * time.Hour))
}
