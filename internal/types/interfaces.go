package types

import "time"

// Clock abstracts time for testability. "Today" in the status engine is
// always derived through a Clock so tests can pin the calendar.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }
