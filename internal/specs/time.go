package specs

import "time"

// timeNow is a package-level variable for testability.
// Tests can replace this to control time in assertions.
var timeNow = time.Now

// Now returns the current UTC time formatted as RFC3339 with a fixed
// nanosecond width, so stored timestamps sort lexically.
func Now() string {
	return timeNow().UTC().Format(TimeLayout)
}

// TimeLayout is the timestamp format used across the store.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SetClock replaces the clock and returns a function restoring it.
func SetClock(now func() time.Time) (restore func()) {
	prev := timeNow
	timeNow = now
	return func() { timeNow = prev }
}
