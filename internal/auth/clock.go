package auth

import "time"

// Clock reads the current time. Components that make time-based decisions take a Clock
// so tests can move time forward without sleeping.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}
