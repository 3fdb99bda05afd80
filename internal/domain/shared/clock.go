// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import "time"

// Clock provides the current time to domain operations. Tracking and
// evaluation logic must never call time.Now() directly: streak-window
// behavior depends on calendar-day boundaries and has to be deterministic
// under test.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock is the production Clock backed by the wall clock, in UTC.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock is a Clock pinned to a settable instant, for tests.
type FixedClock struct {
	Current time.Time
}

// Now implements Clock.
func (c *FixedClock) Now() time.Time {
	return c.Current
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.Current = c.Current.Add(d)
}

// AdvanceDays moves the clock forward by whole calendar days.
func (c *FixedClock) AdvanceDays(days int) {
	c.Current = c.Current.AddDate(0, 0, days)
}

// NewFixedClock creates a FixedClock pinned to t.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{Current: t}
}
