// Package timeutil provides UTC calendar-day utilities for the gamification
// engine. Streak semantics are defined in terms of calendar days, so every
// day-boundary computation goes through this package.
// No external dependencies - uses only standard library.
package timeutil

import "time"

// StartOfDay returns the start of the UTC calendar day containing t.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last nanosecond of the UTC calendar day containing t.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(24*time.Hour - time.Nanosecond)
}

// SameDay reports whether a and b fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return StartOfDay(a).Equal(StartOfDay(b))
}

// DaysBetween returns the number of whole UTC calendar days from a to b.
// Returns 0 for the same day, 1 for consecutive days, negative if b is
// before a.
func DaysBetween(a, b time.Time) int {
	return int(StartOfDay(b).Sub(StartOfDay(a)).Hours() / 24)
}

// StartOfWeek returns the start of the ISO week (Monday 00:00 UTC) containing t.
func StartOfWeek(t time.Time) time.Time {
	u := StartOfDay(t)
	weekday := int(u.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	return u.AddDate(0, 0, -(weekday - 1))
}

// DaysAgo returns the start of the UTC calendar day n days before t.
func DaysAgo(t time.Time, n int) time.Time {
	return StartOfDay(t).AddDate(0, 0, -n)
}
