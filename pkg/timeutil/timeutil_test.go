package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartOfDay(t *testing.T) {
	in := time.Date(2026, time.March, 5, 17, 42, 9, 123, time.UTC)
	assert.Equal(t, time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC), StartOfDay(in))
}

func TestStartOfDayNormalizesZone(t *testing.T) {
	// 23:30 in UTC+5 is 18:30 UTC the same day.
	zone := time.FixedZone("UTC+5", 5*60*60)
	in := time.Date(2026, time.March, 5, 23, 30, 0, 0, zone)
	assert.Equal(t, time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC), StartOfDay(in))
}

func TestSameDay(t *testing.T) {
	a := time.Date(2026, time.March, 5, 0, 0, 1, 0, time.UTC)
	b := time.Date(2026, time.March, 5, 23, 59, 59, 0, time.UTC)
	c := time.Date(2026, time.March, 6, 0, 0, 0, 0, time.UTC)

	assert.True(t, SameDay(a, b))
	assert.False(t, SameDay(b, c))
}

func TestDaysBetween(t *testing.T) {
	d1 := time.Date(2026, time.March, 5, 23, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, time.March, 6, 1, 0, 0, 0, time.UTC)
	d3 := time.Date(2026, time.March, 8, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysBetween(d1, d1))
	assert.Equal(t, 1, DaysBetween(d1, d2))
	assert.Equal(t, 3, DaysBetween(d1, d3))
	assert.Equal(t, -1, DaysBetween(d2, d1))
}

func TestStartOfWeek(t *testing.T) {
	// 2026-03-05 is a Thursday; the week starts Monday 2026-03-02.
	thursday := time.Date(2026, time.March, 5, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC), StartOfWeek(thursday))

	// Sunday belongs to the week starting the previous Monday.
	sunday := time.Date(2026, time.March, 8, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC), StartOfWeek(sunday))
}
