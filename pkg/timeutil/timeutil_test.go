package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayArithmetic(t *testing.T) {
	a := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	b := time.Date(2026, 3, 2, 0, 1, 0, 0, time.UTC)

	assert.False(t, IsSameDay(a, b))
	assert.True(t, IsConsecutiveDay(a, b))
	assert.Equal(t, 1, DaysBetween(a, b))
	assert.Equal(t, -1, DaysBetween(b, a))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), StartOfDay(a))
}

func TestStartOfDayConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	local := time.Date(2026, 3, 2, 3, 0, 0, 0, loc) // 2026-03-01 22:00 UTC

	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), StartOfDay(local))
}

func TestFixedClock(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewFixedClock(start)

	assert.Equal(t, start, c.Now())
	c.Advance(24 * time.Hour)
	assert.Equal(t, start.Add(24*time.Hour), c.Now())
}

func TestFormatRFC3339(t *testing.T) {
	assert.Equal(t, "", FormatRFC3339(time.Time{}))
	assert.Equal(t, "2026-01-01T12:00:00Z", FormatRFC3339(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)))
}
