package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayWindow(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	now := time.Date(2025, 3, 14, 13, 45, 12, 999, loc)

	start, end := DayWindow(now)

	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, loc), end)
	assert.Equal(t, 24*time.Hour, end.Sub(start))
}

func TestDayWindowMidnightBoundary(t *testing.T) {
	loc := time.Local
	lateNight := time.Date(2025, 3, 14, 23, 59, 59, 0, loc)
	earlyMorning := time.Date(2025, 3, 15, 0, 0, 1, 0, loc)

	startA, _ := DayWindow(lateNight)
	startB, _ := DayWindow(earlyMorning)

	// Two sides of midnight belong to different calendar days.
	assert.False(t, startA.Equal(startB))
	assert.Equal(t, 24*time.Hour, startB.Sub(startA))
}

func TestDayWindowIsIdempotentOnItsOwnStart(t *testing.T) {
	start, _ := DayWindow(time.Date(2025, 6, 1, 9, 30, 0, 0, time.Local))
	again, _ := DayWindow(start)
	assert.Equal(t, start, again)
}
