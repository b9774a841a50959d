package attendance

import "time"

// DayWindow returns the half-open interval [start, end) covering the calendar
// day that contains now, in now's location. start is local midnight and end is
// exactly 24h later; new records stamp start as their CalendarDay.
func DayWindow(now time.Time) (start, end time.Time) {
	start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start, start.Add(24 * time.Hour)
}
