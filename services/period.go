package services

import "time"

// Period is an inclusive calendar-date range.
type Period struct {
	Start time.Time
	End   time.Time
}

// DayBounds returns the single-day period containing ref.
func DayBounds(ref time.Time) Period {
	d := DateOnly(ref)
	return Period{Start: d, End: d}
}

// WeekBounds returns the ISO-8601 week (Monday through Sunday) containing ref.
func WeekBounds(ref time.Time) Period {
	d := DateOnly(ref)
	// time.Weekday counts Sunday as 0; shift so Monday is 0.
	offset := (int(d.Weekday()) + 6) % 7
	start := d.AddDate(0, 0, -offset)
	return Period{Start: start, End: start.AddDate(0, 0, 6)}
}

// MonthBounds returns the calendar month containing ref. The end is computed
// by calendar arithmetic so 28–31 day months all come out right.
func MonthBounds(ref time.Time) Period {
	d := DateOnly(ref)
	start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(0, 1, -1)}
}
