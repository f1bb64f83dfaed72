package services

import "time"

// DateOnly truncates t to its UTC calendar date (midnight UTC).
// All streak and period arithmetic runs on UTC day boundaries.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same UTC calendar date.
func SameDay(a, b time.Time) bool {
	return DateOnly(a).Equal(DateOnly(b))
}

// NextStreak computes the daily streak after an activity on "today".
//
//   - already active today       → streak unchanged (idempotent re-entry)
//   - last active yesterday      → streak + 1
//   - gap of 2+ days, or never   → streak restarts at 1
//
// The caller persists the result together with longest_streak =
// max(longest_streak, next) and last_activity_date = today.
func NextStreak(today time.Time, lastActivity *time.Time, currentStreak int) int {
	today = DateOnly(today)
	if lastActivity == nil {
		return 1
	}
	last := DateOnly(*lastActivity)
	switch {
	case last.Equal(today):
		return currentStreak
	case last.Equal(today.AddDate(0, 0, -1)):
		return currentStreak + 1
	default:
		return 1
	}
}

// StreakMilestones are the streak lengths surfaced as achievements the call
// they are hit exactly.
var StreakMilestones = []int{3, 7, 30, 100}
