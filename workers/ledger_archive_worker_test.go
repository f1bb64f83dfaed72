package workers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPreviousMonth(t *testing.T) {
	cases := []struct {
		ref        time.Time
		startMonth time.Month
		startYear  int
		endDay     int
	}{
		// Late-month refs must land in the prior month, never skip forward.
		{time.Date(2026, 3, 31, 10, 0, 0, 0, time.UTC), time.February, 2026, 28},
		{time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC), time.April, 2026, 30},
		{time.Date(2026, 7, 1, 4, 0, 0, 0, time.UTC), time.June, 2026, 30},
		// Year boundary.
		{time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), time.December, 2025, 31},
		// Leap February.
		{time.Date(2024, 3, 30, 0, 0, 0, 0, time.UTC), time.February, 2024, 29},
	}
	for _, tc := range cases {
		p := previousMonth(tc.ref)
		assert.Equal(t, tc.startMonth, p.Start.Month(), "ref %s", tc.ref)
		assert.Equal(t, tc.startYear, p.Start.Year(), "ref %s", tc.ref)
		assert.Equal(t, 1, p.Start.Day())
		assert.Equal(t, tc.endDay, p.End.Day(), "ref %s", tc.ref)
	}
}
