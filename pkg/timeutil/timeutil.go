// Package timeutil provides calendar-date helpers and a mockable clock.
// Streak computation compares calendar date strings, so all date helpers
// operate on local calendar days rather than 24-hour windows.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// DateLayout is the layout used for calendar date strings (e.g. "2024-03-29").
const DateLayout = "2006-01-02"

// DateString returns the calendar date string for the given time.
func DateString(t time.Time) string {
	return t.Format(DateLayout)
}

// SameDay checks if two times fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return DateString(a) == DateString(b)
}

// IsYesterday checks if t falls on the calendar day before ref.
func IsYesterday(t, ref time.Time) bool {
	return DateString(t) == DateString(ref.AddDate(0, 0, -1))
}

// StartOfDay returns the start of the day (00:00:00) for the given time.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the number of whole calendar days between two times.
func DaysBetween(from, to time.Time) int {
	return int(StartOfDay(to).Sub(StartOfDay(from)).Hours() / 24)
}

// FormatSeconds renders a second count as "M:SS" for session timers.
func FormatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
