package core

import (
	"fmt"
	"time"
)

// NextDueDate computes the next occurrence date for a bill. It is pure and
// safe for concurrent use: callers pass the anchor date explicitly.
//
// Monthly advances by one calendar month, keeping the day of month; when the
// target month is shorter the date is clamped to that month's last day
// (Jan 31 -> Feb 29 in a leap year). Weekly and biweekly advance by exactly
// 7 and 14 days.
func NextDueDate(f Frequency, from time.Time) (time.Time, error) {
	switch f {
	case Weekly:
		return from.AddDate(0, 0, 7), nil
	case Biweekly:
		return from.AddDate(0, 0, 14), nil
	case Monthly:
		return addOneMonthClamped(from), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidFrequency, string(f))
	}
}

// addOneMonthClamped is not time.AddDate: AddDate normalizes Jan 31 + 1 month
// to Mar 2/3, while bills due on the 31st stay on the last day of short months.
func addOneMonthClamped(t time.Time) time.Time {
	year, month, day := t.Date()

	// Day 0 of month+2 is the last day of month+1; time.Date normalizes
	// month overflow across year boundaries.
	lastDay := time.Date(year, month+2, 0, 0, 0, 0, 0, t.Location()).Day()
	if day > lastDay {
		day = lastDay
	}

	return time.Date(year, month+1, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
