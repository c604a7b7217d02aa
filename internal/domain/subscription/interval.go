package subscription

import (
	"fmt"
	"time"
)

type Interval string

const (
	IntervalDay     Interval = "day"
	IntervalWeek    Interval = "week"
	IntervalMonth   Interval = "month"
	IntervalQuarter Interval = "quarter"
	IntervalYear    Interval = "year"
)

func (i Interval) Valid() bool {
	switch i {
	case IntervalDay, IntervalWeek, IntervalMonth, IntervalQuarter, IntervalYear:
		return true
	}
	return false
}

// AddInterval advances t by one unit using calendar arithmetic. Month-based
// units clamp to the last day of the target month, so Jan 31 + 1 month is
// Feb 28 (or 29) rather than spilling into March.
func AddInterval(t time.Time, unit Interval) (time.Time, error) {
	switch unit {
	case IntervalDay:
		return t.AddDate(0, 0, 1), nil
	case IntervalWeek:
		return t.AddDate(0, 0, 7), nil
	case IntervalMonth:
		return addMonthsClamped(t, 1, t.Day()), nil
	case IntervalQuarter:
		return addMonthsClamped(t, 3, t.Day()), nil
	case IntervalYear:
		return addMonthsClamped(t, 12, t.Day()), nil
	default:
		return time.Time{}, fmt.Errorf("unknown billing interval %q", unit)
	}
}

// NextPeriodEnd is AddInterval for a renewing subscription. Month-based units
// land on the anchor's day of month, so a period clamped to Feb 28 is followed
// by Mar 31 for a subscription anchored on the 31st. A zero anchor behaves
// like AddInterval.
func NextPeriodEnd(start, anchor time.Time, unit Interval) (time.Time, error) {
	if anchor.IsZero() {
		return AddInterval(start, unit)
	}
	switch unit {
	case IntervalMonth:
		return addMonthsClamped(start, 1, anchor.Day()), nil
	case IntervalQuarter:
		return addMonthsClamped(start, 3, anchor.Day()), nil
	case IntervalYear:
		return addMonthsClamped(start, 12, anchor.Day()), nil
	default:
		return AddInterval(start, unit)
	}
}

// addMonthsClamped moves t forward by months and sets the day, clamped to the
// length of the target month.
func addMonthsClamped(t time.Time, months, day int) time.Time {
	year, month, _ := t.Date()
	hour, min, sec := t.Clock()

	// Day 1 never normalizes, so this is the true target month.
	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
