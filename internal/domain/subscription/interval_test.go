package subscription

import (
	"testing"
	"time"
)

func TestAddInterval(t *testing.T) {
	base := time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		unit Interval
		want time.Time
	}{
		{IntervalDay, time.Date(2026, time.March, 16, 10, 30, 0, 0, time.UTC)},
		{IntervalWeek, time.Date(2026, time.March, 22, 10, 30, 0, 0, time.UTC)},
		{IntervalMonth, time.Date(2026, time.April, 15, 10, 30, 0, 0, time.UTC)},
		{IntervalQuarter, time.Date(2026, time.June, 15, 10, 30, 0, 0, time.UTC)},
		{IntervalYear, time.Date(2027, time.March, 15, 10, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(string(tt.unit), func(t *testing.T) {
			got, err := AddInterval(base, tt.unit)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			if !got.After(base) {
				t.Fatal("period end must be strictly after period start")
			}
		})
	}
}

func TestAddIntervalMonthLandsInFollowingMonth(t *testing.T) {
	for day := 1; day <= 31; day++ {
		start := time.Date(2026, time.January, day, 0, 0, 0, 0, time.UTC)
		got, err := AddInterval(start, IntervalMonth)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Month() != time.February || got.Year() != 2026 {
			t.Fatalf("Jan %d + 1 month = %v, want a date in February 2026", day, got)
		}
	}
}

func TestAddIntervalClampsMonthEnd(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		unit  Interval
		want  time.Time
	}{
		{"jan31 non-leap", time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC), IntervalMonth, time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC)},
		{"jan31 leap", time.Date(2028, time.January, 31, 0, 0, 0, 0, time.UTC), IntervalMonth, time.Date(2028, time.February, 29, 0, 0, 0, 0, time.UTC)},
		{"nov30 quarter", time.Date(2026, time.November, 30, 0, 0, 0, 0, time.UTC), IntervalQuarter, time.Date(2027, time.February, 28, 0, 0, 0, 0, time.UTC)},
		{"feb29 year", time.Date(2028, time.February, 29, 0, 0, 0, 0, time.UTC), IntervalYear, time.Date(2029, time.February, 28, 0, 0, 0, 0, time.UTC)},
		{"dec31 month", time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC), IntervalMonth, time.Date(2027, time.January, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AddInterval(tt.start, tt.unit)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAddIntervalUnknownUnit(t *testing.T) {
	if _, err := AddInterval(time.Now(), Interval("fortnight")); err == nil {
		t.Fatal("expected an error for an unknown unit")
	}
	if Interval("fortnight").Valid() {
		t.Fatal("fortnight must not be a valid interval")
	}
}

func TestNextPeriodEndKeepsAnchorDay(t *testing.T) {
	anchor := time.Date(2026, time.January, 31, 9, 0, 0, 0, time.UTC)

	want := []time.Time{
		time.Date(2026, time.February, 28, 9, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 31, 9, 0, 0, 0, time.UTC),
		time.Date(2026, time.April, 30, 9, 0, 0, 0, time.UTC),
		time.Date(2026, time.May, 31, 9, 0, 0, 0, time.UTC),
	}
	start := anchor
	for i, w := range want {
		end, err := NextPeriodEnd(start, anchor, IntervalMonth)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !end.Equal(w) {
			t.Fatalf("period %d ends %v, want %v", i+1, end, w)
		}
		start = end
	}
}

func TestNextPeriodEndWithoutAnchor(t *testing.T) {
	start := time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC)
	got, err := NextPeriodEnd(start, time.Time{}, IntervalMonth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2026, time.March, 28, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	got, _ = NextPeriodEnd(start, time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC), IntervalWeek)
	if want := time.Date(2026, time.March, 7, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("week: got %v, want %v", got, want)
	}
}
