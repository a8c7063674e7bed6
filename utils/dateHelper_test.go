package utils

import (
	"testing"
	"time"
)

func TestCalendarDaysBetween_IgnoresTimeOfDay(t *testing.T) {
	cases := []struct {
		from, to time.Time
		expected int
	}{
		{time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC), time.Date(2024, 3, 2, 0, 1, 0, 0, time.UTC), 1},
		{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC), 0},
		{time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC), time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC), 29},
		{time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), -5},
	}
	for _, tc := range cases {
		if got := CalendarDaysBetween(tc.from, tc.to); got != tc.expected {
			t.Fatalf("CalendarDaysBetween(%s, %s) expected %d, got %d", tc.from, tc.to, tc.expected, got)
		}
	}
}

func TestParseDate_Shapes(t *testing.T) {
	want := time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)
	for _, in := range []any{"2024-05-17", []byte("2024-05-17"), "2024-05-17T00:00:00Z", want, &want} {
		got, ok := ParseDate(in)
		if !ok {
			t.Fatalf("ParseDate(%#v) not ok", in)
		}
		if !DateOnly(got).Equal(want) {
			t.Fatalf("ParseDate(%#v) expected %s, got %s", in, want, got)
		}
	}
	for _, in := range []any{nil, "", "not a date", 42, time.Time{}} {
		if _, ok := ParseDate(in); ok {
			t.Fatalf("ParseDate(%#v) expected not ok", in)
		}
	}
}
