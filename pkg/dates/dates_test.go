package dates

import (
	"testing"
	"time"
)

func TestNormalizeISO(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "2014.11.02", want: "2014-11-02"},
		{in: "2014-11-02", want: "2014-11-02"},
		{in: "not a date", want: "not a date"},
		{in: "", want: ""},
		{in: "  2021.01.31 ", want: "2021-01-31"},
		{in: "2014.1.2", want: "2014.1.2"},
		{in: "2023-01-01T10:00:00.000Z", want: "2023-01-01T10:00:00.000Z"},
	}

	for _, tt := range tests {
		if got := NormalizeISO(tt.in); got != tt.want {
			t.Fatalf("NormalizeISO(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseISO(t *testing.T) {
	if _, ok := ParseISO("2025-05-31"); !ok {
		t.Fatalf("expected valid ISO date")
	}
	for _, in := range []string{"", "2025.05.31", "2025-02-30", "31/05/2025", "2025-5-1"} {
		if _, ok := ParseISO(in); ok {
			t.Fatalf("expected %q to be rejected", in)
		}
	}
}

func TestParseYearMonth(t *testing.T) {
	tests := []struct {
		in    string
		year  int
		month time.Month
		ok    bool
	}{
		{in: "2022-05", year: 2022, month: time.May, ok: true},
		{in: "2019-12-17", year: 2019, month: time.December, ok: true},
		{in: "2019.03.01", year: 2019, month: time.March, ok: true},
		{in: "2022-13", ok: false},
		{in: "2022-00", ok: false},
		{in: "May 2022", ok: false},
		{in: "", ok: false},
	}

	for _, tt := range tests {
		year, month, ok := ParseYearMonth(tt.in)
		if ok != tt.ok {
			t.Fatalf("ParseYearMonth(%q) ok=%v, want %v", tt.in, ok, tt.ok)
		}
		if ok && (year != tt.year || month != tt.month) {
			t.Fatalf("ParseYearMonth(%q) = %d-%d, want %d-%d", tt.in, year, month, tt.year, tt.month)
		}
	}
}

func TestLastDayOfMonthAfter(t *testing.T) {
	tests := []struct {
		year   int
		month  time.Month
		months int
		want   string
	}{
		{year: 2022, month: time.May, months: 36, want: "2025-05-31"},
		{year: 2021, month: time.February, months: 36, want: "2024-02-29"},
		{year: 2020, month: time.February, months: 36, want: "2023-02-28"},
		{year: 2019, month: time.December, months: 36, want: "2022-12-31"},
		{year: 2022, month: time.November, months: 0, want: "2022-11-30"},
	}

	for _, tt := range tests {
		if got := Format(LastDayOfMonthAfter(tt.year, tt.month, tt.months)); got != tt.want {
			t.Fatalf("LastDayOfMonthAfter(%d, %s, %d) = %s, want %s", tt.year, tt.month, tt.months, got, tt.want)
		}
	}
}
