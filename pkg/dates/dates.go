// Package dates normalizes the date strings returned by the DVLA and DVSA
// APIs and provides the month arithmetic used to estimate MOT due dates.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ISOLayout is the canonical calendar date layout returned to callers.
const ISOLayout = "2006-01-02"

var (
	dottedPattern = regexp.MustCompile(`^\d{4}\.\d{2}\.\d{2}$`)
	isoPattern    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	monthPattern  = regexp.MustCompile(`^(\d{4})[-.](\d{2})(?:[-.]\d{2})?$`)
)

// NormalizeISO rewrites DVSA style "YYYY.MM.DD" dates to "YYYY-MM-DD".
// ISO dates and unrecognised values are returned unchanged (trimmed), so a
// human readable value is never discarded.
func NormalizeISO(value string) string {
	s := strings.TrimSpace(value)
	if s == "" {
		return ""
	}
	if dottedPattern.MatchString(s) {
		return strings.ReplaceAll(s, ".", "-")
	}
	return s
}

// ParseISO parses a strict YYYY-MM-DD calendar date.
func ParseISO(value string) (time.Time, bool) {
	s := strings.TrimSpace(value)
	if !isoPattern.MatchString(s) {
		return time.Time{}, false
	}
	t, err := time.Parse(ISOLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsISO reports whether value is a valid YYYY-MM-DD calendar date.
func IsISO(value string) bool {
	_, ok := ParseISO(value)
	return ok
}

// ParseYearMonth extracts the year and month from "YYYY-MM", "YYYY-MM-DD" or
// their dotted equivalents.
func ParseYearMonth(value string) (int, time.Month, bool) {
	m := monthPattern.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return 0, 0, false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil || year == 0 {
		return 0, 0, false
	}
	month, err := strconv.Atoi(m[2])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, time.Month(month), true
}

// LastDayOfMonthAfter returns the last calendar day of the month that is
// months months after year/month.
func LastDayOfMonthAfter(year int, month time.Month, months int) time.Time {
	// Day 0 of the following month normalizes to the last day of the target month.
	return time.Date(year, month+time.Month(months)+1, 0, 0, 0, 0, 0, time.UTC)
}

// Format renders t as YYYY-MM-DD.
func Format(t time.Time) string {
	return t.Format(ISOLayout)
}
