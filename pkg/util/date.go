package util

import (
    "errors"
    "strconv"
    "time"
)

// ErrInvalidDate is returned for non-positive counts or unusable dates.
var ErrInvalidDate = errors.New("util: invalid date or count")

// Normalize strips timezone and clock information, returning the naive
// midnight representation of d. All business-day arithmetic operates on
// normalized dates so comparisons are deterministic regardless of the
// source timezone.
func Normalize(d time.Time) time.Time {
    y, m, day := d.Date()
    return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// IsBusinessDay reports whether d falls on a weekday. No holiday calendar.
func IsBusinessDay(d time.Time) bool {
    wd := d.Weekday()
    return wd != time.Saturday && wd != time.Sunday
}

// NextBusinessDay returns the first weekday strictly after d.
func NextBusinessDay(d time.Time) time.Time {
    d = Normalize(d).AddDate(0, 0, 1)
    for !IsBusinessDay(d) {
        d = d.AddDate(0, 0, 1)
    }
    return d
}

// NextBusinessDays returns the next count weekdays strictly after last,
// in increasing order. If last itself is a weekend day, counting still
// begins at last+1 and skips forward to the first weekday.
func NextBusinessDays(last time.Time, count int) ([]time.Time, error) {
    if count <= 0 {
        return nil, ErrInvalidDate
    }
    out := make([]time.Time, 0, count)
    d := Normalize(last)
    for len(out) < count {
        d = d.AddDate(0, 0, 1)
        if IsBusinessDay(d) {
            out = append(out, d)
        }
    }
    return out, nil
}

// BusinessDaysBetween counts weekdays in (from, to]. Returns 0 when
// to is not after from. Used for data-staleness checks.
func BusinessDaysBetween(from, to time.Time) int {
    from = Normalize(from)
    to = Normalize(to)
    n := 0
    for d := from.AddDate(0, 0, 1); !d.After(to); d = d.AddDate(0, 0, 1) {
        if IsBusinessDay(d) {
            n++
        }
    }
    return n
}

// ParseTime tries RFC3339, a bare date, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
    if s == "" {
        return time.Time{}, false
    }
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return t, true
    }
    if t, err := time.Parse("2006-01-02", s); err == nil {
        return t, true
    }
    if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
        return time.Unix(ts, 0), true
    }
    return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
    if t, ok := ParseTime(s); ok {
        return t
    }
    return def
}
