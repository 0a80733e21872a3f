package util

import (
    "errors"
    "testing"
    "time"
)

func TestNextBusinessDaysSkipsWeekends(t *testing.T) {
    // Friday
    last := time.Date(2024, 10, 11, 0, 0, 0, 0, time.UTC)
    got, err := NextBusinessDays(last, 5)
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if len(got) != 5 {
        t.Fatalf("expected 5 days, got %d", len(got))
    }
    prev := last
    for _, d := range got {
        if !d.After(prev) {
            t.Fatalf("dates not strictly increasing: %v after %v", d, prev)
        }
        if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
            t.Fatalf("weekend date returned: %v", d)
        }
        prev = d
    }
    // Fri 11th -> Mon 14th first
    if !got[0].Equal(time.Date(2024, 10, 14, 0, 0, 0, 0, time.UTC)) {
        t.Fatalf("unexpected first day %v", got[0])
    }
}

func TestNextBusinessDaysFromWeekend(t *testing.T) {
    // Saturday
    last := time.Date(2024, 10, 12, 0, 0, 0, 0, time.UTC)
    got, err := NextBusinessDays(last, 1)
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if !got[0].Equal(time.Date(2024, 10, 14, 0, 0, 0, 0, time.UTC)) {
        t.Fatalf("expected Monday, got %v", got[0])
    }
}

func TestNextBusinessDaysInvalidCount(t *testing.T) {
    if _, err := NextBusinessDays(time.Now(), 0); !errors.Is(err, ErrInvalidDate) {
        t.Fatalf("expected ErrInvalidDate, got %v", err)
    }
    if _, err := NextBusinessDays(time.Now(), -3); !errors.Is(err, ErrInvalidDate) {
        t.Fatalf("expected ErrInvalidDate, got %v", err)
    }
}

func TestNormalizeStripsZoneAndClock(t *testing.T) {
    loc := time.FixedZone("UTC+7", 7*3600)
    d := time.Date(2024, 10, 11, 16, 30, 12, 999, loc)
    got := Normalize(d)
    if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 || got.Nanosecond() != 0 {
        t.Fatalf("clock not stripped: %v", got)
    }
    if got.Day() != 11 {
        t.Fatalf("calendar day changed: %v", got)
    }
    if _, off := got.Zone(); off != 0 {
        t.Fatalf("offset not stripped: %v", got)
    }
}

func TestBusinessDaysBetween(t *testing.T) {
    // Fri -> next Fri: 5 weekdays
    from := time.Date(2024, 10, 11, 0, 0, 0, 0, time.UTC)
    to := time.Date(2024, 10, 18, 0, 0, 0, 0, time.UTC)
    if n := BusinessDaysBetween(from, to); n != 5 {
        t.Fatalf("expected 5, got %d", n)
    }
    if n := BusinessDaysBetween(to, from); n != 0 {
        t.Fatalf("expected 0, got %d", n)
    }
}

func TestParseTimeFormats(t *testing.T) {
    if got, ok := ParseTime("2024-10-10T10:10:10Z"); !ok || got.Hour() != 10 {
        t.Fatalf("rfc3339 parse failed: %v %v", got, ok)
    }
    if got, ok := ParseTime("2024-10-10"); !ok || got.Day() != 10 {
        t.Fatalf("date parse failed: %v %v", got, ok)
    }
    ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
    if got, ok := ParseTime("1728555010"); !ok || got.Unix() != ts {
        t.Fatalf("unix parse failed: %v %v", got, ok)
    }
    def := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
    if got := ParseTimeDefault("", def); !got.Equal(def) {
        t.Fatalf("expected default")
    }
}
