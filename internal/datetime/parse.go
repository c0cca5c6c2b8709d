// Package datetime normalizes every date-time encoding the registry and its
// callers use into a single comparable instant.
package datetime

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Layout is the canonical textual form used for slots leaving the registry adapter.
const Layout = "2006-01-02 15:04"

var ErrUnparseable = errors.New("unparseable date-time")

// months is indexed by month number minus one; names are in the genitive form
// the registry and chat texts use ("10 марта 10:00").
var months = [12]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

var (
	epochEnvelope = regexp.MustCompile(`^/Date\((-?\d+)([+-]\d{4})?\)/$`)
	localized     = regexp.MustCompile(`^(\d{1,2})\s+(\p{L}+)(?:\s+(\d{4}))?,?\s+(?:в\s+)?(\d{1,2}):(\d{2})$`)
)

// Parse converts raw into an instant. Values without an explicit offset are
// interpreted in loc; a localized value without a year takes the year of now.
func Parse(raw string, now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrUnparseable)
	}

	if m := epochEnvelope.FindStringSubmatch(s); m != nil {
		ms, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseable, raw)
		}
		return time.UnixMilli(ms).In(loc), nil
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}

	if m := localized.FindStringSubmatch(strings.ToLower(s)); m != nil {
		return parseLocalized(m, raw, now, loc)
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseable, raw)
}

func parseLocalized(m []string, raw string, now time.Time, loc *time.Location) (time.Time, error) {
	month := MonthNumber(m[2])
	if month == 0 {
		return time.Time{}, fmt.Errorf("%w: unknown month in %q", ErrUnparseable, raw)
	}
	day, _ := strconv.Atoi(m[1])
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])
	year := now.In(loc).Year()
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
	}
	if hour > 23 || minute > 59 {
		return time.Time{}, fmt.Errorf("%w: bad clock in %q", ErrUnparseable, raw)
	}

	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, fmt.Errorf("%w: bad day in %q", ErrUnparseable, raw)
	}
	return t, nil
}

// MonthNumber returns 1..12 for a month name from the table, or 0.
func MonthNumber(name string) int {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, m := range months {
		if m == name {
			return i + 1
		}
	}
	return 0
}

// MonthName returns the table entry for m.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return months[m-1]
}

// Resolve prefers an already decoded instant and falls back to parsing raw.
func Resolve(decoded time.Time, raw string, now time.Time, loc *time.Location) (time.Time, error) {
	if !decoded.IsZero() {
		return decoded, nil
	}
	return Parse(raw, now, loc)
}

// Format renders t in the canonical layout in loc.
func Format(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(Layout)
}

// Localized renders t as "<day> <month-name> HH:MM".
func Localized(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return fmt.Sprintf("%d %s %02d:%02d", t.Day(), MonthName(t.Month()), t.Hour(), t.Minute())
}
