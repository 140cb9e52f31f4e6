// Package datetime resolves user timezones and computes relative dates.
package datetime

import (
	"strings"
	"time"
	_ "time/tzdata" // IANA database for hosts without zoneinfo
)

// DayType selects how offsets are counted.
type DayType string

const (
	Calendar DayType = "calendar"
	Business DayType = "business"
)

// ResolveTimezone loads an IANA timezone, falling back to UTC for empty or
// unknown names.
func ResolveTimezone(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" || name == "Local" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NowIn returns now converted to the named timezone, formatted as ISO 8601,
// together with the name of the timezone actually used.
func NowIn(name string, now time.Time) (string, string) {
	loc := ResolveTimezone(name)
	return now.In(loc).Format(time.RFC3339), loc.String()
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.DateOnly,
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04Z07:00",
}

// Parse reads an ISO 8601 datetime and converts it to the named timezone.
// Values without an offset are interpreted in that timezone. Unparsable
// values yield now.
func Parse(value, tz string, now time.Time) time.Time {
	loc := ResolveTimezone(tz)
	value = strings.TrimSpace(value)

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.In(loc)
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t
		}
	}
	return now.UTC().In(loc)
}

// ApplyBusinessDays walks one day at a time in the direction of offset,
// counting only Monday to Friday.
func ApplyBusinessDays(start time.Time, offset int) time.Time {
	step := 1
	remaining := offset
	if offset < 0 {
		step = -1
		remaining = -offset
	}

	current := start
	for remaining > 0 {
		current = current.AddDate(0, 0, step)
		if wd := current.Weekday(); wd != time.Saturday && wd != time.Sunday {
			remaining--
		}
	}
	return current
}

// Offset moves start by offset days of the given type.
// Unknown day types count calendar days.
func Offset(start time.Time, offset int, dayType DayType) time.Time {
	if dayType == Business {
		return ApplyBusinessDays(start, offset)
	}
	return start.AddDate(0, 0, offset)
}

// Format renders a date as "YYYY-MM-DD (Weekday)".
func Format(t time.Time) string {
	return t.Format("2006-01-02 (Monday)")
}
