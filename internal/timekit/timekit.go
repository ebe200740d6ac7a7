// Package timekit is the single crossing point between naive
// wall-clock local times and aware UTC instants. Per spec §4.1/§9,
// every time computation that involves a user crosses timekit exactly
// once on entry and once on exit; no other package in this module
// calls time.LoadLocation directly. Adapted from the teacher's
// internal/utils/time.go (LoadLocation/NowInTimezone/ParseTimeInLocation
// family), generalized into the Instant/LocalDateTime distinction the
// spec's design notes call for.
package timekit

import (
	"fmt"
	"time"
)

// Instant is an aware UTC point in time. It is always safe to compare,
// subtract, and store.
type Instant = time.Time

// LocalDate is a wall-clock calendar date with no time-of-day
// component, scoped to a particular timezone by the caller.
type LocalDate struct {
	Year  int
	Month time.Month
	Day   int
}

func (d LocalDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// AddDays returns the date d+n days (n may be negative).
func (d LocalDate) AddDays(n int) LocalDate {
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
	return LocalDate{t.Year(), t.Month(), t.Day()}
}

// Before reports whether d is strictly before other.
func (d LocalDate) Before(other LocalDate) bool {
	return d.toOrdinal() < other.toOrdinal()
}

// After reports whether d is strictly after other.
func (d LocalDate) After(other LocalDate) bool {
	return d.toOrdinal() > other.toOrdinal()
}

func (d LocalDate) toOrdinal() int {
	return d.Year*10000 + int(d.Month)*100 + d.Day
}

// Sub returns the number of whole days between d and other (d - other).
func (d LocalDate) Sub(other LocalDate) int {
	dt := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	ot := time.Date(other.Year, other.Month, other.Day, 0, 0, 0, 0, time.UTC)
	return int(dt.Sub(ot).Hours() / 24)
}

// LoadLocation loads a timezone location from an IANA name. "Local" or
// empty means the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(timezone)
}

// ValidateTimezone reports whether timezone is a loadable IANA name.
func ValidateTimezone(timezone string) bool {
	_, err := LoadLocation(timezone)
	return err == nil
}

// LocalMidnight returns the UTC instant of 00:00 local time on the
// date containing ref in tz.
func LocalMidnight(ref Instant, tz *time.Location) Instant {
	local := ref.In(tz)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz)
}

// LocalDateOf returns the calendar date containing inst, as seen in tz.
func LocalDateOf(inst Instant, tz *time.Location) LocalDate {
	local := inst.In(tz)
	return LocalDate{local.Year(), local.Month(), local.Day()}
}

// parseHHMM parses an "HH:MM" string into hour/minute components.
func parseHHMM(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// WindowToUTCRange takes a local-wall-clock window [startLocal,
// endLocal) on the local calendar date dayStart and returns the UTC
// interval for that day in tz. If
// end <= start the window is treated as overnight and 24h are added
// to the end, per spec §4.1.
func WindowToUTCRange(dayStart LocalDate, startLocal, endLocal string, tz *time.Location) (start, end Instant, err error) {
	sh, sm, err := parseHHMM(startLocal)
	if err != nil {
		return Instant{}, Instant{}, err
	}
	eh, em, err := parseHHMM(endLocal)
	if err != nil {
		return Instant{}, Instant{}, err
	}

	start = time.Date(dayStart.Year, dayStart.Month, dayStart.Day, sh, sm, 0, 0, tz)
	end = time.Date(dayStart.Year, dayStart.Month, dayStart.Day, eh, em, 0, 0, tz)
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end, nil
}

// RoundToNearest rounds inst to the nearest multiple of the given
// minutes, rounding halves up.
func RoundToNearest(inst Instant, minutes int) Instant {
	if minutes <= 0 {
		return inst
	}
	d := time.Duration(minutes) * time.Minute
	rounded := inst.Round(d)
	return rounded
}

// CombineLocalDateAndTime combines a LocalDate and an "HH:MM" string
// into the UTC instant they denote in tz.
func CombineLocalDateAndTime(date LocalDate, hhmm string, tz *time.Location) (Instant, error) {
	h, m, err := parseHHMM(hhmm)
	if err != nil {
		return Instant{}, err
	}
	return time.Date(date.Year, date.Month, date.Day, h, m, 0, 0, tz), nil
}

// Now returns the current UTC instant rounded to the nearest 5
// minutes, the reference instant the Planner always allocates from.
func Now() Instant {
	return RoundToNearest(time.Now().UTC(), 5)
}
