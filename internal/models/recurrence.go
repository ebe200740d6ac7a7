package models

import "time"

// Pattern is the tagged-variant recurrence rule stored on a recurring
// task template, per spec §6's JSON shape. Rather than a loosely typed
// JSON blob, each frequency's fields are named so RecurrenceEngine can
// switch on Frequency without re-validating shape at every call site.
//
// DaysOfWeek uses the spec's convention: 0=Monday .. 6=Sunday. Use
// SpecWeekday/FromSpecWeekday to convert to/from time.Weekday, which
// uses 0=Sunday.
type Pattern struct {
	Frequency RecurrenceFrequency `json:"frequency"`
	Interval  int                 `json:"interval,omitempty"` // >= 1, default 1

	// Weekly/Biweekly
	DaysOfWeek []int `json:"days_of_week,omitempty"` // 0=Monday .. 6=Sunday

	// Monthly: exactly one of DayOfMonth or (WeekOfMonth + one entry in
	// DaysOfWeek) is set. DayOfMonth alone is the monthly_date variant;
	// WeekOfMonth+DaysOfWeek[0] is monthly_day (e.g. "last Friday").
	DayOfMonth  int `json:"day_of_month,omitempty"`  // 1..31
	WeekOfMonth int `json:"week_of_month,omitempty"` // 1..4, or -1 for "last"

	// Yearly: Month + DayOfMonth (e.g. January 1st).
	Month time.Month `json:"month,omitempty"`

	// Daily
	WeekdaysOnly bool `json:"weekdays_only,omitempty"`

	AdvanceDays int `json:"advance_days,omitempty"`
}

// NormalizedInterval returns Interval, defaulting to 1 when unset.
func (p Pattern) NormalizedInterval() int {
	if p.Interval < 1 {
		return 1
	}
	return p.Interval
}

// HasWeekday reports whether d (spec 0=Monday convention) is one of
// the pattern's configured days.
func (p Pattern) HasWeekday(d int) bool {
	for _, wd := range p.DaysOfWeek {
		if wd == d {
			return true
		}
	}
	return false
}

// SpecWeekday converts a Go time.Weekday (0=Sunday) into the spec's
// 0=Monday convention used by days_of_week.
func SpecWeekday(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// FromSpecWeekday converts the spec's 0=Monday weekday index back into
// a time.Weekday.
func FromSpecWeekday(n int) time.Weekday {
	return time.Weekday((n + 1) % 7)
}
