// Package recurrence expands recurring task templates into dated
// instances. Grounded on the teacher's internal/utils/recurrence.go
// (ShouldScheduleTask date-matching idiom) and the pattern vocabulary
// recovered from its scheduler_complex_recurrence_test.go
// (monthly_date, monthly_day Nth/last-weekday, yearly), generalized to
// the spec's tagged-variant models.Pattern.
package recurrence

import (
	"fmt"
	"time"

	"github.com/smartstudy/companion/internal/models"
	"github.com/smartstudy/companion/internal/timekit"
)

func toTime(d timekit.LocalDate) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Matches reports whether the recurring template task (with its
// RecurrencePattern) should produce an instance on date, honoring
// RecurrenceEndDate when set.
func Matches(task models.Task, date timekit.LocalDate) (bool, error) {
	if task.RecurrencePattern == nil {
		return false, fmt.Errorf("task %s has no recurrence pattern", task.ID)
	}
	if task.RecurrenceEndDate != nil {
		end := timekit.LocalDate{Year: task.RecurrenceEndDate.Year(), Month: task.RecurrenceEndDate.Month(), Day: task.RecurrenceEndDate.Day()}
		if date.After(end) {
			return false, nil
		}
	}
	return patternMatches(*task.RecurrencePattern, date)
}

func patternMatches(p models.Pattern, date timekit.LocalDate) (bool, error) {
	switch p.Frequency {
	case models.FrequencyDaily:
		if p.WeekdaysOnly && isWeekend(date) {
			return false, nil
		}
		return true, nil

	case models.FrequencyWeekly, models.FrequencyBiweekly:
		if len(p.DaysOfWeek) == 0 {
			return false, nil
		}
		wd := models.SpecWeekday(toTime(date).Weekday())
		if !p.HasWeekday(wd) {
			return false, nil
		}
		if p.Frequency == models.FrequencyBiweekly {
			interval := p.NormalizedInterval()
			if interval < 2 {
				interval = 2
			}
			return isAligned(date, interval), nil
		}
		return true, nil

	case models.FrequencyMonthly:
		if p.DayOfMonth > 0 {
			return date.Day == p.DayOfMonth, nil
		}
		if p.WeekOfMonth != 0 && len(p.DaysOfWeek) > 0 {
			return matchesNthWeekday(date, models.FromSpecWeekday(p.DaysOfWeek[0]), p.WeekOfMonth), nil
		}
		return false, fmt.Errorf("monthly pattern must set day_of_month or week_of_month+days_of_week")

	case models.FrequencyYearly:
		if p.Month == 0 || p.DayOfMonth == 0 {
			return false, fmt.Errorf("yearly pattern must set month and day_of_month")
		}
		return date.Month == p.Month && date.Day == p.DayOfMonth, nil

	default:
		return false, fmt.Errorf("unknown recurrence frequency %q", p.Frequency)
	}
}

func isWeekend(d timekit.LocalDate) bool {
	wd := toTime(d).Weekday()
	return wd == time.Sunday || wd == time.Saturday
}

// isAligned approximates "every Nth week" by matching weeks whose ISO
// week number is a multiple of intervalWeeks (week numbers restart at
// each ISO year, so the spacing can break at a year boundary), matching
// the teacher's
// N-day interval idiom (utils.ShouldScheduleTask's RecurrenceNDays
// case) adapted to week granularity rather than a stored LastDone.
func isAligned(d timekit.LocalDate, intervalWeeks int) bool {
	if intervalWeeks <= 1 {
		return true
	}
	_, week := toTime(d).ISOWeek()
	return week%intervalWeeks == 0
}

// matchesNthWeekday reports whether date is the nth occurrence of
// weekday within its month; n may be negative to mean "last".
func matchesNthWeekday(date timekit.LocalDate, weekday time.Weekday, n int) bool {
	if toTime(date).Weekday() != weekday {
		return false
	}
	if n > 0 {
		return (date.Day-1)/7+1 == n
	}
	// last occurrence: no date 7 days later falls in the same month.
	next := date.AddDays(7)
	return next.Month != date.Month
}

// Expand produces every instance date for template in [from, to]
// inclusive, a pure date-range scan matching the teacher's
// per-date ShouldScheduleTask check rather than a closed-form
// next-occurrence solver, per spec §4.3's idempotent-by-(template,
// date) contract.
func Expand(task models.Task, from, to timekit.LocalDate) ([]timekit.LocalDate, error) {
	if from.After(to) {
		return nil, nil
	}
	var out []timekit.LocalDate
	for d := from; !d.After(to); d = d.AddDays(1) {
		ok, err := Matches(task, d)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// NextOccurrence returns the first date on/after from matching
// template's pattern, scanning forward up to one year to bound
// pathological patterns.
func NextOccurrence(task models.Task, from timekit.LocalDate) (timekit.LocalDate, bool, error) {
	for i := 0; i < 366; i++ {
		d := from.AddDays(i)
		ok, err := Matches(task, d)
		if err != nil {
			return timekit.LocalDate{}, false, err
		}
		if ok {
			return d, true, nil
		}
	}
	return timekit.LocalDate{}, false, nil
}

// InstanceKey returns the idempotency key for an expanded instance,
// per spec invariant #6 ("expanding twice never duplicates an
// instance"). It names the same (template, date) pair that storage
// deduplicates on through its unique (recurring_template_id, deadline)
// index; the store does not use this string itself.
func InstanceKey(templateID string, date timekit.LocalDate) string {
	return templateID + "@" + date.String()
}
