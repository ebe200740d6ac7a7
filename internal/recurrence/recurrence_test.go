package recurrence

import (
	"testing"
	"time"

	"github.com/smartstudy/companion/internal/models"
	"github.com/smartstudy/companion/internal/timekit"
)

func dateOf(y int, m time.Month, d int) timekit.LocalDate {
	return timekit.LocalDate{Year: y, Month: m, Day: d}
}

func templateWith(p models.Pattern) models.Task {
	return models.Task{ID: "tmpl", IsRecurringTemplate: true, RecurrencePattern: &p}
}

func TestMatches_Daily(t *testing.T) {
	task := templateWith(models.Pattern{Frequency: models.FrequencyDaily})
	ok, err := Matches(task, dateOf(2026, 1, 5))
	if err != nil || !ok {
		t.Fatalf("expected daily match, got ok=%v err=%v", ok, err)
	}
}

func TestMatches_DailyWeekdaysOnly(t *testing.T) {
	task := templateWith(models.Pattern{Frequency: models.FrequencyDaily, WeekdaysOnly: true})
	sat, _ := Matches(task, dateOf(2026, 1, 10)) // Saturday
	if sat {
		t.Error("expected Saturday to be excluded by weekdays_only")
	}
	mon, _ := Matches(task, dateOf(2026, 1, 5)) // Monday
	if !mon {
		t.Error("expected Monday to match weekdays_only daily pattern")
	}
}

func TestMatches_Weekly(t *testing.T) {
	task := templateWith(models.Pattern{Frequency: models.FrequencyWeekly, DaysOfWeek: []int{0, 2}}) // Mon, Wed
	mon, _ := Matches(task, dateOf(2026, 1, 5))
	tue, _ := Matches(task, dateOf(2026, 1, 6))
	if !mon {
		t.Error("expected Monday to match")
	}
	if tue {
		t.Error("expected Tuesday not to match")
	}
}

func TestMatches_MonthlyDate(t *testing.T) {
	task := templateWith(models.Pattern{Frequency: models.FrequencyMonthly, DayOfMonth: 15})
	on15, _ := Matches(task, dateOf(2026, 1, 15))
	on14, _ := Matches(task, dateOf(2026, 1, 14))
	if !on15 || on14 {
		t.Errorf("expected match only on the 15th, got 15th=%v 14th=%v", on15, on14)
	}
}

func TestMatches_MonthlyDayLastFriday(t *testing.T) {
	task := templateWith(models.Pattern{
		Frequency:   models.FrequencyMonthly,
		WeekOfMonth: -1,
		DaysOfWeek:  []int{4}, // Friday in spec's 0=Monday convention
	})
	lastFri, _ := Matches(task, dateOf(2026, 1, 30)) // last Friday of Jan 2026
	notLastFri, _ := Matches(task, dateOf(2026, 1, 23))
	if !lastFri {
		t.Error("expected last Friday (Jan 30) to match")
	}
	if notLastFri {
		t.Error("expected Jan 23 (not last Friday) not to match")
	}
}

func TestMatches_MonthlyDayFirstMonday(t *testing.T) {
	task := templateWith(models.Pattern{
		Frequency:   models.FrequencyMonthly,
		WeekOfMonth: 1,
		DaysOfWeek:  []int{0}, // Monday
	})
	firstMon, _ := Matches(task, dateOf(2026, 1, 5))
	secondMon, _ := Matches(task, dateOf(2026, 1, 12))
	if !firstMon {
		t.Error("expected first Monday (Jan 5) to match")
	}
	if secondMon {
		t.Error("expected second Monday (Jan 12) not to match")
	}
}

func TestMatches_Yearly(t *testing.T) {
	task := templateWith(models.Pattern{Frequency: models.FrequencyYearly, Month: time.January, DayOfMonth: 1})
	jan1, _ := Matches(task, dateOf(2026, 1, 1))
	jan2, _ := Matches(task, dateOf(2026, 1, 2))
	dec1, _ := Matches(task, dateOf(2026, 12, 1))
	if !jan1 || jan2 || dec1 {
		t.Errorf("expected match only on Jan 1, got jan1=%v jan2=%v dec1=%v", jan1, jan2, dec1)
	}
}

func TestMatches_RecurrenceEndDateExcludesLaterDates(t *testing.T) {
	end := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	task := templateWith(models.Pattern{Frequency: models.FrequencyDaily})
	task.RecurrenceEndDate = &end

	before, _ := Matches(task, dateOf(2026, 1, 5))
	after, _ := Matches(task, dateOf(2026, 1, 11))
	if !before {
		t.Error("expected date before recurrence end to match")
	}
	if after {
		t.Error("expected date after recurrence end not to match")
	}
}

func TestExpand_IsIdempotentByInstanceKey(t *testing.T) {
	task := templateWith(models.Pattern{Frequency: models.FrequencyWeekly, DaysOfWeek: []int{0}})
	dates, err := Expand(task, dateOf(2026, 1, 1), dateOf(2026, 1, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seen := map[string]bool{}
	for _, d := range dates {
		key := InstanceKey(task.ID, d)
		if seen[key] {
			t.Fatalf("duplicate instance key %s", key)
		}
		seen[key] = true
	}
	if len(dates) != 4 { // Mondays in Jan 2026: 5, 12, 19, 26
		t.Errorf("expected 4 Mondays in January 2026, got %d: %v", len(dates), dates)
	}

	again, err := Expand(task, dateOf(2026, 1, 1), dateOf(2026, 1, 31))
	if err != nil {
		t.Fatalf("unexpected error on second expansion: %v", err)
	}
	if len(again) != len(dates) {
		t.Errorf("second expansion produced %d dates, first produced %d", len(again), len(dates))
	}
	for _, d := range again {
		if key := InstanceKey(task.ID, d); !seen[key] {
			t.Errorf("second expansion produced new instance key %s", key)
		}
	}
}

func TestNextOccurrence_MonthlyDate(t *testing.T) {
	task := templateWith(models.Pattern{Frequency: models.FrequencyMonthly, DayOfMonth: 15})
	next, ok, err := NextOccurrence(task, dateOf(2026, 1, 1))
	if err != nil || !ok {
		t.Fatalf("expected occurrence, got ok=%v err=%v", ok, err)
	}
	if next != dateOf(2026, 1, 15) {
		t.Errorf("expected Jan 15, got %v", next)
	}
}
