// Package workload implements the WorkloadAnalyzer: a read-only set of
// pre-generation and post-generation checks over the same task/subject/
// constraint/plan inputs the Planner consumes, per spec §4.6. It never
// mutates sessions, tasks, or constraints, in the teacher's style of
// keeping reporting/analysis code (internal/insights in the teacher's
// habit tracker) separate from the mutating core.
package workload

import (
	"fmt"
	"sort"
	"time"

	"github.com/smartstudy/companion/internal/models"
	"github.com/smartstudy/companion/internal/planner"
	"github.com/smartstudy/companion/internal/timekit"
)

// Severity classifies how urgently a Warning should be surfaced.
type Severity string

const (
	SeverityInfo Severity = "info"
	SeveritySoft Severity = "soft"
	SeverityHard Severity = "hard"
)

// Warning is one finding from either analysis pass.
type Warning struct {
	Code     string
	Severity Severity
	Message  string
}

const (
	minCompletionRate     = 0.5
	maxCompletionRate     = 0.95
	defaultCompletionRate = 0.65
)

// CompletionRate derives the historical completion rate from the last
// 30 days of sessions, per spec §4.6, clamped to [0.5, 0.95] with a
// 0.65 default when there is no history.
func CompletionRate(completed, total int) float64 {
	if total == 0 {
		return defaultCompletionRate
	}
	rate := float64(completed) / float64(total)
	if rate < minCompletionRate {
		return minCompletionRate
	}
	if rate > maxCompletionRate {
		return maxCompletionRate
	}
	return rate
}

// PreGenInput carries everything the pre-generation analysis needs.
type PreGenInput struct {
	Tasks            []models.Task
	Subjects         []models.Subject
	Constraints      []models.ScheduleConstraint
	PlannerConfig    planner.Config
	WeeklyStudyHours float64
	CompletedCount   int
	TotalCount       int
	Ref              time.Time
}

// AnalyzePreGeneration runs the pre-generation checks of spec §4.6.
func AnalyzePreGeneration(in PreGenInput) []Warning {
	var warnings []Warning

	completionRate := CompletionRate(in.CompletedCount, in.TotalCount)
	capacityHours := in.WeeklyStudyHours * completionRate

	rawMinutes, freeMinutes := planner.AvailableWindowMinutes(in.PlannerConfig, in.Constraints, in.Ref)
	windowHours := float64(freeMinutes) / 60

	var taskHours float64
	for _, t := range in.Tasks {
		if t.Schedulable() {
			taskHours += float64(t.RemainingMinutes()) / 60
		}
	}

	switch {
	case taskHours > 1.5*capacityHours && capacityHours > 0:
		warnings = append(warnings, Warning{"capacity_exceeded", SeverityHard,
			fmt.Sprintf("%.1fh of task work exceeds realistic capacity of %.1fh/week by more than 50%%", taskHours, capacityHours)})
	case taskHours > 1.3*capacityHours && capacityHours > 0:
		warnings = append(warnings, Warning{"capacity_exceeded", SeveritySoft,
			fmt.Sprintf("%.1fh of task work exceeds realistic capacity of %.1fh/week", taskHours, capacityHours)})
	}

	if windowHours < taskHours {
		warnings = append(warnings, Warning{"time_window_insufficient", SeverityHard,
			fmt.Sprintf("only %.1fh of study windows available this week for %.1fh of task work", windowHours, taskHours)})
	}

	if in.WeeklyStudyHours > windowHours {
		warnings = append(warnings, Warning{"goal_exceeds_available", SeveritySoft,
			fmt.Sprintf("weekly goal of %.1fh exceeds %.1fh of configured study windows", in.WeeklyStudyHours, windowHours)})
	}

	warnings = append(warnings, deadlineDeficitWarnings(in, windowHours)...)
	warnings = append(warnings, deadlineClusteringWarnings(in.Tasks, in.Ref, in.PlannerConfig.Timezone)...)
	warnings = append(warnings, examPrepMissingWarnings(in.Subjects, in.Tasks, in.Ref, in.PlannerConfig.Timezone)...)

	if rawMinutes > 0 {
		blockedRatio := 1 - float64(freeMinutes)/float64(rawMinutes)
		if blockedRatio > 0.30 {
			warnings = append(warnings, Warning{"constraints_impact", SeveritySoft,
				fmt.Sprintf("constraints block %.0f%% of configured study windows this week", blockedRatio*100)})
		}
	}

	return warnings
}

func deadlineDeficitWarnings(in PreGenInput, totalWindowHours float64) []Warning {
	var warnings []Warning
	for _, t := range in.Tasks {
		if !t.Schedulable() || t.Deadline == nil {
			continue
		}
		daysUntil := timekit.LocalDateOf(*t.Deadline, in.PlannerConfig.Timezone).Sub(timekit.LocalDateOf(in.Ref, in.PlannerConfig.Timezone))
		if daysUntil < 0 || daysUntil > 7 {
			continue
		}
		available := totalWindowHours * (float64(daysUntil) / 7)
		needed := float64(t.RemainingMinutes()) / 60
		if needed > available {
			warnings = append(warnings, Warning{"deadline_deficit", SeverityHard,
				fmt.Sprintf("task %q needs %.1fh but only %.1fh of windows remain before its deadline", t.Title, needed, available)})
		}
	}
	return warnings
}

func deadlineClusteringWarnings(tasks []models.Task, ref time.Time, tz *time.Location) []Warning {
	counts := map[string]int{}
	for _, t := range tasks {
		if !t.Schedulable() || t.Deadline == nil {
			continue
		}
		date := timekit.LocalDateOf(*t.Deadline, tz)
		daysUntil := date.Sub(timekit.LocalDateOf(ref, tz))
		if daysUntil < 0 || daysUntil > 7 {
			continue
		}
		counts[date.String()]++
	}
	var dates []string
	for d := range counts {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var warnings []Warning
	for _, d := range dates {
		if counts[d] >= 3 {
			warnings = append(warnings, Warning{"deadline_clustering", SeveritySoft,
				fmt.Sprintf("%d tasks share a deadline on %s", counts[d], d)})
		}
	}
	return warnings
}

func examPrepMissingWarnings(subjects []models.Subject, tasks []models.Task, ref time.Time, tz *time.Location) []Warning {
	openSubjects := map[string]bool{}
	for _, t := range tasks {
		if t.Schedulable() && t.SubjectID != nil {
			openSubjects[*t.SubjectID] = true
		}
	}

	var warnings []Warning
	for _, s := range subjects {
		if s.ExamDate == nil {
			continue
		}
		daysUntil := timekit.LocalDateOf(*s.ExamDate, tz).Sub(timekit.LocalDateOf(ref, tz))
		if daysUntil < 14 || daysUntil > 28 {
			continue
		}
		if !openSubjects[s.ID] {
			warnings = append(warnings, Warning{"exam_prep_missing", SeverityHard,
				fmt.Sprintf("%s has an exam in %d days but no open tasks", s.Name, daysUntil)})
		}
	}
	return warnings
}

// PostGenInput carries everything the post-generation analysis needs.
type PostGenInput struct {
	Plan          planner.Plan
	Tasks         []models.Task
	Constraints   []models.ScheduleConstraint
	PlannerConfig planner.Config
}

// AnalyzePostGeneration runs the post-generation checks of spec §4.6.
func AnalyzePostGeneration(in PostGenInput) []Warning {
	var warnings []Warning

	dayHours := make([]float64, len(in.Plan.Days))
	referencedTasks := map[string]bool{}
	lastSessionEnd := map[string]time.Time{}

	for i, day := range in.Plan.Days {
		var minutes int
		for _, s := range day.Sessions {
			minutes += s.DurationMinutes()
			if s.TaskID != nil {
				referencedTasks[*s.TaskID] = true
				if cur, ok := lastSessionEnd[*s.TaskID]; !ok || s.EndTime.After(cur) {
					lastSessionEnd[*s.TaskID] = s.EndTime
				}
			}
		}
		dayHours[i] = float64(minutes) / 60

		rawMinutes, freeMinutes := planner.AvailableWindowMinutesForDay(in.PlannerConfig, in.Constraints, day.Date)
		if minutes > freeMinutes {
			warnings = append(warnings, Warning{"day_overload", SeverityHard,
				fmt.Sprintf("%s is scheduled %.1fh but only %.1fh of windows are free", day.Date, float64(minutes)/60, float64(freeMinutes)/60)})
		}
		if rawMinutes > 0 && freeMinutes == 0 {
			warnings = append(warnings, Warning{"constraints_blocking_all_time", SeverityHard,
				fmt.Sprintf("%s had study windows configured but constraints removed all of them", day.Date)})
		}
	}

	for _, t := range in.Tasks {
		if t.Schedulable() && !referencedTasks[t.ID] {
			warnings = append(warnings, Warning{"unscheduled_task", SeveritySoft,
				fmt.Sprintf("task %q could not be scheduled this week", t.Title)})
		}
	}

	warnings = append(warnings, imbalanceWarnings(dayHours)...)
	warnings = append(warnings, consecutiveHeavyDayWarnings(in.Plan.Days, dayHours)...)
	warnings = append(warnings, tightDeadlineWarnings(in.Tasks, lastSessionEnd)...)

	return warnings
}

func imbalanceWarnings(dayHours []float64) []Warning {
	var max, min float64
	found := false
	for _, h := range dayHours {
		if h <= 0 {
			continue
		}
		if !found || h > max {
			max = h
		}
		if !found || h < min {
			min = h
		}
		found = true
	}
	if !found || min == 0 {
		return nil
	}
	if max/min > 2.5 {
		return []Warning{{"schedule_imbalance", SeveritySoft,
			fmt.Sprintf("busiest day (%.1fh) is more than 2.5x the lightest day (%.1fh)", max, min)}}
	}
	return nil
}

func consecutiveHeavyDayWarnings(days []planner.Day, dayHours []float64) []Warning {
	run := 0
	for i, h := range dayHours {
		if h > 6 {
			run++
		} else {
			run = 0
		}
		if run == 3 {
			return []Warning{{"consecutive_heavy_days", SeveritySoft,
				fmt.Sprintf("3 or more consecutive days over 6h ending %s", days[i].Date)}}
		}
	}
	return nil
}

func tightDeadlineWarnings(tasks []models.Task, lastSessionEnd map[string]time.Time) []Warning {
	var warnings []Warning
	for _, t := range tasks {
		if t.Deadline == nil {
			continue
		}
		end, ok := lastSessionEnd[t.ID]
		if !ok {
			continue
		}
		buffer := t.Deadline.Sub(end)
		if buffer >= 0 && buffer < 2*time.Hour {
			warnings = append(warnings, Warning{"tight_deadline", SeverityHard,
				fmt.Sprintf("task %q has less than 2h of buffer before its deadline", t.Title)})
		}
	}
	return warnings
}
