// Package validation checks incoming task/subject/constraint payloads
// before they reach persistence, and flags cross-entity conflicts in a
// user's data set. Grounded on the teacher's internal/validation
// package (Validator/Conflict/ValidationResult shape, HH:MM parsing
// helpers), adapted from the teacher's standalone report-building
// CLI tool into request-time checks that return apperr.Error so HTTP
// handlers can map them to a status code in one place.
package validation

import (
	"fmt"
	"sort"
	"time"

	"github.com/smartstudy/companion/internal/apperr"
	"github.com/smartstudy/companion/internal/models"
	"github.com/smartstudy/companion/internal/timekit"
)

// ValidateTask checks a task payload's own fields, independent of any
// other task in the user's data set.
func ValidateTask(t models.Task) error {
	if t.Title == "" {
		return apperr.Validation("task title is required")
	}
	if t.EstimatedMinutes <= 0 {
		return apperr.Validation("estimated_minutes must be positive")
	}
	switch t.Priority {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityCritical:
	default:
		return apperr.Validationf("unknown priority %q", t.Priority)
	}
	if t.IsRecurringTemplate {
		if t.RecurrencePattern == nil {
			return apperr.Validation("a recurring template requires a recurrence_pattern")
		}
		if t.RecurringTemplateID != nil {
			return apperr.Validation("a recurring template cannot itself be an instance")
		}
	}
	if t.RecurringTemplateID != nil && t.IsRecurringTemplate {
		return apperr.Validation("task cannot be both a template and an instance")
	}
	return nil
}

// ValidateSubject checks a subject payload's own fields.
func ValidateSubject(s models.Subject) error {
	if s.Name == "" {
		return apperr.Validation("subject name is required")
	}
	switch s.Priority {
	case models.ImportanceLow, models.ImportanceMedium, models.ImportanceHigh:
	default:
		return apperr.Validationf("unknown subject priority %q", s.Priority)
	}
	switch s.Difficulty {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
	default:
		return apperr.Validationf("unknown subject difficulty %q", s.Difficulty)
	}
	if s.Workload < 0 {
		return apperr.Validation("workload cannot be negative")
	}
	return nil
}

// ValidateConstraint checks a schedule constraint payload, per its
// recurring/one-off tagged shape.
func ValidateConstraint(c models.ScheduleConstraint) error {
	switch c.Type {
	case models.ConstraintClass, models.ConstraintBusy, models.ConstraintBlocked, models.ConstraintNoStudy:
	default:
		return apperr.Validationf("unknown constraint type %q", c.Type)
	}
	if c.IsRecurring() {
		if len(c.DaysOfWeek) == 0 {
			return apperr.Validation("recurring constraint requires at least one day of week")
		}
		for _, d := range c.DaysOfWeek {
			if d < 0 || d > 6 {
				return apperr.Validationf("day_of_week %d out of range [0,6]", d)
			}
		}
		startMin, err := parseTimeToMinutes(c.StartTime)
		if err != nil {
			return apperr.Validationf("invalid start_time %q", c.StartTime)
		}
		endMin, err := parseTimeToMinutes(c.EndTime)
		if err != nil {
			return apperr.Validationf("invalid end_time %q", c.EndTime)
		}
		if endMin <= startMin {
			return apperr.Validation("constraint end_time must be after start_time")
		}
	} else if c.StartDatetime != nil && c.EndDatetime != nil {
		if !c.StartDatetime.Before(*c.EndDatetime) {
			return apperr.Validation("constraint end_datetime must be after start_datetime")
		}
	} else {
		return apperr.Validation("constraint must be either recurring or one-off")
	}
	return nil
}

// ValidateUserPreferences checks the subset of User fields that gate
// every Planner call: timezone, weekly goal, session/break lengths.
func ValidateUserPreferences(tz string, weeklyStudyHours float64, maxSessionLength, breakDuration int) error {
	if tz == "" {
		return apperr.Validation("timezone is required")
	}
	if _, err := timekit.LoadLocation(tz); err != nil {
		return apperr.Validationf("invalid timezone %q", tz)
	}
	if weeklyStudyHours <= 0 {
		return apperr.Validation("weekly_study_hours must be positive")
	}
	if maxSessionLength <= 0 {
		return apperr.Validation("max_session_length must be positive")
	}
	if breakDuration < 0 {
		return apperr.Validation("break_duration cannot be negative")
	}
	return nil
}

// DuplicateTitleWarning names a title shared by more than one active
// task, mirroring the teacher's duplicate-task-name conflict without
// treating it as a hard validation failure — two tasks can legitimately
// share a title across subjects.
type DuplicateTitleWarning struct {
	Title   string
	TaskIDs []string
}

// FindDuplicateTitles scans a user's active tasks for shared titles.
func FindDuplicateTitles(tasks []models.Task) []DuplicateTitleWarning {
	byTitle := map[string][]string{}
	for _, t := range tasks {
		if t.DeletedAt != nil || t.Title == "" {
			continue
		}
		byTitle[t.Title] = append(byTitle[t.Title], t.ID)
	}

	var titles []string
	for title := range byTitle {
		if len(byTitle[title]) > 1 {
			titles = append(titles, title)
		}
	}
	sort.Strings(titles)

	warnings := make([]DuplicateTitleWarning, 0, len(titles))
	for _, title := range titles {
		warnings = append(warnings, DuplicateTitleWarning{Title: title, TaskIDs: byTitle[title]})
	}
	return warnings
}

func parseTimeToMinutes(hhmm string) (int, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", hhmm, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
