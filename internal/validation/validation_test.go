package validation

import (
	"testing"

	"github.com/smartstudy/companion/internal/apperr"
	"github.com/smartstudy/companion/internal/models"
)

func TestValidateTask_RequiresTitleAndPositiveEstimate(t *testing.T) {
	err := ValidateTask(models.Task{EstimatedMinutes: 30, Priority: models.PriorityMedium})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for missing title, got %v", err)
	}

	err = ValidateTask(models.Task{Title: "Essay", EstimatedMinutes: 0, Priority: models.PriorityMedium})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for zero estimate, got %v", err)
	}
}

func TestValidateTask_RecurringTemplateRequiresPattern(t *testing.T) {
	task := models.Task{
		Title: "Weekly reading", EstimatedMinutes: 30, Priority: models.PriorityLow,
		IsRecurringTemplate: true,
	}
	err := ValidateTask(task)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for template without pattern, got %v", err)
	}
}

func TestValidateTask_InstanceCannotAlsoBeTemplate(t *testing.T) {
	templateID := "t0"
	task := models.Task{
		Title: "X", EstimatedMinutes: 10, Priority: models.PriorityLow,
		IsRecurringTemplate: true,
		RecurringTemplateID: &templateID,
		RecurrencePattern:   &models.Pattern{Frequency: models.FrequencyDaily},
	}
	if err := ValidateTask(task); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for template+instance, got %v", err)
	}
}

func TestValidateConstraint_RecurringRequiresDaysAndValidTimes(t *testing.T) {
	c := models.ScheduleConstraint{Type: models.ConstraintClass, StartTime: "09:00", EndTime: "10:00"}
	if err := ValidateConstraint(c); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for missing days_of_week, got %v", err)
	}

	c.DaysOfWeek = []int{0, 2}
	c.EndTime = "08:00" // before start
	if err := ValidateConstraint(c); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for end before start, got %v", err)
	}

	c.EndTime = "10:00"
	if err := ValidateConstraint(c); err != nil {
		t.Fatalf("expected valid recurring constraint, got %v", err)
	}
}

func TestValidateUserPreferences_RejectsUnknownTimezone(t *testing.T) {
	err := ValidateUserPreferences("Nowhere/Imaginary", 10, 90, 10)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for bad timezone, got %v", err)
	}
	if err := ValidateUserPreferences("America/Chicago", 10, 90, 10); err != nil {
		t.Fatalf("expected valid preferences, got %v", err)
	}
}

func TestFindDuplicateTitles(t *testing.T) {
	tasks := []models.Task{
		{ID: "1", Title: "Read chapter 3"},
		{ID: "2", Title: "Problem set"},
		{ID: "3", Title: "Read chapter 3"},
	}
	dups := FindDuplicateTitles(tasks)
	if len(dups) != 1 || dups[0].Title != "Read chapter 3" {
		t.Fatalf("expected one duplicate title, got %+v", dups)
	}
	if len(dups[0].TaskIDs) != 2 {
		t.Fatalf("expected 2 task ids in duplicate, got %v", dups[0].TaskIDs)
	}
}
