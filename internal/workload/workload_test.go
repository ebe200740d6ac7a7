package workload

import (
	"testing"
	"time"

	"github.com/smartstudy/companion/internal/models"
	"github.com/smartstudy/companion/internal/planner"
	"github.com/smartstudy/companion/internal/timekit"
)

func baseCfg() planner.Config {
	return planner.Config{
		Timezone:            time.UTC,
		PreferredWindows:    []models.Window{models.NewPresetWindow(models.PresetMorning)},
		MaxSessionLengthMin: 90,
		BreakDurationMin:    10,
	}
}

func TestCompletionRate_ClampsAndDefaults(t *testing.T) {
	if r := CompletionRate(0, 0); r != defaultCompletionRate {
		t.Errorf("expected default rate with no history, got %v", r)
	}
	if r := CompletionRate(1, 100); r != minCompletionRate {
		t.Errorf("expected clamp to min, got %v", r)
	}
	if r := CompletionRate(99, 100); r != maxCompletionRate {
		t.Errorf("expected clamp to max, got %v", r)
	}
}

func TestAnalyzePreGeneration_CapacityExceeded(t *testing.T) {
	ref := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	tasks := []models.Task{
		{ID: "t1", Status: models.TaskStatusTodo, EstimatedMinutes: 60 * 40}, // 40h of work
	}
	in := PreGenInput{
		Tasks: tasks, PlannerConfig: baseCfg(), WeeklyStudyHours: 10,
		CompletedCount: 13, TotalCount: 20, Ref: ref, // completion rate 0.65
	}
	warnings := AnalyzePreGeneration(in)
	found := false
	for _, w := range warnings {
		if w.Code == "capacity_exceeded" && w.Severity == SeverityHard {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a hard capacity_exceeded warning, got %+v", warnings)
	}
}

func TestAnalyzePreGeneration_ExamPrepMissing(t *testing.T) {
	ref := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	examDate := ref.AddDate(0, 0, 20)
	subjects := []models.Subject{{ID: "s1", Name: "Chemistry", ExamDate: &examDate}}
	in := PreGenInput{Subjects: subjects, PlannerConfig: baseCfg(), Ref: ref}
	warnings := AnalyzePreGeneration(in)
	found := false
	for _, w := range warnings {
		if w.Code == "exam_prep_missing" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected exam_prep_missing warning, got %+v", warnings)
	}
}

func TestAnalyzePostGeneration_UnscheduledTask(t *testing.T) {
	tasks := []models.Task{{ID: "t1", Status: models.TaskStatusTodo, EstimatedMinutes: 60, Title: "Essay"}}
	plan := planner.Plan{Days: []planner.Day{
		{Date: timekit.LocalDate{Year: 2026, Month: 1, Day: 5}},
	}}
	in := PostGenInput{Plan: plan, Tasks: tasks, PlannerConfig: baseCfg()}
	warnings := AnalyzePostGeneration(in)
	found := false
	for _, w := range warnings {
		if w.Code == "unscheduled_task" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected unscheduled_task warning, got %+v", warnings)
	}
}

func TestAnalyzePostGeneration_DayOverload(t *testing.T) {
	taskID := "t1"
	cfg := baseCfg() // morning window only, 07:00-11:00 = 4h = 240min
	plan := planner.Plan{Days: []planner.Day{
		{Date: timekit.LocalDate{Year: 2026, Month: 1, Day: 5}, Sessions: []models.StudySession{
			{TaskID: &taskID, StartTime: time.Date(2026, 1, 5, 7, 0, 0, 0, time.UTC), EndTime: time.Date(2026, 1, 5, 18, 0, 0, 0, time.UTC)},
		}},
	}}
	in := PostGenInput{Plan: plan, PlannerConfig: cfg}
	warnings := AnalyzePostGeneration(in)
	found := false
	for _, w := range warnings {
		if w.Code == "day_overload" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected day_overload warning, got %+v", warnings)
	}
}
