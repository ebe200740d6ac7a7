package planner

import (
	"testing"
	"time"

	"github.com/smartstudy/companion/internal/models"
	"github.com/smartstudy/companion/internal/weightengine"
)

func weighted(id string, minutes int, priority models.Priority) weightengine.Weighted {
	return weightengine.Weighted{
		Task:             models.Task{ID: id, Priority: priority, EstimatedMinutes: minutes, Status: models.TaskStatusTodo},
		RemainingMinutes: minutes,
		Weight:           1.0,
	}
}

func baseConfig() Config {
	return Config{
		UserID:              "u1",
		Timezone:            time.UTC,
		PreferredWindows:    []models.Window{models.NewPresetWindow(models.PresetMorning)},
		MaxSessionLengthMin: 90,
		BreakDurationMin:    10,
	}
}

func TestGenerate_AllocatesWithinWindow(t *testing.T) {
	cfg := baseConfig()
	ranked := []weightengine.Weighted{weighted("t1", 60, models.PriorityMedium)}
	ref := time.Date(2026, 1, 5, 5, 0, 0, 0, time.UTC) // before the morning window starts

	plan := Generate(cfg, ranked, nil, nil, ref)
	if len(plan.Days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(plan.Days))
	}
	first := plan.Days[0]
	if len(first.Sessions) != 1 {
		t.Fatalf("expected 1 session on day 1, got %d", len(first.Sessions))
	}
	s := first.Sessions[0]
	if s.DurationMinutes() != 60 {
		t.Errorf("expected 60 minute session, got %d", s.DurationMinutes())
	}
	if s.StartTime.Hour() != 7 {
		t.Errorf("expected session to start at window open 07:00, got %v", s.StartTime)
	}
}

func TestGenerate_ConstraintRemovesOverlappingWindow(t *testing.T) {
	cfg := baseConfig()
	ranked := []weightengine.Weighted{weighted("t1", 60, models.PriorityMedium)}
	ref := time.Date(2026, 1, 5, 5, 0, 0, 0, time.UTC)

	// A one-off constraint covering the entire morning window on day 1.
	start := time.Date(2026, 1, 5, 6, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	constraints := []models.ScheduleConstraint{{
		ID: "c1", Type: models.ConstraintBlocked, StartDatetime: &start, EndDatetime: &end,
	}}

	plan := Generate(cfg, ranked, constraints, nil, ref)
	if len(plan.Days[0].Sessions) != 0 {
		t.Errorf("expected constraint to remove all sessions on day 1, got %d", len(plan.Days[0].Sessions))
	}
}

func TestGenerate_EnergyCapLimitsSessionLength(t *testing.T) {
	cfg := baseConfig()
	ranked := []weightengine.Weighted{weighted("t1", 120, models.PriorityMedium)}
	ref := time.Date(2026, 1, 5, 5, 0, 0, 0, time.UTC)
	energy := map[string]models.EnergyLevel{"2026-01-05": models.EnergyLow} // cap 45

	plan := Generate(cfg, ranked, nil, energy, ref)
	s := plan.Days[0].Sessions[0]
	if s.DurationMinutes() != 45 {
		t.Errorf("expected energy cap of 45 minutes, got %d", s.DurationMinutes())
	}
}

func TestGenerate_DropsNoiseTask(t *testing.T) {
	cfg := baseConfig()
	ranked := []weightengine.Weighted{weighted("t1", 5, models.PriorityMedium)} // < 10 min remaining
	ref := time.Date(2026, 1, 5, 5, 0, 0, 0, time.UTC)

	plan := Generate(cfg, ranked, nil, nil, ref)
	if len(plan.Days[0].Sessions) != 0 {
		t.Errorf("expected sub-10-minute task to be dropped as noise, got %d sessions", len(plan.Days[0].Sessions))
	}
}

func TestGenerate_TaskUsageCarriesAcrossDays(t *testing.T) {
	cfg := baseConfig()
	// A 90-minute window, matching MaxSessionLengthMin, so at most one
	// session per day is possible and the 180-minute task can only be
	// exhausted by spilling the second session into the next day.
	cfg.PreferredWindows = []models.Window{models.NewCustomWindow("07:00", "08:30")}
	ranked := []weightengine.Weighted{weighted("t1", 180, models.PriorityMedium)}
	ref := time.Date(2026, 1, 5, 5, 0, 0, 0, time.UTC) // a Monday, before the morning window opens

	plan := Generate(cfg, ranked, nil, nil, ref)

	totalMinutes := 0
	for _, day := range plan.Days {
		for _, s := range day.Sessions {
			totalMinutes += s.DurationMinutes()
		}
	}
	if totalMinutes != 180 {
		t.Errorf("expected the task's 180 remaining minutes to be exhausted once across the week, got %d minutes allocated", totalMinutes)
	}

	if monday := plan.Days[0]; len(monday.Sessions) != 1 || monday.Sessions[0].DurationMinutes() != 90 {
		t.Fatalf("expected Monday to allocate a single 90 minute session (the max session length cap), got %+v", monday.Sessions)
	}
	if tuesday := plan.Days[1]; len(tuesday.Sessions) != 1 || tuesday.Sessions[0].DurationMinutes() != 90 {
		t.Fatalf("expected Tuesday to allocate the remaining 90 minutes, got %+v", tuesday.Sessions)
	}
	for _, day := range plan.Days[2:] {
		if len(day.Sessions) != 0 {
			t.Errorf("expected no further sessions once the task is exhausted, got %+v on %v", day.Sessions, day.Date)
		}
	}
}

func TestGenerateMicro_SingleContiguousRun(t *testing.T) {
	cfg := baseConfig()
	ranked := []weightengine.Weighted{weighted("t1", 90, models.PriorityHigh)}
	ref := time.Date(2026, 1, 5, 14, 0, 0, 0, time.UTC)

	sessions := GenerateMicro(cfg, ranked, 45, ref)
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if sessions[0].DurationMinutes() != 45 {
		t.Errorf("expected 45 minute micro session, got %d", sessions[0].DurationMinutes())
	}
	if !sessions[0].StartTime.Equal(ref) {
		t.Errorf("expected micro session to start at ref, got %v", sessions[0].StartTime)
	}
}

func TestInsertBreaks_ShiftsOverlappingSession(t *testing.T) {
	base := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	sessions := []models.StudySession{
		{StartTime: base, EndTime: base.Add(30 * time.Minute)},
		{StartTime: base.Add(35 * time.Minute), EndTime: base.Add(65 * time.Minute)}, // only 5 min gap
	}
	out := insertBreaks(sessions, 10)
	gap := out[1].StartTime.Sub(out[0].EndTime)
	if gap != 10*time.Minute {
		t.Errorf("expected 10 minute break enforced, got %v", gap)
	}
}

func TestInterleaveForVariety_SwapsSameSubjectPair(t *testing.T) {
	math := "math"
	physics := "physics"
	base := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	sessions := []models.StudySession{
		{SubjectID: &math, StartTime: base, EndTime: base.Add(30 * time.Minute)},
		{SubjectID: &math, StartTime: base.Add(30 * time.Minute), EndTime: base.Add(60 * time.Minute)},
		{SubjectID: &physics, StartTime: base.Add(60 * time.Minute), EndTime: base.Add(90 * time.Minute)},
	}
	out := interleaveForVariety(sessions, map[string]bool{})
	if *out[1].SubjectID == *out[0].SubjectID {
		t.Errorf("expected adjacent same-subject sessions to be interleaved, got %v, %v, %v",
			*out[0].SubjectID, *out[1].SubjectID, *out[2].SubjectID)
	}
}

func TestInterleaveForVariety_CriticalSessionsNeverMove(t *testing.T) {
	critTaskID := "crit"
	math := "math"
	base := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	sessions := []models.StudySession{
		{TaskID: &critTaskID, SubjectID: &math, StartTime: base, EndTime: base.Add(30 * time.Minute)},
		{TaskID: &critTaskID, SubjectID: &math, StartTime: base.Add(30 * time.Minute), EndTime: base.Add(60 * time.Minute)},
	}
	out := interleaveForVariety(sessions, map[string]bool{"crit": true})
	if *out[0].TaskID != critTaskID || *out[1].TaskID != critTaskID {
		t.Error("expected CRITICAL task sessions to remain unmoved")
	}
}
