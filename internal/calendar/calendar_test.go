package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/smartstudy/companion/internal/models"
)

func TestExport_SessionEventFields(t *testing.T) {
	taskID := "task-1"
	s := models.StudySession{
		ID:        "sess-1",
		TaskID:    &taskID,
		StartTime: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
		Status:    models.SessionPlanned,
		Notes:     "Algebra review",
	}
	exp := Exporter{Domain: "studycompanion.app"}
	out := exp.Export([]models.StudySession{s}, nil, time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC), time.UTC)

	if !strings.Contains(out, "UID:ssc-session-sess-1@studycompanion.app") {
		t.Errorf("missing expected session UID, got:\n%s", out)
	}
	if !strings.Contains(out, "DTSTART:20260105T090000Z") {
		t.Errorf("missing expected DTSTART, got:\n%s", out)
	}
	if !strings.Contains(out, "STATUS:TENTATIVE") {
		t.Errorf("expected TENTATIVE status for a planned session, got:\n%s", out)
	}
	if !strings.Contains(out, "SUMMARY:Algebra review") {
		t.Errorf("expected session notes as summary, got:\n%s", out)
	}
	if !strings.HasPrefix(out, "BEGIN:VCALENDAR\r\n") || !strings.HasSuffix(out, "END:VCALENDAR\r\n") {
		t.Errorf("expected a well-formed VCALENDAR envelope, got:\n%s", out)
	}
}

func TestExport_CompletedSessionIsConfirmed(t *testing.T) {
	s := models.StudySession{
		ID:        "sess-2",
		StartTime: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
		Status:    models.SessionCompleted,
	}
	exp := Exporter{Domain: "studycompanion.app"}
	out := exp.Export([]models.StudySession{s}, nil, time.Now(), time.UTC)
	if !strings.Contains(out, "STATUS:CONFIRMED") {
		t.Errorf("expected CONFIRMED status for a completed session, got:\n%s", out)
	}
}

func TestExport_SkippedSessionIsCancelled(t *testing.T) {
	s := models.StudySession{
		ID:        "sess-3",
		StartTime: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
		Status:    models.SessionSkipped,
	}
	exp := Exporter{Domain: "studycompanion.app"}
	out := exp.Export([]models.StudySession{s}, nil, time.Now(), time.UTC)
	if !strings.Contains(out, "STATUS:CANCELLED") {
		t.Errorf("expected CANCELLED status for a skipped session, got:\n%s", out)
	}
}

func TestExport_RecurringConstraintEmitsRRule(t *testing.T) {
	c := models.ScheduleConstraint{
		ID:         "c1",
		Type:       models.ConstraintClass,
		DaysOfWeek: []int{0, 2, 4}, // Mon/Wed/Fri
		StartTime:  "09:00",
		EndTime:    "10:30",
	}
	exp := Exporter{Domain: "studycompanion.app"}
	now := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC) // a Monday
	out := exp.Export(nil, []models.ScheduleConstraint{c}, now, time.UTC)

	if !strings.Contains(out, "UID:ssc-constraint-c1@studycompanion.app") {
		t.Errorf("missing expected constraint UID, got:\n%s", out)
	}
	if !strings.Contains(out, "RRULE:FREQ=WEEKLY;BYDAY=MO,WE,FR") {
		t.Errorf("expected weekly RRULE over Mon/Wed/Fri, got:\n%s", out)
	}
}

func TestExport_OneOffConstraintHasNoRRule(t *testing.T) {
	start := time.Date(2026, 1, 10, 14, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 10, 16, 0, 0, 0, time.UTC)
	c := models.ScheduleConstraint{
		ID:            "c2",
		Type:          models.ConstraintBusy,
		StartDatetime: &start,
		EndDatetime:   &end,
	}
	exp := Exporter{Domain: "studycompanion.app"}
	out := exp.Export(nil, []models.ScheduleConstraint{c}, time.Now(), time.UTC)

	if strings.Contains(out, "RRULE") {
		t.Errorf("one-off constraint must not carry an RRULE, got:\n%s", out)
	}
	if !strings.Contains(out, "DTSTART:20260110T140000Z") {
		t.Errorf("missing expected one-off DTSTART, got:\n%s", out)
	}
}
