package httpapi

import (
	"testing"
	"time"

	"github.com/smartstudy/companion/internal/models"
)

func TestLabels_FocusFor_PrefersNotesThenTaskThenSubject(t *testing.T) {
	taskID := "t1"
	subjectID := "s1"
	l := labels{
		subjectNames: map[string]string{"s1": "Algebra"},
		taskTitles:   map[string]string{"t1": "Problem set 3"},
	}

	withNotes := models.StudySession{Notes: "cramming", TaskID: &taskID, SubjectID: &subjectID}
	if got := l.focusFor(withNotes); got != "cramming" {
		t.Errorf("expected notes to take priority, got %q", got)
	}

	withTaskOnly := models.StudySession{TaskID: &taskID, SubjectID: &subjectID}
	if got := l.focusFor(withTaskOnly); got != "Problem set 3" {
		t.Errorf("expected task title, got %q", got)
	}

	withSubjectOnly := models.StudySession{SubjectID: &subjectID}
	if got := l.focusFor(withSubjectOnly); got != "Algebra" {
		t.Errorf("expected subject name, got %q", got)
	}

	withNothing := models.StudySession{}
	if got := l.focusFor(withNothing); got != "Study session" {
		t.Errorf("expected fallback label, got %q", got)
	}
}

func TestToSessionDTO_CarriesCoreFields(t *testing.T) {
	start := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)
	s := models.StudySession{
		ID:          "sess-1",
		StartTime:   start,
		EndTime:     end,
		Status:      models.SessionPlanned,
		GeneratedBy: models.GeneratedWeekly,
	}

	dto := toSessionDTO(s, labels{})
	if dto.ID != "sess-1" || !dto.StartTime.Equal(start) || !dto.EndTime.Equal(end) {
		t.Fatalf("unexpected dto: %+v", dto)
	}
	if dto.Focus != "Study session" {
		t.Errorf("expected fallback focus, got %q", dto.Focus)
	}
}
