package httpapi

import (
	"time"

	"github.com/smartstudy/companion/internal/models"
	"github.com/smartstudy/companion/internal/persistence"
	"github.com/smartstudy/companion/internal/planner"
	"github.com/smartstudy/companion/internal/timekit"
)

// sessionDTO is the wire shape of one session within a weekly-plan
// response, per spec §6.
type sessionDTO struct {
	ID          string             `json:"id,omitempty"`
	StartTime   time.Time          `json:"start_time"`
	EndTime     time.Time          `json:"end_time"`
	SubjectID   *string            `json:"subject_id,omitempty"`
	TaskID      *string            `json:"task_id,omitempty"`
	Focus       string             `json:"focus"`
	EnergyLevel *models.EnergyLevel `json:"energy_level,omitempty"`
	GeneratedBy models.GeneratedBy `json:"generated_by"`
	Status      models.SessionStatus `json:"status,omitempty"`
	IsPinned    bool               `json:"is_pinned,omitempty"`
	Notes       string             `json:"notes,omitempty"`
}

// labels resolves subject/task IDs to display names for the "focus"
// field; either map may be nil, in which case focus falls back to a
// generic label, mirroring calendar.sessionSummary's fallback.
type labels struct {
	subjectNames map[string]string
	taskTitles   map[string]string
}

func (l labels) focusFor(s models.StudySession) string {
	if s.Notes != "" {
		return s.Notes
	}
	if l.taskTitles != nil && s.TaskID != nil {
		if title, ok := l.taskTitles[*s.TaskID]; ok {
			return title
		}
	}
	if l.subjectNames != nil && s.SubjectID != nil {
		if name, ok := l.subjectNames[*s.SubjectID]; ok {
			return name
		}
	}
	return "Study session"
}

func toSessionDTO(s models.StudySession, l labels) sessionDTO {
	return sessionDTO{
		ID:          s.ID,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		SubjectID:   s.SubjectID,
		TaskID:      s.TaskID,
		Focus:       l.focusFor(s),
		EnergyLevel: s.EnergyLevel,
		GeneratedBy: s.GeneratedBy,
		Status:      s.Status,
		IsPinned:    s.IsPinned,
		Notes:       s.Notes,
	}
}

type dayDTO struct {
	Day      time.Time    `json:"day"`
	Sessions []sessionDTO `json:"sessions"`
}

// weeklyPlanResponse mirrors spec §6's "Weekly plan response" shape,
// plus the §8 S5 overdue-reschedule summary generate ran just before
// building this plan.
type weeklyPlanResponse struct {
	UserID                  string                        `json:"user_id"`
	GeneratedAt             time.Time                     `json:"generated_at"`
	Days                    []dayDTO                      `json:"days"`
	OptimizationExplanation string                        `json:"optimization_explanation,omitempty"`
	Rescheduled             persistence.RescheduleSummary `json:"rescheduled_overdue"`
}

func toWeeklyPlanResponse(plan planner.Plan, l labels, optimizationExplanation string) weeklyPlanResponse {
	days := make([]dayDTO, 0, len(plan.Days))
	for _, day := range plan.Days {
		sessions := make([]sessionDTO, 0, len(day.Sessions))
		for _, s := range day.Sessions {
			sessions = append(sessions, toSessionDTO(s, l))
		}
		days = append(days, dayDTO{Day: localDateToUTC(day.Date), Sessions: sessions})
	}
	return weeklyPlanResponse{
		UserID:                  plan.UserID,
		GeneratedAt:             plan.GeneratedAt,
		Days:                    days,
		OptimizationExplanation: optimizationExplanation,
	}
}

func localDateToUTC(d timekit.LocalDate) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func subjectNameMap(subjects []models.Subject) map[string]string {
	m := make(map[string]string, len(subjects))
	for _, s := range subjects {
		m[s.ID] = s.Name
	}
	return m
}

func taskTitleMap(tasks []models.Task) map[string]string {
	m := make(map[string]string, len(tasks))
	for _, t := range tasks {
		m[t.ID] = t.Title
	}
	return m
}
