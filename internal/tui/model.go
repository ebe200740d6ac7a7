// Package tui is a read-only terminal dashboard over a single user's
// weekly study plan and workload warnings, grounded on the teacher's
// internal/tui (bubbletea Model/Update/View split, help.Model,
// KeyMap) but reduced from the teacher's full task/habit/plan CRUD
// surface to the two views spec.md's dashboard calls for: the week's
// scheduled sessions, and the same workload.Warning set the HTTP
// layer's analyze endpoint produces.
package tui

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/smartstudy/companion/internal/models"
	"github.com/smartstudy/companion/internal/planner"
	"github.com/smartstudy/companion/internal/storage"
	"github.com/smartstudy/companion/internal/timekit"
	"github.com/smartstudy/companion/internal/workload"
)

type viewTab int

const (
	tabPlan viewTab = iota
	tabWarnings
)

// Model is the dashboard's bubbletea state. It loads everything once
// at startup, the same eager-load-in-NewModel pattern the teacher
// uses, since nothing in a read-only dashboard needs a background
// refresh command.
type Model struct {
	keys KeyMap
	help help.Model

	tab    viewTab
	cursor int

	userID   string
	days     []planner.Day
	warnings []workload.Warning

	loadErr error

	width, height int
	quitting      bool
}

// NewModel loads userID's upcoming week of sessions and runs the
// same post-generation workload checks the scheduler does, directly
// against store — there is no HTTP round trip, since this dashboard
// and the scheduling core share one process's storage.Provider.
func NewModel(ctx context.Context, store storage.Provider, userID string) Model {
	m := Model{
		keys:   DefaultKeyMap(),
		help:   help.New(),
		userID: userID,
	}

	user, err := store.GetUser(ctx, userID)
	if err != nil {
		m.loadErr = fmt.Errorf("loading user: %w", err)
		return m
	}
	tz, err := timekit.LoadLocation(user.Timezone)
	if err != nil {
		m.loadErr = fmt.Errorf("loading timezone: %w", err)
		return m
	}

	now := time.Now().In(tz)
	from := now
	to := now.AddDate(0, 0, 7)

	sessions, err := store.ListSessionsInRange(ctx, userID, from, to)
	if err != nil {
		m.loadErr = fmt.Errorf("loading sessions: %w", err)
		return m
	}
	tasks, err := store.ListSchedulableTasks(ctx, userID)
	if err != nil {
		m.loadErr = fmt.Errorf("loading tasks: %w", err)
		return m
	}
	constraints, err := store.ListConstraints(ctx, userID)
	if err != nil {
		m.loadErr = fmt.Errorf("loading constraints: %w", err)
		return m
	}

	m.days = groupByDay(sessions, tz)

	cfg := planner.Config{
		UserID:              userID,
		Timezone:            tz,
		PreferredWindows:    user.PreferredStudyWindows,
		MaxSessionLengthMin: user.MaxSessionLengthMin,
		BreakDurationMin:    user.BreakDurationMin,
	}
	m.warnings = workload.AnalyzePostGeneration(workload.PostGenInput{
		Plan:          planner.Plan{UserID: userID, GeneratedAt: now, Days: m.days},
		Tasks:         tasks,
		Constraints:   constraints,
		PlannerConfig: cfg,
	})

	return m
}

// groupByDay buckets sessions into one planner.Day per local calendar
// date in tz, the same shape planner.Generate itself returns, so the
// workload analyzer can run unmodified over already-persisted data.
func groupByDay(sessions []models.StudySession, tz *time.Location) []planner.Day {
	byDate := map[timekit.LocalDate][]models.StudySession{}
	for _, s := range sessions {
		d := timekit.LocalDateOf(s.StartTime, tz)
		byDate[d] = append(byDate[d], s)
	}

	dates := make([]timekit.LocalDate, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	days := make([]planner.Day, 0, len(dates))
	for _, d := range dates {
		sessions := byDate[d]
		sort.Slice(sessions, func(i, j int) bool { return sessions[i].StartTime.Before(sessions[j].StartTime) })
		days = append(days, planner.Day{Date: d, Sessions: sessions})
	}
	return days
}

func (m Model) Init() tea.Cmd {
	return nil
}
