// Package planner allocates weighted tasks into a multi-day schedule
// of study sessions. It generalizes the teacher's
// internal/scheduler/scheduler.go free-block algorithm (minutes-from-
// midnight timeBlock arithmetic, fixed-slot carve-out, greedy
// top-task-into-block placement) from a single flat day of
// appointments/flexible tasks into the spec's multi-window,
// constraint-aware, energy-capped, break-respecting weekly plan.
package planner

import (
	"sort"
	"time"

	"github.com/smartstudy/companion/internal/models"
	"github.com/smartstudy/companion/internal/timekit"
	"github.com/smartstudy/companion/internal/weightengine"
)

// EnergyCapMinutes mirrors models.EnergyCapMinutes; re-exported here
// for callers that only import planner.
var EnergyCapMinutes = models.EnergyCapMinutes

// Config carries the per-user inputs the Planner needs beyond the
// weighted task list.
type Config struct {
	UserID              string
	Timezone            *time.Location
	PreferredWindows    []models.Window
	MaxSessionLengthMin int
	BreakDurationMin    int
}

// Plan is the 7-day (or micro) output, matching spec §6's weekly-plan
// response shape.
type Plan struct {
	UserID      string
	GeneratedAt time.Time
	Days        []Day
}

// Day holds one calendar day's sessions, keyed by local date.
type Day struct {
	Date     timekit.LocalDate
	Sessions []models.StudySession
}

// timeBlock is a free interval expressed as UTC instants, the
// generalization of the teacher's minutes-from-midnight timeBlock to
// multi-day aware instants.
type timeBlock struct {
	start, end time.Time
}

// Generate produces a 7-day plan starting at the local-midnight of
// ref, per spec §4.4. tasks must already be ranked (weightengine.Rank
// output); constraints and energyByDate are the caller's full sets,
// filtered internally per day.
func Generate(cfg Config, ranked []weightengine.Weighted, constraints []models.ScheduleConstraint, energyByDate map[string]models.EnergyLevel, ref time.Time) Plan {
	plan := Plan{UserID: cfg.UserID, GeneratedAt: ref}
	today := timekit.LocalDateOf(ref, cfg.Timezone)

	remaining := make([]weightengine.Weighted, len(ranked))
	copy(remaining, ranked)

	for i := 0; i < 7; i++ {
		date := today.AddDays(i)
		var day Day
		day, remaining = generateDay(cfg, remaining, constraints, energyByDate[date.String()], ref, today, date)
		plan.Days = append(plan.Days, day)
	}
	return plan
}

// GenerateMicro allocates a single contiguous run of totalMinutes
// starting at ref, ignoring windows/day-rollover, per spec §4.4's
// micro-plan variant. It returns an ephemeral session list.
func GenerateMicro(cfg Config, ranked []weightengine.Weighted, totalMinutes int, ref time.Time) []models.StudySession {
	energyCap := cfg.MaxSessionLengthMin
	block := timeBlock{start: ref, end: ref.Add(time.Duration(totalMinutes) * time.Minute)}
	sessions, _ := allocateBlock(block, ranked, energyCap, cfg.BreakDurationMin, ref, models.GeneratedMicro)
	return sessions
}

// generateDay allocates one day's sessions from tasks and returns the
// task list with that day's usage subtracted (exhausted tasks
// dropped), so the caller can thread it into the next day instead of
// re-ranking from a pristine full-remaining list every iteration.
func generateDay(cfg Config, tasks []weightengine.Weighted, constraints []models.ScheduleConstraint, energy models.EnergyLevel, ref time.Time, today, date timekit.LocalDate) (Day, []weightengine.Weighted) {
	windows := resolveWindows(cfg, date)
	windows = applyConstraints(windows, constraints, date, cfg.Timezone)

	sessionCap := cfg.MaxSessionLengthMin
	if energyCap, ok := models.EnergyCapMinutes[energy]; ok && energyCap < sessionCap {
		sessionCap = energyCap
	}
	if sessionCap <= 0 {
		sessionCap = cfg.MaxSessionLengthMin
	}

	dayTasks := rerankForDay(tasks, date, cfg.Timezone)

	var sessions []models.StudySession
	isToday := date == today
	for _, w := range windows {
		block := timeBlock{start: w.start, end: w.end}
		if isToday && block.start.Before(ref) {
			block.start = ref
		}
		if !block.start.Before(block.end) {
			continue
		}
		placed, remaining := allocateBlock(block, dayTasks, sessionCap, cfg.BreakDurationMin, ref, models.GeneratedWeekly)
		sessions = append(sessions, placed...)
		dayTasks = remaining
	}

	sessions = insertBreaks(sessions, cfg.BreakDurationMin)
	sessions = interleaveForVariety(sessions, criticalTaskIDs(tasks))

	return Day{Date: date, Sessions: sessions}, dayTasks
}

// AvailableWindowMinutes computes, for each of the 7 days starting at
// ref's local date, the raw preferred-window minutes and the minutes
// still free once constraints are applied. WorkloadAnalyzer uses the
// two totals to derive available study capacity and a
// constraints-blocked ratio, per spec §4.6.
func AvailableWindowMinutes(cfg Config, constraints []models.ScheduleConstraint, ref time.Time) (rawMinutes, freeMinutes int) {
	today := timekit.LocalDateOf(ref, cfg.Timezone)
	for i := 0; i < 7; i++ {
		date := today.AddDays(i)
		windows := resolveWindows(cfg, date)
		for _, w := range windows {
			rawMinutes += int(w.end.Sub(w.start).Minutes())
		}
		free := applyConstraints(windows, constraints, date, cfg.Timezone)
		for _, w := range free {
			freeMinutes += int(w.end.Sub(w.start).Minutes())
		}
	}
	return rawMinutes, freeMinutes
}

// AvailableWindowMinutesForDay is AvailableWindowMinutes narrowed to a
// single date, used by WorkloadAnalyzer's per-day post-generation
// checks (day overload, constraints blocking all time).
func AvailableWindowMinutesForDay(cfg Config, constraints []models.ScheduleConstraint, date timekit.LocalDate) (rawMinutes, freeMinutes int) {
	windows := resolveWindows(cfg, date)
	for _, w := range windows {
		rawMinutes += int(w.end.Sub(w.start).Minutes())
	}
	free := applyConstraints(windows, constraints, date, cfg.Timezone)
	for _, w := range free {
		freeMinutes += int(w.end.Sub(w.start).Minutes())
	}
	return rawMinutes, freeMinutes
}

func criticalTaskIDs(ranked []weightengine.Weighted) map[string]bool {
	out := make(map[string]bool)
	for _, w := range ranked {
		if w.Task.Priority == models.PriorityCritical {
			out[w.Task.ID] = true
		}
	}
	return out
}

type utcWindow struct {
	start, end time.Time
}

// resolveWindows translates cfg.PreferredWindows into UTC intervals
// for date, per TimeKit's WindowToUTCRange, step 1 of spec §4.4.
func resolveWindows(cfg Config, date timekit.LocalDate) []utcWindow {
	var out []utcWindow
	for _, w := range cfg.PreferredWindows {
		startLocal, endLocal, err := w.Bounds()
		if err != nil {
			continue
		}
		start, end, err := timekit.WindowToUTCRange(date, startLocal, endLocal, cfg.Timezone)
		if err != nil {
			continue
		}
		out = append(out, utcWindow{start: start, end: end})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].start.Before(out[j].start) })
	return out
}

// applyConstraints removes any window overlapping a relevant
// constraint, per spec §4.4 step 2: coarse strict-overlap exclusion,
// no partial splitting.
func applyConstraints(windows []utcWindow, constraints []models.ScheduleConstraint, date timekit.LocalDate, tz *time.Location) []utcWindow {
	var out []utcWindow
	for _, w := range windows {
		blocked := false
		for _, c := range constraints {
			cs, ce, ok := constraintInterval(c, date, tz)
			if !ok {
				continue
			}
			if w.start.Before(ce) && cs.Before(w.end) {
				blocked = true
				break
			}
		}
		if !blocked {
			out = append(out, w)
		}
	}
	return out
}

func constraintInterval(c models.ScheduleConstraint, date timekit.LocalDate, tz *time.Location) (start, end time.Time, ok bool) {
	if c.IsRecurring() {
		wd := models.SpecWeekday(toTime(date).Weekday())
		matched := false
		for _, d := range c.DaysOfWeek {
			if d == wd {
				matched = true
				break
			}
		}
		if !matched {
			return time.Time{}, time.Time{}, false
		}
		start, end, err := timekit.WindowToUTCRange(date, c.StartTime, c.EndTime, tz)
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		return start, end, true
	}
	if c.StartDatetime == nil || c.EndDatetime == nil {
		return time.Time{}, time.Time{}, false
	}
	startDate := timekit.LocalDateOf(*c.StartDatetime, tz)
	endDate := timekit.LocalDateOf(*c.EndDatetime, tz)
	if date.Before(startDate) || date.After(endDate) {
		return time.Time{}, time.Time{}, false
	}
	return *c.StartDatetime, *c.EndDatetime, true
}

func toTime(d timekit.LocalDate) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// rerankForDay stable-sorts so tasks whose deadline's local date is on
// or before date (in tz) come first, per spec §4.4 step 3.
func rerankForDay(ranked []weightengine.Weighted, date timekit.LocalDate, tz *time.Location) []weightengine.Weighted {
	out := make([]weightengine.Weighted, len(ranked))
	copy(out, ranked)
	sort.SliceStable(out, func(i, j int) bool {
		di := deadlinePassed(out[i].Task, date, tz)
		dj := deadlinePassed(out[j].Task, date, tz)
		return di && !dj
	})
	return out
}

func deadlinePassed(t models.Task, date timekit.LocalDate, tz *time.Location) bool {
	if t.Deadline == nil {
		return false
	}
	dl := timekit.LocalDateOf(*t.Deadline, tz)
	return !dl.After(date)
}

// allocateBlock greedily fills block with sessions from the top of
// tasks, per spec §4.4 step 4. It returns the placed sessions and the
// tasks slice with RemainingMinutes decremented and exhausted tasks
// dropped.
func allocateBlock(block timeBlock, tasks []weightengine.Weighted, sessionCap, breakMin int, ref time.Time, genBy models.GeneratedBy) ([]models.StudySession, []weightengine.Weighted) {
	cursor := block.start
	var sessions []models.StudySession
	remaining := make([]weightengine.Weighted, len(tasks))
	copy(remaining, tasks)

	for len(remaining) > 0 {
		if !cursor.Before(block.end) {
			break
		}
		top := &remaining[0]
		windowLeft := int(block.end.Sub(cursor).Minutes())
		length := min3(sessionCap, top.RemainingMinutes, windowLeft)

		if length < 10 {
			if top.RemainingMinutes < 10 {
				// noise: drop the task entirely
				remaining = remaining[1:]
				continue
			}
			// only the window remainder is short: stop this window,
			// keep the task for the next one
			break
		}

		start := cursor
		end := start.Add(time.Duration(length) * time.Minute)
		sessions = append(sessions, models.StudySession{
			TaskID:      &top.Task.ID,
			SubjectID:   top.Task.SubjectID,
			StartTime:   start,
			EndTime:     end,
			Status:      models.SessionPlanned,
			GeneratedBy: genBy,
		})

		cursor = end.Add(time.Duration(breakMin) * time.Minute)
		top.RemainingMinutes -= length
		if top.RemainingMinutes <= 0 {
			remaining = remaining[1:]
		}
	}

	return sessions, remaining
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// insertBreaks enforces breakMin between consecutive sessions by
// shifting later sessions forward, per spec §4.4 step 5.
func insertBreaks(sessions []models.StudySession, breakMin int) []models.StudySession {
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].StartTime.Before(sessions[j].StartTime) })
	gap := time.Duration(breakMin) * time.Minute
	for i := 1; i < len(sessions); i++ {
		minStart := sessions[i-1].EndTime.Add(gap)
		if sessions[i].StartTime.Before(minStart) {
			shift := minStart.Sub(sessions[i].StartTime)
			sessions[i].StartTime = sessions[i].StartTime.Add(shift)
			sessions[i].EndTime = sessions[i].EndTime.Add(shift)
		}
	}
	return sessions
}

// interleaveForVariety swaps in a different-subject task assignment
// for adjacent same-subject pairs, per spec §4.4 step 6. Only the
// task/subject identity is swapped between the two time slots (not
// their start/end times, which remain valid allocations); sessions
// belonging to a CRITICAL task never move and bound the look-ahead.
func interleaveForVariety(sessions []models.StudySession, isCriticalTask map[string]bool) []models.StudySession {
	isCritical := func(s models.StudySession) bool {
		return s.TaskID != nil && isCriticalTask[*s.TaskID]
	}

	for i := 0; i+1 < len(sessions); i++ {
		if isCritical(sessions[i]) || isCritical(sessions[i+1]) {
			continue
		}
		if sameSubject(sessions[i], sessions[i+1]) {
			for j := i + 2; j < len(sessions); j++ {
				if isCritical(sessions[j]) {
					break
				}
				if !sameSubject(sessions[i], sessions[j]) {
					swapAssignment(&sessions[i+1], &sessions[j])
					break
				}
			}
		}
	}
	return sessions
}

func swapAssignment(a, b *models.StudySession) {
	a.TaskID, b.TaskID = b.TaskID, a.TaskID
	a.SubjectID, b.SubjectID = b.SubjectID, a.SubjectID
}

func sameSubject(a, b models.StudySession) bool {
	if a.SubjectID == nil || b.SubjectID == nil {
		return false
	}
	return *a.SubjectID == *b.SubjectID
}
