package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/smartstudy/companion/internal/apperr"
	"github.com/smartstudy/companion/internal/models"
	"github.com/smartstudy/companion/internal/planner"
	"github.com/smartstudy/companion/internal/timekit"
	"github.com/smartstudy/companion/internal/weightengine"
	"github.com/smartstudy/companion/internal/workload"
)

// rankingContext bundles the per-user inputs the data flow of spec §2
// requires before a plan can be produced: the user's timezone and
// preferences, ranked tasks, constraints, and energy levels.
type rankingContext struct {
	user        models.User
	tz          *time.Location
	subjects    []models.Subject
	tasks       []models.Task
	constraints []models.ScheduleConstraint
	ranked      []weightengine.Weighted
	cfg         planner.Config
}

func (s *Server) buildRankingContext(ctx context.Context, userID string, ref time.Time) (rankingContext, error) {
	user, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return rankingContext{}, err
	}
	tz, err := timekit.LoadLocation(user.Timezone)
	if err != nil {
		return rankingContext{}, apperr.Validationf("invalid stored timezone %q: %v", user.Timezone, err)
	}

	subjects, err := s.Store.ListSubjects(ctx, userID)
	if err != nil {
		return rankingContext{}, err
	}
	tasks, err := s.Store.ListSchedulableTasks(ctx, userID)
	if err != nil {
		return rankingContext{}, err
	}
	constraints, err := s.Store.ListConstraints(ctx, userID)
	if err != nil {
		return rankingContext{}, err
	}

	subjectsByID := make(map[string]models.Subject, len(subjects))
	for _, subj := range subjects {
		subjectsByID[subj.ID] = subj
	}
	ranked := weightengine.Rank(tasks, subjectsByID, ref, tz)

	cfg := planner.Config{
		UserID:              userID,
		Timezone:            tz,
		PreferredWindows:    user.PreferredStudyWindows,
		MaxSessionLengthMin: user.MaxSessionLengthMin,
		BreakDurationMin:    user.BreakDurationMin,
	}

	return rankingContext{
		user:        user,
		tz:          tz,
		subjects:    subjects,
		tasks:       tasks,
		constraints: constraints,
		ranked:      ranked,
		cfg:         cfg,
	}, nil
}

func (s *Server) labelsFor(rc rankingContext) labels {
	return labels{subjectNames: subjectNameMap(rc.subjects), taskTitles: taskTitleMap(rc.tasks)}
}

// handleGenerate implements POST /schedule/generate.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFromContext(ctx)
	ref := time.Now().UTC()

	today := timekit.LocalDateOf(ref, time.UTC)
	if err := s.Persistence.ExpandRecurringInstances(ctx, userID, today, today.AddDays(6)); err != nil {
		writeError(w, err)
		return
	}
	reschedule, err := s.Persistence.RescheduleOverdueTasks(ctx, userID, ref)
	if err != nil {
		writeError(w, err)
		return
	}

	rc, err := s.buildRankingContext(ctx, userID, ref)
	if err != nil {
		writeError(w, err)
		return
	}

	localToday := timekit.LocalDateOf(ref, rc.tz)
	energyByDate, err := s.Store.GetEnergyLevels(ctx, userID, localToday, localToday.AddDays(6))
	if err != nil {
		writeError(w, err)
		return
	}

	plan := planner.Generate(rc.cfg, rc.ranked, rc.constraints, energyByDate, ref)

	if err := s.Persistence.Regenerate(ctx, userID, plan, ref); err != nil {
		writeError(w, err)
		return
	}

	var explanation string
	if r.URL.Query().Get("use_ai_optimization") == "true" {
		explanation = s.tryOptimizationExplanation(ctx, rc, plan)
	}

	resp := toWeeklyPlanResponse(plan, s.labelsFor(rc), explanation)
	resp.Rescheduled = reschedule
	writeJSON(w, http.StatusOK, resp)
}

// tryOptimizationExplanation asks the configured coach adapter for a
// short explanation of the generated plan. Per spec §7's "AI adapter
// failure" policy, any error here only drops the optional field; it
// never fails the request.
func (s *Server) tryOptimizationExplanation(ctx context.Context, rc rankingContext, plan planner.Plan) string {
	completed, total, err := s.Store.RecentCompletionStats(ctx, rc.user.ID, plan.GeneratedAt.AddDate(0, 0, -30))
	if err != nil {
		return ""
	}
	studyCtx := s.buildCoachContext(rc, completed, total, nil)
	reply, err := s.Coach.Ask(ctx, "Briefly explain this week's study plan and any tradeoffs.", studyCtx)
	if err != nil {
		return ""
	}
	return reply.Message
}

// handleMicro implements POST /schedule/micro.
func (s *Server) handleMicro(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFromContext(ctx)
	ref := time.Now().UTC()

	var body struct {
		TotalMinutes int `json:"total_minutes"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.TotalMinutes <= 0 {
		writeError(w, apperr.Validation("total_minutes must be positive"))
		return
	}

	today := timekit.LocalDateOf(ref, time.UTC)
	if err := s.Persistence.ExpandRecurringInstances(ctx, userID, today, today.AddDays(6)); err != nil {
		writeError(w, err)
		return
	}

	rc, err := s.buildRankingContext(ctx, userID, ref)
	if err != nil {
		writeError(w, err)
		return
	}

	sessions := planner.GenerateMicro(rc.cfg, rc.ranked, body.TotalMinutes, ref)
	l := s.labelsFor(rc)
	dtos := make([]sessionDTO, 0, len(sessions))
	for _, sess := range sessions {
		dtos = append(dtos, toSessionDTO(sess, l))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// handleListSessions implements GET /schedule/sessions.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFromContext(ctx)
	ref := time.Now().UTC()

	user, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	tz, err := timekit.LoadLocation(user.Timezone)
	if err != nil {
		writeError(w, apperr.Validationf("invalid stored timezone %q: %v", user.Timezone, err))
		return
	}

	if err := s.Persistence.Cleanup(ctx, userID, timekit.LocalMidnight(ref, tz), ref.AddDate(1, 0, 0), ref); err != nil {
		writeError(w, err)
		return
	}

	from := timekit.LocalMidnight(ref, tz)
	sessions, err := s.Store.ListSessionsInRange(ctx, userID, from, ref.AddDate(1, 0, 0))
	if err != nil {
		writeError(w, err)
		return
	}

	subjects, _ := s.Store.ListSubjects(ctx, userID)
	tasks, _ := s.Store.ListSchedulableTasks(ctx, userID)
	l := labels{subjectNames: subjectNameMap(subjects), taskTitles: taskTitleMap(tasks)}

	dtos := make([]sessionDTO, 0, len(sessions))
	for _, sess := range sessions {
		dtos = append(dtos, toSessionDTO(sess, l))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// handleCreateSession implements POST /schedule/sessions.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFromContext(ctx)

	var body sessionDTO
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	sess := models.StudySession{
		StartTime:   body.StartTime,
		EndTime:     body.EndTime,
		SubjectID:   body.SubjectID,
		TaskID:      body.TaskID,
		EnergyLevel: body.EnergyLevel,
		Notes:       body.Notes,
		Status:      models.SessionPlanned,
	}

	created, err := s.Persistence.CreateManualSession(ctx, userID, sess)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionDTO(created, labels{}))
}

// handleUpdateSession implements PATCH /schedule/sessions/{id}.
func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFromContext(ctx)
	sessionID := chi.URLParam(r, "id")

	var body struct {
		Status    *models.SessionStatus `json:"status"`
		StartTime *time.Time            `json:"start_time"`
		EndTime   *time.Time            `json:"end_time"`
		Notes     *string               `json:"notes"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	if body.StartTime != nil || body.EndTime != nil || body.Notes != nil {
		existing, err := s.Store.GetSessionForUser(ctx, userID, sessionID)
		if err != nil {
			writeError(w, err)
			return
		}
		newStart, newEnd := existing.StartTime, existing.EndTime
		if body.StartTime != nil {
			newStart = *body.StartTime
		}
		if body.EndTime != nil {
			newEnd = *body.EndTime
		}
		if _, err := s.Persistence.EditSession(ctx, userID, sessionID, newStart, newEnd, body.Notes); err != nil {
			writeError(w, err)
			return
		}
	}

	if body.Status != nil {
		if err := s.Persistence.SetSessionStatus(ctx, userID, sessionID, *body.Status, time.Now().UTC()); err != nil {
			writeError(w, err)
			return
		}
	}

	updated, err := s.Store.GetSessionForUser(ctx, userID, sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(updated, labels{}))
}

// handleDeleteSession implements DELETE /schedule/sessions/{id}.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFromContext(ctx)
	sessionID := chi.URLParam(r, "id")

	if err := s.Persistence.DeleteSession(ctx, userID, sessionID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStartSession implements POST /schedule/sessions/{id}/start.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFromContext(ctx)
	sessionID := chi.URLParam(r, "id")

	if err := s.Persistence.StartSession(ctx, userID, sessionID); err != nil {
		writeError(w, err)
		return
	}
	updated, err := s.Store.GetSessionForUser(ctx, userID, sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(updated, labels{}))
}

// handleWorkloadAnalysis implements GET /schedule/workload-analysis.
func (s *Server) handleWorkloadAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFromContext(ctx)
	ref := time.Now().UTC()

	rc, err := s.buildRankingContext(ctx, userID, ref)
	if err != nil {
		writeError(w, err)
		return
	}
	completed, total, err := s.Store.RecentCompletionStats(ctx, userID, ref.AddDate(0, 0, -30))
	if err != nil {
		writeError(w, err)
		return
	}

	warnings := workload.AnalyzePreGeneration(workload.PreGenInput{
		Tasks:            rc.tasks,
		Subjects:         rc.subjects,
		Constraints:      rc.constraints,
		PlannerConfig:    rc.cfg,
		WeeklyStudyHours: rc.user.WeeklyStudyHours,
		CompletedCount:   completed,
		TotalCount:       total,
		Ref:              ref,
	})
	writeJSON(w, http.StatusOK, warnings)
}

// handleAnalyze implements POST /schedule/analyze: re-runs the
// post-generation checks of §4.6 against the sessions already on the
// calendar, without generating anything.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFromContext(ctx)
	ref := time.Now().UTC()

	rc, err := s.buildRankingContext(ctx, userID, ref)
	if err != nil {
		writeError(w, err)
		return
	}

	today := timekit.LocalDateOf(ref, rc.tz)
	from := timekit.LocalMidnight(ref, rc.tz)
	to := from.AddDate(0, 0, 7)
	sessions, err := s.Store.ListSessionsInRange(ctx, userID, from, to)
	if err != nil {
		writeError(w, err)
		return
	}

	byDate := map[string][]models.StudySession{}
	for _, sess := range sessions {
		date := timekit.LocalDateOf(sess.StartTime, rc.tz)
		key := date.String()
		byDate[key] = append(byDate[key], sess)
	}
	var days []planner.Day
	for i := 0; i < 7; i++ {
		date := today.AddDays(i)
		days = append(days, planner.Day{Date: date, Sessions: byDate[date.String()]})
	}
	plan := planner.Plan{UserID: userID, GeneratedAt: ref, Days: days}

	warnings := workload.AnalyzePostGeneration(workload.PostGenInput{
		Plan:          plan,
		Tasks:         rc.tasks,
		Constraints:   rc.constraints,
		PlannerConfig: rc.cfg,
	})
	writeJSON(w, http.StatusOK, warnings)
}
