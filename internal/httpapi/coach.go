package httpapi

import (
	"net/http"
	"sort"
	"time"

	"github.com/smartstudy/companion/internal/coach"
	"github.com/smartstudy/companion/internal/models"
	"github.com/smartstudy/companion/internal/workload"
)

// buildCoachContext condenses a rankingContext into the narrow
// coach.Context shape, per spec §4.9: upcoming tasks, recent
// completion rate, and any open workload warnings.
func (s *Server) buildCoachContext(ctx rankingContext, completed, total int, warnings []workload.Warning) coach.Context {
	subjectsByID := subjectNameMap(ctx.subjects)

	upcoming := make([]models.Task, 0, len(ctx.tasks))
	for _, t := range ctx.tasks {
		if t.Deadline != nil {
			upcoming = append(upcoming, t)
		}
	}
	sort.Slice(upcoming, func(i, j int) bool { return upcoming[i].Deadline.Before(*upcoming[j].Deadline) })
	if len(upcoming) > 5 {
		upcoming = upcoming[:5]
	}

	summaries := make([]coach.TaskSummary, 0, len(upcoming))
	for _, t := range upcoming {
		subjectName := ""
		if t.SubjectID != nil {
			subjectName = subjectsByID[*t.SubjectID]
		}
		deadline := ""
		if t.Deadline != nil {
			deadline = t.Deadline.Format(time.RFC3339)
		}
		summaries = append(summaries, coach.TaskSummary{Title: t.Title, Subject: subjectName, Deadline: deadline})
	}

	warningMessages := make([]string, 0, len(warnings))
	for _, warn := range warnings {
		warningMessages = append(warningMessages, warn.Message)
	}

	return coach.Context{
		UpcomingTasks:    summaries,
		RecentCompletion: workload.CompletionRate(completed, total),
		Warnings:         warningMessages,
	}
}

// handleCoachChat implements the HTTP chat-proxy handler described in
// SPEC_FULL.md §4.9: any adapter error is surfaced as a warning
// rather than a failed request, per spec §7's AI-adapter-failure
// policy. The only other caller of coach.Adapter is
// tryOptimizationExplanation, used by the schedule-generate handler.
func (s *Server) handleCoachChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := userIDFromContext(ctx)
	ref := time.Now().UTC()

	var body struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

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

	studyCtx := s.buildCoachContext(rc, completed, total, warnings)
	reply, err := s.Coach.Ask(ctx, body.Message, studyCtx)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "",
			"warning": "coach is currently unavailable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": reply.Message})
}
