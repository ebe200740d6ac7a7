// Package weightengine computes a priority weight per task, per spec
// §4.2. It is a pure function over tasks/subjects/instant — no store
// I/O, matching the scheduling core's determinism requirement (spec
// §9).
package weightengine

import (
	"math"
	"sort"
	"time"

	"github.com/smartstudy/companion/internal/models"
	"github.com/smartstudy/companion/internal/timekit"
)

var priorityWeight = map[models.Priority]float64{
	models.PriorityLow:      0.8,
	models.PriorityMedium:   1.0,
	models.PriorityHigh:     1.3,
	models.PriorityCritical: 1.6,
}

var difficultyWeight = map[models.Difficulty]float64{
	models.DifficultyEasy:   0.9,
	models.DifficultyMedium: 1.0,
	models.DifficultyHard:   1.25,
}

// Weighted pairs a task with its computed weight and subject, keeping
// a mutable RemainingMinutes the Planner decrements as it allocates.
type Weighted struct {
	Task             models.Task
	Subject          *models.Subject
	Weight           float64
	RemainingMinutes int
}

// Rank computes weights for every schedulable task and returns them
// sorted by descending weight, ties broken by input order (a stable
// sort). A critical task's weight is raised to at least the highest
// high-priority weight and it wins a tie, so no critical task ranks
// below a high one. tz is the user's timezone, used to compute
// exam-date urgency in local days; ref is the reference instant.
func Rank(tasks []models.Task, subjectsByID map[string]models.Subject, ref time.Time, tz *time.Location) []Weighted {
	today := timekit.LocalDateOf(ref, tz)

	out := make([]Weighted, 0, len(tasks))
	for _, t := range tasks {
		if !t.Schedulable() {
			continue
		}

		var subj *models.Subject
		if t.SubjectID != nil {
			if s, ok := subjectsByID[*t.SubjectID]; ok {
				subj = &s
			}
		}

		w := weight(t, subj, ref, today)
		out = append(out, Weighted{
			Task:             t,
			Subject:          subj,
			Weight:           w,
			RemainingMinutes: t.RemainingMinutes(),
		})
	}

	maxHigh := 0.0
	for _, w := range out {
		if w.Task.Priority == models.PriorityHigh && w.Weight > maxHigh {
			maxHigh = w.Weight
		}
	}
	for i := range out {
		if out[i].Task.Priority == models.PriorityCritical && out[i].Weight < maxHigh {
			out[i].Weight = maxHigh
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Task.Priority == models.PriorityCritical && out[j].Task.Priority != models.PriorityCritical
	})
	return out
}

func weight(t models.Task, subj *models.Subject, ref time.Time, today timekit.LocalDate) float64 {
	w := priorityWeight[t.Priority]

	if subj != nil {
		w *= difficultyWeight[subj.Difficulty]
		if subj.ExamDate != nil {
			examDate := timekit.LocalDate{Year: subj.ExamDate.Year(), Month: subj.ExamDate.Month(), Day: subj.ExamDate.Day()}
			days := examDate.Sub(today)
			if days < 0 {
				days = 0
			}
			w *= 1 + math.Max(0, 30-float64(days))/30*0.5
		}
	}

	if t.Deadline != nil {
		days := t.Deadline.Sub(ref).Hours() / 24
		if days <= 0 {
			w *= 1.75
		} else {
			w *= 1 + math.Max(0, 7-days)/7
		}
	}

	w += float64(t.EstimatedMinutes) / 120

	if t.Priority == models.PriorityCritical {
		w = math.Max(w, 2.0)
	}

	return w
}
