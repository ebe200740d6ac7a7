package models

import "time"

// Task is a unit of study work: one-off or, via IsRecurringTemplate,
// a template that RecurrenceEngine expands into dated instances.
type Task struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	Title            string     `json:"title"`
	SubjectID        *string    `json:"subject_id,omitempty"`
	EstimatedMinutes int        `json:"estimated_minutes"`
	Deadline         *time.Time `json:"deadline,omitempty"` // UTC instant
	Priority         Priority   `json:"priority"`
	Status           TaskStatus `json:"status"`
	IsCompleted      bool       `json:"is_completed"`

	ActualMinutesSpent int `json:"actual_minutes_spent"` // derived from sessions
	TimerMinutesSpent  int `json:"timer_minutes_spent"`  // independent user-tracked time

	Subtasks []Subtask `json:"subtasks"`

	CompletedAt             *time.Time `json:"completed_at,omitempty"`
	PreventAutoCompletion   bool       `json:"prevent_auto_completion"`

	// Recurrence extension
	IsRecurringTemplate  bool       `json:"is_recurring_template"`
	RecurringTemplateID  *string    `json:"recurring_template_id,omitempty"`
	RecurrencePattern    *Pattern   `json:"recurrence_pattern,omitempty"`
	RecurrenceEndDate    *time.Time `json:"recurrence_end_date,omitempty"`
	NextOccurrenceDate   *time.Time `json:"next_occurrence_date,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// TotalMinutesSpent is the invariant actual_minutes_spent +
// timer_minutes_spent, per spec §3.
func (t Task) TotalMinutesSpent() int {
	return t.ActualMinutesSpent + t.TimerMinutesSpent
}

// RemainingMinutes is max(0, estimated - total spent), the quantity
// WeightEngine and Planner both decrement as they allocate blocks.
func (t Task) RemainingMinutes() int {
	r := t.EstimatedMinutes - t.TotalMinutesSpent()
	if r < 0 {
		return 0
	}
	return r
}

// Schedulable reports whether this task is a candidate for the
// planner at all: not a template, not completed, with remaining work.
func (t Task) Schedulable() bool {
	return !t.IsRecurringTemplate && !t.IsCompleted && t.RemainingMinutes() > 0
}

// IsInstance reports whether this task is a concrete occurrence of a
// recurring template.
func (t Task) IsInstance() bool {
	return t.RecurringTemplateID != nil
}
