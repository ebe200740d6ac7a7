package models

import "time"

// ScheduleConstraint marks an interval during which the user is
// unavailable: a recurring weekly slot (class, work shift) or a
// one-off blocked window.
type ScheduleConstraint struct {
	ID     string         `json:"id"`
	UserID string         `json:"user_id"`
	Type   ConstraintType `json:"type"`

	// Recurring form
	DaysOfWeek []int  `json:"days_of_week,omitempty"` // 0=Monday..6=Sunday
	StartTime  string `json:"start_time,omitempty"`   // HH:MM local
	EndTime    string `json:"end_time,omitempty"`      // HH:MM local

	// One-off form, UTC instants
	StartDatetime *time.Time `json:"start_datetime,omitempty"`
	EndDatetime   *time.Time `json:"end_datetime,omitempty"`
}

// IsRecurring reports whether this constraint is the weekly-repeating
// form rather than a one-off UTC interval.
func (c ScheduleConstraint) IsRecurring() bool {
	return c.StartDatetime == nil
}
