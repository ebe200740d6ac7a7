package models

import "time"

// Subject groups tasks under a course/topic with its own difficulty
// and exam urgency, consumed by WeightEngine.
type Subject struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	Name       string      `json:"name"`
	Priority   Importance  `json:"priority"`
	Difficulty Difficulty  `json:"difficulty"`
	Workload   float64     `json:"workload"`
	ExamDate   *time.Time  `json:"exam_date,omitempty"` // date in user's tz, stored as local midnight UTC instant
	DeletedAt  *time.Time  `json:"deleted_at,omitempty"`
}
