package models

import "time"

// DailyReflection is per (user, local date). Two modes exist: a
// user-authored reflection (Worked or Challenging set) or an
// auto-generated end-of-day summary (both null). Per the spec's design
// note, the source distinguishes these purely by nullness; this
// rewrite adds the Origin() accessor as the recommended explicit enum
// while keeping the underlying nullness contract, so storage needs no
// extra column for it.
type DailyReflection struct {
	UserID      string    `json:"user_id"`
	Date        string    `json:"date"` // YYYY-MM-DD local
	Worked      *string   `json:"worked,omitempty"`
	Challenging *string   `json:"challenging,omitempty"`
	Summary     string    `json:"summary,omitempty"` // auto-generated text, or echo of user input
	CreatedAt   time.Time `json:"created_at"`
}

// Origin reports whether this reflection was authored by the user or
// generated automatically, derived from the nullness of Worked and
// Challenging per spec §3/§9.
func (r DailyReflection) Origin() ReflectionOrigin {
	if r.Worked != nil || r.Challenging != nil {
		return ReflectionUser
	}
	return ReflectionAuto
}
