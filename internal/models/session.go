package models

import "time"

// StudySession is a single scheduled or actual study block, stored as
// naive UTC and interpreted as UTC per spec §3.
type StudySession struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Status    SessionStatus `json:"status"`

	SubjectID *string `json:"subject_id,omitempty"`
	TaskID    *string `json:"task_id,omitempty"`

	EnergyLevel *EnergyLevel `json:"energy_level,omitempty"`
	GeneratedBy GeneratedBy  `json:"generated_by"`
	IsPinned    bool         `json:"is_pinned"`
	Notes       string       `json:"notes,omitempty"`
}

// DurationMinutes returns the session length in whole minutes.
func (s StudySession) DurationMinutes() int {
	return int(s.EndTime.Sub(s.StartTime).Minutes())
}

// ValidDuration reports whether the session's duration falls inside
// the [5, 480] minute bound required by spec §3.
func (s StudySession) ValidDuration() bool {
	if !s.StartTime.Before(s.EndTime) {
		return false
	}
	d := s.DurationMinutes()
	return d >= 5 && d <= 480
}

// Overlaps reports whether this session's interval strictly overlaps
// other's. Touching endpoints (this.End == other.Start) are not an
// overlap.
func (s StudySession) Overlaps(other StudySession) bool {
	return s.StartTime.Before(other.EndTime) && other.StartTime.Before(s.EndTime)
}

// OverlapsInterval reports whether this session's interval strictly
// overlaps the given [start, end) instant interval.
func (s StudySession) OverlapsInterval(start, end time.Time) bool {
	return s.StartTime.Before(end) && start.Before(s.EndTime)
}

// IsActiveOrCompleted reports whether the session is one the
// PersistenceProtocol's preserve set must never discard: completed,
// partial, or in-progress.
func (s StudySession) IsActiveOrCompleted() bool {
	switch s.Status {
	case SessionCompleted, SessionPartial, SessionInProgress:
		return true
	default:
		return false
	}
}

// MustPreserve reports whether regeneration must leave this session
// untouched, per spec §4.5 step 3: active/completed, or pinned
// regardless of status.
func (s StudySession) MustPreserve() bool {
	return s.IsActiveOrCompleted() || s.IsPinned
}

// Deletable reports whether regeneration's delete pass (§4.5 step 4)
// may remove this session: planned or skipped, and not pinned.
func (s StudySession) Deletable() bool {
	return (s.Status == SessionPlanned || s.Status == SessionSkipped) && !s.IsPinned
}
