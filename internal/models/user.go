package models

import "time"

// User holds a student's identity and scheduling preferences.
// Authentication (password hashing, JWT issuance) lives outside this
// core per spec §1's non-goals; User only carries what the scheduler
// consumes.
type User struct {
	ID                     string    `json:"id"`
	Timezone               string    `json:"timezone"` // IANA name
	WeeklyStudyHours       float64   `json:"weekly_study_hours"`
	PreferredStudyWindows  []Window  `json:"preferred_study_windows"`
	MaxSessionLengthMin    int       `json:"max_session_length"`
	BreakDurationMin       int       `json:"break_duration"`
	CalendarToken          string    `json:"-"` // opaque, never serialized in API responses
	ShareToken             string    `json:"-"`
	ShareTokenExpiresAt    *time.Time `json:"-"`
	// Version is an optimistic-concurrency guard: the PersistenceProtocol
	// bumps it on every committed regeneration, and refuses to commit if
	// the row's version moved out from under it mid-transaction.
	Version int `json:"-"`
}

// CalendarTokenSet reports whether the user has an active iCal feed token.
func (u User) CalendarTokenSet() bool { return u.CalendarToken != "" }

// ShareTokenValid reports whether the plan-share token exists and has
// not expired as of now.
func (u User) ShareTokenValid(now time.Time) bool {
	if u.ShareToken == "" {
		return false
	}
	if u.ShareTokenExpiresAt == nil {
		return true
	}
	return now.Before(*u.ShareTokenExpiresAt)
}
