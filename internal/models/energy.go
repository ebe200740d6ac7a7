package models

// DailyEnergy records a user's self-reported energy level for one
// local date; at most one row per (user, date). Governs the Planner's
// per-day session-length cap.
type DailyEnergy struct {
	UserID string      `json:"user_id"`
	Date   string      `json:"date"` // YYYY-MM-DD in the user's tz
	Level  EnergyLevel `json:"level"`
}

// EnergyCapMinutes maps an energy level to the Planner's maximum
// session length for that day, per spec §4.4 step 4.
var EnergyCapMinutes = map[EnergyLevel]int{
	EnergyLow:    45,
	EnergyMedium: 90,
	EnergyHigh:   120,
}
