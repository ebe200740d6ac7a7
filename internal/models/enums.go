package models

// Priority levels for tasks. Subjects use the coarser three-level
// Importance below; tasks add a Critical tier above High.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Importance is the subject priority scale.
type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceMedium Importance = "medium"
	ImportanceHigh   Importance = "high"
)

// Difficulty is a subject's cognitive difficulty.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// EnergyLevel is a per-day or per-session energy band.
type EnergyLevel string

const (
	EnergyLow    EnergyLevel = "low"
	EnergyMedium EnergyLevel = "medium"
	EnergyHigh   EnergyLevel = "high"
)

// TaskStatus mirrors a task's lifecycle state.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusBlocked    TaskStatus = "blocked"
	TaskStatusOnHold     TaskStatus = "on_hold"
	TaskStatusCompleted  TaskStatus = "completed"
)

// SessionStatus mirrors a study session's lifecycle state.
type SessionStatus string

const (
	SessionPlanned    SessionStatus = "planned"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionPartial    SessionStatus = "partial"
	SessionSkipped    SessionStatus = "skipped"
)

// GeneratedBy records which subsystem produced a session.
type GeneratedBy string

const (
	GeneratedWeekly GeneratedBy = "weekly"
	GeneratedMicro  GeneratedBy = "micro"
	GeneratedManual GeneratedBy = "manual"
)

// ConstraintType distinguishes the flavors of schedule constraint.
type ConstraintType string

const (
	ConstraintClass    ConstraintType = "class"
	ConstraintBusy     ConstraintType = "busy"
	ConstraintBlocked  ConstraintType = "blocked"
	ConstraintNoStudy  ConstraintType = "no_study"
)

// RecurrenceFrequency is the tagged-variant discriminator for Pattern.
type RecurrenceFrequency string

const (
	FrequencyDaily    RecurrenceFrequency = "daily"
	FrequencyWeekly   RecurrenceFrequency = "weekly"
	FrequencyBiweekly RecurrenceFrequency = "biweekly"
	FrequencyMonthly  RecurrenceFrequency = "monthly"
	// FrequencyYearly is a supplemented pattern the spec's distillation
	// folds into "monthly"; the original source and the teacher both
	// support a distinct annual recurrence, so it is named explicitly
	// here. Uses Pattern.Month + Pattern.DayOfMonth.
	FrequencyYearly RecurrenceFrequency = "yearly"
)

// ReflectionOrigin distinguishes user-authored from auto-generated
// reflections. Per the spec's design note, the source system
// distinguishes these by nullness of two fields; this rewrite
// introduces an explicit enum as recommended, while still honoring the
// nullness contract on read (see DailyReflection.Origin()).
type ReflectionOrigin string

const (
	ReflectionUser ReflectionOrigin = "user"
	ReflectionAuto ReflectionOrigin = "auto"
)
