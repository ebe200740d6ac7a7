// Package storage defines the persistence boundary for the scheduling
// core: a Provider opens read queries and begins transactions; a Tx
// scopes the mutating operations PersistenceProtocol needs inside a
// single commit/rollback unit, per spec §5's "single transaction per
// user" requirement. Grounded on the teacher's SQLiteStore/
// PostgresStore pair (internal/storage/sqlite_store.go,
// daylit-cli/internal/storage/postgres_store.go), which hand-write
// parallel SQL per backend rather than sharing a query builder.
package storage

import (
	"context"
	"time"

	"github.com/smartstudy/companion/internal/models"
	"github.com/smartstudy/companion/internal/timekit"
)

// Provider is the read-side and transaction-opening half of the store.
type Provider interface {
	BeginTx(ctx context.Context) (Tx, error)

	GetUser(ctx context.Context, userID string) (models.User, error)
	GetUserByCalendarToken(ctx context.Context, token string) (models.User, error)
	ListSubjects(ctx context.Context, userID string) ([]models.Subject, error)
	ListSchedulableTasks(ctx context.Context, userID string) ([]models.Task, error)
	GetTask(ctx context.Context, userID, taskID string) (models.Task, error)
	ListConstraints(ctx context.Context, userID string) ([]models.ScheduleConstraint, error)
	GetEnergyLevels(ctx context.Context, userID string, from, to timekit.LocalDate) (map[string]models.EnergyLevel, error)
	ListSessionsInRange(ctx context.Context, userID string, from, to time.Time) ([]models.StudySession, error)
	ListSessionsForTask(ctx context.Context, taskID string) ([]models.StudySession, error)
	GetSessionForUser(ctx context.Context, userID, sessionID string) (models.StudySession, error)
	GetReflection(ctx context.Context, userID, date string) (models.DailyReflection, bool, error)
	RecentCompletionStats(ctx context.Context, userID string, since time.Time) (completed, total int, err error)

	Close() error
}

// Tx scopes the mutating operations that must commit or roll back
// together: the cleanup/preserve/delete/insert sequence of §4.5, task
// progress propagation, and the optimistic user-version guard of §5.
type Tx interface {
	GetUserForUpdate(ctx context.Context, userID string) (models.User, error)
	UpdateUserVersioned(ctx context.Context, u models.User) error

	ListSessionsInRange(ctx context.Context, userID string, from, to time.Time) ([]models.StudySession, error)
	GetSession(ctx context.Context, sessionID string) (models.StudySession, error)
	ListSessionsForTask(ctx context.Context, taskID string) ([]models.StudySession, error)
	ListInProgressSessions(ctx context.Context, userID string) ([]models.StudySession, error)
	UpdateSessionStatus(ctx context.Context, sessionID string, status models.SessionStatus) error
	DeleteSession(ctx context.Context, sessionID string) error
	InsertSession(ctx context.Context, s models.StudySession) (string, error)
	UpdateSessionTimes(ctx context.Context, s models.StudySession) error

	GetTask(ctx context.Context, userID, taskID string) (models.Task, error)
	UpdateTaskProgress(ctx context.Context, t models.Task) error
	UpsertRecurringInstance(ctx context.Context, t models.Task) (string, error)

	// ListRecurringTemplates and ListOverdueTasks back RecurrenceEngine's
	// Expand and the §8 S5 overdue auto-reschedule pass respectively; both
	// need a transaction-scoped read since their callers mutate what they
	// read inside the same commit.
	ListRecurringTemplates(ctx context.Context, userID string) ([]models.Task, error)
	ListOverdueTasks(ctx context.Context, userID string, asOf time.Time) ([]models.Task, error)
	ListInstancesForTemplate(ctx context.Context, templateID string) ([]models.Task, error)
	UpdateTaskSchedule(ctx context.Context, taskID string, deadline *time.Time, priority models.Priority) error
	SoftDeleteTask(ctx context.Context, taskID string, now time.Time) error
	DetachRecurringInstance(ctx context.Context, taskID string) error
	UpdateRecurrenceTemplate(ctx context.Context, taskID string, pattern *models.Pattern, endDate *time.Time) error

	UpsertReflection(ctx context.Context, r models.DailyReflection) error

	Commit() error
	Rollback() error
}

// ErrNotFound is returned by single-row lookups that find nothing.
type ErrNotFound struct{ What string }

func (e ErrNotFound) Error() string { return e.What + " not found" }
