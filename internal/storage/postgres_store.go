package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/smartstudy/companion/internal/apperr"
	"github.com/smartstudy/companion/internal/models"
	"github.com/smartstudy/companion/internal/timekit"
)

// PostgresStore is the lib/pq-backed Provider, for multi-node
// deployments sharing a single database.
type PostgresStore struct {
	connStr string
	db      *sql.DB
}

// OpenPostgres normalizes connStr (search_path, sslmode defaults) and
// opens the connection, mirroring the teacher's PostgresStore
// connection-string handling.
func OpenPostgres(connStr string) (*PostgresStore, error) {
	s := &PostgresStore{connStr: connStr}
	s.ensureSearchPath()
	s.ensureSSLMode()

	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return nil, fmt.Errorf("opening postgres database: %w", err)
	}
	s.db = db
	return s, nil
}

func (s *PostgresStore) ensureSearchPath() {
	if strings.HasPrefix(s.connStr, "postgres://") || strings.HasPrefix(s.connStr, "postgresql://") {
		u, err := url.Parse(s.connStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to parse Postgres connection string %q: %v\n", s.connStr, err)
			return
		}
		q := u.Query()
		if q.Get("search_path") == "" {
			q.Set("search_path", "studycompanion")
			u.RawQuery = q.Encode()
			s.connStr = u.String()
		}
		return
	}
	if !hasParam(s.connStr, "search_path") {
		s.connStr = strings.TrimSpace(s.connStr) + " search_path=studycompanion"
	}
}

func (s *PostgresStore) ensureSSLMode() {
	if u, err := url.Parse(s.connStr); err == nil && u.Scheme != "" {
		q := u.Query()
		if q.Get("sslmode") == "" {
			q.Set("sslmode", "disable")
			u.RawQuery = q.Encode()
			s.connStr = u.String()
		}
		return
	}
	if !hasParam(s.connStr, "sslmode") {
		s.connStr = strings.TrimSpace(s.connStr) + " sslmode=disable"
	}
}

// hasParam reports whether DSN-style connStr already sets key.
func hasParam(connStr, key string) bool {
	for _, part := range strings.Fields(connStr) {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) == 2 && strings.EqualFold(kv[0], key) {
			return true
		}
	}
	return false
}

// DB exposes the underlying connection, for the migration runner.
func (s *PostgresStore) DB() *sql.DB { return s.db }

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Store("beginning transaction", err)
	}
	return &postgresTx{tx: tx}, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, userID string) (models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, timezone, weekly_study_hours, preferred_study_windows, max_session_length_min,
		       break_duration_min, calendar_token, share_token, share_token_expires_at, version
		FROM users WHERE id = $1`, userID))
}

func (s *PostgresStore) GetUserByCalendarToken(ctx context.Context, token string) (models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, timezone, weekly_study_hours, preferred_study_windows, max_session_length_min,
		       break_duration_min, calendar_token, share_token, share_token_expires_at, version
		FROM users WHERE calendar_token = $1`, token))
}

func (s *PostgresStore) ListSubjects(ctx context.Context, userID string) ([]models.Subject, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, priority, difficulty, workload, exam_date, deleted_at
		FROM subjects WHERE user_id = $1 AND deleted_at IS NULL`, userID)
	if err != nil {
		return nil, apperr.Store("listing subjects", err)
	}
	defer rows.Close()

	var out []models.Subject
	for rows.Next() {
		var subj models.Subject
		var examDate, deletedAt sql.NullTime
		if err := rows.Scan(&subj.ID, &subj.UserID, &subj.Name, &subj.Priority, &subj.Difficulty,
			&subj.Workload, &examDate, &deletedAt); err != nil {
			return nil, apperr.Store("scanning subject", err)
		}
		if examDate.Valid {
			t := examDate.Time
			subj.ExamDate = &t
		}
		if deletedAt.Valid {
			t := deletedAt.Time
			subj.DeletedAt = &t
		}
		out = append(out, subj)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListSchedulableTasks(ctx context.Context, userID string) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE user_id = $1 AND deleted_at IS NULL AND is_completed = false AND is_recurring_template = false`, userID)
	if err != nil {
		return nil, apperr.Store("listing schedulable tasks", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (s *PostgresStore) GetTask(ctx context.Context, userID, taskID string) (models.Task, error) {
	return scanTask(s.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`, taskID, userID))
}

func (s *PostgresStore) ListConstraints(ctx context.Context, userID string) ([]models.ScheduleConstraint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, days_of_week, start_time, end_time, start_datetime, end_datetime
		FROM schedule_constraints WHERE user_id = $1`, userID)
	if err != nil {
		return nil, apperr.Store("listing constraints", err)
	}
	defer rows.Close()

	var out []models.ScheduleConstraint
	for rows.Next() {
		var c models.ScheduleConstraint
		var daysJSON sql.NullString
		var start, end sql.NullTime
		if err := rows.Scan(&c.ID, &c.UserID, &c.Type, &daysJSON, &c.StartTime, &c.EndTime, &start, &end); err != nil {
			return nil, apperr.Store("scanning constraint", err)
		}
		if daysJSON.Valid && daysJSON.String != "" {
			_ = json.Unmarshal([]byte(daysJSON.String), &c.DaysOfWeek)
		}
		if start.Valid {
			t := start.Time
			c.StartDatetime = &t
		}
		if end.Valid {
			t := end.Time
			c.EndDatetime = &t
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetEnergyLevels(ctx context.Context, userID string, from, to timekit.LocalDate) (map[string]models.EnergyLevel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, level FROM daily_energy WHERE user_id = $1 AND date >= $2 AND date <= $3`,
		userID, from.String(), to.String())
	if err != nil {
		return nil, apperr.Store("listing energy levels", err)
	}
	defer rows.Close()

	out := make(map[string]models.EnergyLevel)
	for rows.Next() {
		var date string
		var level models.EnergyLevel
		if err := rows.Scan(&date, &level); err != nil {
			return nil, apperr.Store("scanning energy level", err)
		}
		out[date] = level
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListSessionsInRange(ctx context.Context, userID string, from, to time.Time) ([]models.StudySession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM study_sessions WHERE user_id = $1 AND start_time < $2 AND end_time > $3
		ORDER BY start_time`, userID, to, from)
	if err != nil {
		return nil, apperr.Store("listing sessions", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

func (s *PostgresStore) ListSessionsForTask(ctx context.Context, taskID string) ([]models.StudySession, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM study_sessions WHERE task_id = $1`, taskID)
	if err != nil {
		return nil, apperr.Store("listing sessions for task", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

func (s *PostgresStore) GetSessionForUser(ctx context.Context, userID, sessionID string) (models.StudySession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM study_sessions WHERE id = $1 AND user_id = $2`, sessionID, userID)
	sess, err := scanSessionRow(row)
	if err == sql.ErrNoRows {
		return models.StudySession{}, ErrNotFound{"session"}
	}
	if err != nil {
		return models.StudySession{}, apperr.Store("scanning session", err)
	}
	return sess, nil
}

func (s *PostgresStore) GetReflection(ctx context.Context, userID, date string) (models.DailyReflection, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, date, worked, challenging, summary, created_at
		FROM daily_reflections WHERE user_id = $1 AND date = $2`, userID, date)
	r, err := scanReflection(row)
	if err == sql.ErrNoRows {
		return models.DailyReflection{}, false, nil
	}
	if err != nil {
		return models.DailyReflection{}, false, apperr.Store("scanning reflection", err)
	}
	return r, true, nil
}

func (s *PostgresStore) RecentCompletionStats(ctx context.Context, userID string, since time.Time) (completed, total int, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status IN ('completed', 'partial')),
			COUNT(*)
		FROM study_sessions WHERE user_id = $1 AND start_time >= $2`, userID, since)
	if err := row.Scan(&completed, &total); err != nil {
		return 0, 0, apperr.Store("computing completion stats", err)
	}
	return completed, total, nil
}

// --- transaction ---

type postgresTx struct {
	tx *sql.Tx
}

func (t *postgresTx) Commit() error   { return t.tx.Commit() }
func (t *postgresTx) Rollback() error { return t.tx.Rollback() }

func (t *postgresTx) GetUserForUpdate(ctx context.Context, userID string) (models.User, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, timezone, weekly_study_hours, preferred_study_windows, max_session_length_min,
		       break_duration_min, calendar_token, share_token, share_token_expires_at, version
		FROM users WHERE id = $1 FOR UPDATE`, userID)
	return scanUser(row)
}

func (t *postgresTx) UpdateUserVersioned(ctx context.Context, u models.User) error {
	windowsJSON, err := json.Marshal(u.PreferredStudyWindows)
	if err != nil {
		return apperr.Store("encoding preferred_study_windows", err)
	}
	res, err := t.tx.ExecContext(ctx, `
		UPDATE users SET timezone = $1, weekly_study_hours = $2, preferred_study_windows = $3,
			max_session_length_min = $4, break_duration_min = $5, calendar_token = $6,
			share_token = $7, share_token_expires_at = $8, version = version + 1
		WHERE id = $9 AND version = $10`,
		u.Timezone, u.WeeklyStudyHours, string(windowsJSON), u.MaxSessionLengthMin, u.BreakDurationMin,
		u.CalendarToken, nullableString(u.ShareToken), u.ShareTokenExpiresAt, u.ID, u.Version)
	if err != nil {
		return apperr.Store("updating user", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return apperr.Store("checking update result", err)
	}
	if rows == 0 {
		return apperr.Conflict("user was modified concurrently", "")
	}
	return nil
}

func (t *postgresTx) ListSessionsInRange(ctx context.Context, userID string, from, to time.Time) ([]models.StudySession, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM study_sessions WHERE user_id = $1 AND start_time < $2 AND end_time > $3
		ORDER BY start_time`, userID, to, from)
	if err != nil {
		return nil, apperr.Store("listing sessions", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

func (t *postgresTx) GetSession(ctx context.Context, sessionID string) (models.StudySession, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM study_sessions WHERE id = $1`, sessionID)
	s, err := scanSessionRow(row)
	if err == sql.ErrNoRows {
		return models.StudySession{}, ErrNotFound{"session"}
	}
	if err != nil {
		return models.StudySession{}, apperr.Store("scanning session", err)
	}
	return s, nil
}

func (t *postgresTx) ListSessionsForTask(ctx context.Context, taskID string) ([]models.StudySession, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+sessionColumns+` FROM study_sessions WHERE task_id = $1`, taskID)
	if err != nil {
		return nil, apperr.Store("listing sessions for task", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

func (t *postgresTx) ListInProgressSessions(ctx context.Context, userID string) ([]models.StudySession, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM study_sessions WHERE user_id = $1 AND status = $2`,
		userID, models.SessionInProgress)
	if err != nil {
		return nil, apperr.Store("listing in-progress sessions", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

func (t *postgresTx) UpdateSessionStatus(ctx context.Context, sessionID string, status models.SessionStatus) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE study_sessions SET status = $1 WHERE id = $2`, status, sessionID)
	if err != nil {
		return apperr.Store("updating session status", err)
	}
	return nil
}

func (t *postgresTx) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM study_sessions WHERE id = $1`, sessionID)
	if err != nil {
		return apperr.Store("deleting session", err)
	}
	return nil
}

func (t *postgresTx) InsertSession(ctx context.Context, s models.StudySession) (string, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO study_sessions (id, user_id, start_time, end_time, status, subject_id, task_id,
			energy_level, generated_by, is_pinned, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID, s.UserID, s.StartTime, s.EndTime, s.Status, nullablePtr(s.SubjectID), nullablePtr(s.TaskID),
		nullableEnergy(s.EnergyLevel), s.GeneratedBy, s.IsPinned, nullableString(s.Notes))
	if err != nil {
		return "", apperr.Store("inserting session", err)
	}
	return s.ID, nil
}

func (t *postgresTx) UpdateSessionTimes(ctx context.Context, s models.StudySession) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE study_sessions SET start_time = $1, end_time = $2, status = $3, is_pinned = $4, notes = $5
		WHERE id = $6`, s.StartTime, s.EndTime, s.Status, s.IsPinned, nullableString(s.Notes), s.ID)
	if err != nil {
		return apperr.Store("updating session times", err)
	}
	return nil
}

func (t *postgresTx) GetTask(ctx context.Context, userID, taskID string) (models.Task, error) {
	return scanTask(t.tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`, taskID, userID))
}

func (t *postgresTx) UpdateTaskProgress(ctx context.Context, task models.Task) error {
	subtasksJSON, err := json.Marshal(task.Subtasks)
	if err != nil {
		return apperr.Store("encoding subtasks", err)
	}
	_, err = t.tx.ExecContext(ctx, `
		UPDATE tasks SET actual_minutes_spent = $1, is_completed = $2, status = $3, completed_at = $4, subtasks = $5
		WHERE id = $6`,
		task.ActualMinutesSpent, task.IsCompleted, task.Status, task.CompletedAt, string(subtasksJSON), task.ID)
	if err != nil {
		return apperr.Store("updating task progress", err)
	}
	return nil
}

func (t *postgresTx) UpsertRecurringInstance(ctx context.Context, task models.Task) (string, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	patternJSON, _ := json.Marshal(task.RecurrencePattern)
	subtasksJSON, _ := json.Marshal(task.Subtasks)
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO tasks (id, user_id, title, subject_id, estimated_minutes, deadline, priority, status,
			is_completed, actual_minutes_spent, timer_minutes_spent, subtasks, completed_at,
			prevent_auto_completion, is_recurring_template, recurring_template_id, recurrence_pattern,
			recurrence_end_date, next_occurrence_date, created_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (recurring_template_id, deadline) DO NOTHING`,
		task.ID, task.UserID, task.Title, nullablePtr(task.SubjectID), task.EstimatedMinutes, task.Deadline,
		task.Priority, task.Status, task.IsCompleted, task.ActualMinutesSpent, task.TimerMinutesSpent,
		string(subtasksJSON), task.CompletedAt, task.PreventAutoCompletion, false,
		nullablePtr(task.RecurringTemplateID), string(patternJSON), task.RecurrenceEndDate,
		task.NextOccurrenceDate, task.CreatedAt, task.DeletedAt)
	if err != nil {
		return "", apperr.Store("upserting recurring instance", err)
	}
	return task.ID, nil
}

func (t *postgresTx) ListRecurringTemplates(ctx context.Context, userID string) ([]models.Task, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE user_id = $1 AND deleted_at IS NULL AND is_recurring_template = true`, userID)
	if err != nil {
		return nil, apperr.Store("listing recurring templates", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (t *postgresTx) ListOverdueTasks(ctx context.Context, userID string, asOf time.Time) ([]models.Task, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE user_id = $1 AND deleted_at IS NULL AND is_completed = false
			AND is_recurring_template = false AND deadline IS NOT NULL AND deadline < $2`, userID, asOf)
	if err != nil {
		return nil, apperr.Store("listing overdue tasks", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (t *postgresTx) ListInstancesForTemplate(ctx context.Context, templateID string) ([]models.Task, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks WHERE recurring_template_id = $1 AND deleted_at IS NULL`, templateID)
	if err != nil {
		return nil, apperr.Store("listing instances for template", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (t *postgresTx) UpdateTaskSchedule(ctx context.Context, taskID string, deadline *time.Time, priority models.Priority) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE tasks SET deadline = $1, priority = $2 WHERE id = $3`, deadline, priority, taskID)
	if err != nil {
		return apperr.Store("updating task schedule", err)
	}
	return nil
}

func (t *postgresTx) SoftDeleteTask(ctx context.Context, taskID string, now time.Time) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE tasks SET deleted_at = $1 WHERE id = $2`, now, taskID)
	if err != nil {
		return apperr.Store("soft-deleting task", err)
	}
	return nil
}

func (t *postgresTx) DetachRecurringInstance(ctx context.Context, taskID string) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE tasks SET recurring_template_id = NULL WHERE id = $1`, taskID)
	if err != nil {
		return apperr.Store("detaching recurring instance", err)
	}
	return nil
}

func (t *postgresTx) UpdateRecurrenceTemplate(ctx context.Context, taskID string, pattern *models.Pattern, endDate *time.Time) error {
	patternJSON, err := json.Marshal(pattern)
	if err != nil {
		return apperr.Store("encoding recurrence_pattern", err)
	}
	_, err = t.tx.ExecContext(ctx, `
		UPDATE tasks SET recurrence_pattern = $1, recurrence_end_date = $2 WHERE id = $3`,
		string(patternJSON), endDate, taskID)
	if err != nil {
		return apperr.Store("updating recurrence template", err)
	}
	return nil
}

func (t *postgresTx) UpsertReflection(ctx context.Context, r models.DailyReflection) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO daily_reflections (user_id, date, worked, challenging, summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, date) DO UPDATE SET worked = excluded.worked,
			challenging = excluded.challenging, summary = excluded.summary`,
		r.UserID, r.Date, nullablePtrStr(r.Worked), nullablePtrStr(r.Challenging), r.Summary, r.CreatedAt)
	if err != nil {
		return apperr.Store("upserting reflection", err)
	}
	return nil
}
