package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/smartstudy/companion/internal/apperr"
	"github.com/smartstudy/companion/internal/models"
	"github.com/smartstudy/companion/internal/timekit"
)

// SQLiteStore is the modernc.org/sqlite-backed Provider, for
// single-node deployments and local development.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (but does not migrate) a SQLite database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// DB exposes the underlying connection, for the migration runner.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Store("beginning transaction", err)
	}
	return &sqliteTx{tx: tx}, nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, timezone, weekly_study_hours, preferred_study_windows, max_session_length_min,
		       break_duration_min, calendar_token, share_token, share_token_expires_at, version
		FROM users WHERE id = ?`, userID))
}

func (s *SQLiteStore) GetUserByCalendarToken(ctx context.Context, token string) (models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, timezone, weekly_study_hours, preferred_study_windows, max_session_length_min,
		       break_duration_min, calendar_token, share_token, share_token_expires_at, version
		FROM users WHERE calendar_token = ?`, token))
}

func scanUser(row *sql.Row) (models.User, error) {
	var u models.User
	var windowsJSON string
	var shareToken sql.NullString
	var shareExpires sql.NullTime
	err := row.Scan(&u.ID, &u.Timezone, &u.WeeklyStudyHours, &windowsJSON, &u.MaxSessionLengthMin,
		&u.BreakDurationMin, &u.CalendarToken, &shareToken, &shareExpires, &u.Version)
	if err == sql.ErrNoRows {
		return models.User{}, ErrNotFound{"user"}
	}
	if err != nil {
		return models.User{}, apperr.Store("scanning user", err)
	}
	if err := json.Unmarshal([]byte(windowsJSON), &u.PreferredStudyWindows); err != nil {
		return models.User{}, apperr.Store("decoding preferred_study_windows", err)
	}
	if shareToken.Valid {
		u.ShareToken = shareToken.String
	}
	if shareExpires.Valid {
		t := shareExpires.Time
		u.ShareTokenExpiresAt = &t
	}
	return u, nil
}

func (s *SQLiteStore) ListSubjects(ctx context.Context, userID string) ([]models.Subject, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, priority, difficulty, workload, exam_date, deleted_at
		FROM subjects WHERE user_id = ? AND deleted_at IS NULL`, userID)
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

func (s *SQLiteStore) ListSchedulableTasks(ctx context.Context, userID string) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE user_id = ? AND deleted_at IS NULL AND is_completed = 0 AND is_recurring_template = 0`, userID)
	if err != nil {
		return nil, apperr.Store("listing schedulable tasks", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (s *SQLiteStore) GetTask(ctx context.Context, userID, taskID string) (models.Task, error) {
	return scanTask(s.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?`, taskID, userID))
}

func (s *SQLiteStore) ListConstraints(ctx context.Context, userID string) ([]models.ScheduleConstraint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, days_of_week, start_time, end_time, start_datetime, end_datetime
		FROM schedule_constraints WHERE user_id = ?`, userID)
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

func (s *SQLiteStore) GetEnergyLevels(ctx context.Context, userID string, from, to timekit.LocalDate) (map[string]models.EnergyLevel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, level FROM daily_energy WHERE user_id = ? AND date >= ? AND date <= ?`,
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

func (s *SQLiteStore) ListSessionsInRange(ctx context.Context, userID string, from, to time.Time) ([]models.StudySession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM study_sessions WHERE user_id = ? AND start_time < ? AND end_time > ?
		ORDER BY start_time`, userID, to, from)
	if err != nil {
		return nil, apperr.Store("listing sessions", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

func (s *SQLiteStore) ListSessionsForTask(ctx context.Context, taskID string) ([]models.StudySession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM study_sessions WHERE task_id = ?`, taskID)
	if err != nil {
		return nil, apperr.Store("listing sessions for task", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

func (s *SQLiteStore) GetSessionForUser(ctx context.Context, userID, sessionID string) (models.StudySession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM study_sessions WHERE id = ? AND user_id = ?`, sessionID, userID)
	sess, err := scanSessionRow(row)
	if err == sql.ErrNoRows {
		return models.StudySession{}, ErrNotFound{"session"}
	}
	if err != nil {
		return models.StudySession{}, apperr.Store("scanning session", err)
	}
	return sess, nil
}

func (s *SQLiteStore) GetReflection(ctx context.Context, userID, date string) (models.DailyReflection, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, date, worked, challenging, summary, created_at
		FROM daily_reflections WHERE user_id = ? AND date = ?`, userID, date)
	r, err := scanReflection(row)
	if err == sql.ErrNoRows {
		return models.DailyReflection{}, false, nil
	}
	if err != nil {
		return models.DailyReflection{}, false, apperr.Store("scanning reflection", err)
	}
	return r, true, nil
}

func (s *SQLiteStore) RecentCompletionStats(ctx context.Context, userID string, since time.Time) (completed, total int, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status IN ('completed', 'partial')),
			COUNT(*)
		FROM study_sessions WHERE user_id = ? AND start_time >= ?`, userID, since)
	if err := row.Scan(&completed, &total); err != nil {
		return 0, 0, apperr.Store("computing completion stats", err)
	}
	return completed, total, nil
}

// --- shared column lists / scan helpers (used by both sqlite and postgres, placeholder-free) ---

const taskColumns = `id, user_id, title, subject_id, estimated_minutes, deadline, priority, status,
	is_completed, actual_minutes_spent, timer_minutes_spent, subtasks, completed_at,
	prevent_auto_completion, is_recurring_template, recurring_template_id, recurrence_pattern,
	recurrence_end_date, next_occurrence_date, created_at, deleted_at`

const sessionColumns = `id, user_id, start_time, end_time, status, subject_id, task_id,
	energy_level, generated_by, is_pinned, notes`

func scanTasks(rows *sql.Rows) ([]models.Task, error) {
	var out []models.Task
	for rows.Next() {
		t, err := scanTaskRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row *sql.Row) (models.Task, error) {
	t, err := scanTaskRow(row)
	if err == sql.ErrNoRows {
		return models.Task{}, ErrNotFound{"task"}
	}
	if err != nil {
		return models.Task{}, apperr.Store("scanning task", err)
	}
	return t, nil
}

func scanTaskRow(row rowScanner) (models.Task, error) {
	var t models.Task
	var subjectID, templateID sql.NullString
	var deadline, completedAt, recurrenceEnd, nextOccurrence, deletedAt sql.NullTime
	var subtasksJSON, patternJSON sql.NullString

	err := row.Scan(&t.ID, &t.UserID, &t.Title, &subjectID, &t.EstimatedMinutes, &deadline, &t.Priority,
		&t.Status, &t.IsCompleted, &t.ActualMinutesSpent, &t.TimerMinutesSpent, &subtasksJSON, &completedAt,
		&t.PreventAutoCompletion, &t.IsRecurringTemplate, &templateID, &patternJSON,
		&recurrenceEnd, &nextOccurrence, &t.CreatedAt, &deletedAt)
	if err != nil {
		return models.Task{}, err
	}

	if subjectID.Valid {
		t.SubjectID = &subjectID.String
	}
	if templateID.Valid {
		t.RecurringTemplateID = &templateID.String
	}
	if deadline.Valid {
		v := deadline.Time
		t.Deadline = &v
	}
	if completedAt.Valid {
		v := completedAt.Time
		t.CompletedAt = &v
	}
	if recurrenceEnd.Valid {
		v := recurrenceEnd.Time
		t.RecurrenceEndDate = &v
	}
	if nextOccurrence.Valid {
		v := nextOccurrence.Time
		t.NextOccurrenceDate = &v
	}
	if deletedAt.Valid {
		v := deletedAt.Time
		t.DeletedAt = &v
	}
	if subtasksJSON.Valid && subtasksJSON.String != "" {
		_ = json.Unmarshal([]byte(subtasksJSON.String), &t.Subtasks)
	}
	if patternJSON.Valid && patternJSON.String != "" {
		var p models.Pattern
		if err := json.Unmarshal([]byte(patternJSON.String), &p); err == nil {
			t.RecurrencePattern = &p
		}
	}
	return t, nil
}

func scanSessions(rows *sql.Rows) ([]models.StudySession, error) {
	var out []models.StudySession
	for rows.Next() {
		s, err := scanSessionRow(rows)
		if err != nil {
			return nil, apperr.Store("scanning session", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSessionRow(row rowScanner) (models.StudySession, error) {
	var s models.StudySession
	var subjectID, taskID, notes sql.NullString
	var energy sql.NullString

	err := row.Scan(&s.ID, &s.UserID, &s.StartTime, &s.EndTime, &s.Status, &subjectID, &taskID,
		&energy, &s.GeneratedBy, &s.IsPinned, &notes)
	if err != nil {
		return models.StudySession{}, err
	}
	if subjectID.Valid {
		s.SubjectID = &subjectID.String
	}
	if taskID.Valid {
		s.TaskID = &taskID.String
	}
	if energy.Valid {
		lvl := models.EnergyLevel(energy.String)
		s.EnergyLevel = &lvl
	}
	if notes.Valid {
		s.Notes = notes.String
	}
	return s, nil
}

func scanReflection(row *sql.Row) (models.DailyReflection, error) {
	var r models.DailyReflection
	var worked, challenging sql.NullString
	err := row.Scan(&r.UserID, &r.Date, &worked, &challenging, &r.Summary, &r.CreatedAt)
	if err != nil {
		return models.DailyReflection{}, err
	}
	if worked.Valid {
		r.Worked = &worked.String
	}
	if challenging.Valid {
		r.Challenging = &challenging.String
	}
	return r, nil
}

// --- transaction ---

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Commit() error   { return t.tx.Commit() }
func (t *sqliteTx) Rollback() error { return t.tx.Rollback() }

func (t *sqliteTx) GetUserForUpdate(ctx context.Context, userID string) (models.User, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, timezone, weekly_study_hours, preferred_study_windows, max_session_length_min,
		       break_duration_min, calendar_token, share_token, share_token_expires_at, version
		FROM users WHERE id = ?`, userID)
	return scanUser(row)
}

func (t *sqliteTx) UpdateUserVersioned(ctx context.Context, u models.User) error {
	windowsJSON, err := json.Marshal(u.PreferredStudyWindows)
	if err != nil {
		return apperr.Store("encoding preferred_study_windows", err)
	}
	res, err := t.tx.ExecContext(ctx, `
		UPDATE users SET timezone = ?, weekly_study_hours = ?, preferred_study_windows = ?,
			max_session_length_min = ?, break_duration_min = ?, calendar_token = ?,
			share_token = ?, share_token_expires_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
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

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (t *sqliteTx) ListSessionsInRange(ctx context.Context, userID string, from, to time.Time) ([]models.StudySession, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM study_sessions WHERE user_id = ? AND start_time < ? AND end_time > ?
		ORDER BY start_time`, userID, to, from)
	if err != nil {
		return nil, apperr.Store("listing sessions", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

func (t *sqliteTx) GetSession(ctx context.Context, sessionID string) (models.StudySession, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM study_sessions WHERE id = ?`, sessionID)
	s, err := scanSessionRow(row)
	if err == sql.ErrNoRows {
		return models.StudySession{}, ErrNotFound{"session"}
	}
	if err != nil {
		return models.StudySession{}, apperr.Store("scanning session", err)
	}
	return s, nil
}

func (t *sqliteTx) ListSessionsForTask(ctx context.Context, taskID string) ([]models.StudySession, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+sessionColumns+` FROM study_sessions WHERE task_id = ?`, taskID)
	if err != nil {
		return nil, apperr.Store("listing sessions for task", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

func (t *sqliteTx) ListInProgressSessions(ctx context.Context, userID string) ([]models.StudySession, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM study_sessions WHERE user_id = ? AND status = ?`,
		userID, models.SessionInProgress)
	if err != nil {
		return nil, apperr.Store("listing in-progress sessions", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

func (t *sqliteTx) UpdateSessionStatus(ctx context.Context, sessionID string, status models.SessionStatus) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE study_sessions SET status = ? WHERE id = ?`, status, sessionID)
	if err != nil {
		return apperr.Store("updating session status", err)
	}
	return nil
}

func (t *sqliteTx) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM study_sessions WHERE id = ?`, sessionID)
	if err != nil {
		return apperr.Store("deleting session", err)
	}
	return nil
}

func (t *sqliteTx) InsertSession(ctx context.Context, s models.StudySession) (string, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO study_sessions (id, user_id, start_time, end_time, status, subject_id, task_id,
			energy_level, generated_by, is_pinned, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.StartTime, s.EndTime, s.Status, nullablePtr(s.SubjectID), nullablePtr(s.TaskID),
		nullableEnergy(s.EnergyLevel), s.GeneratedBy, s.IsPinned, nullableString(s.Notes))
	if err != nil {
		return "", apperr.Store("inserting session", err)
	}
	return s.ID, nil
}

func (t *sqliteTx) UpdateSessionTimes(ctx context.Context, s models.StudySession) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE study_sessions SET start_time = ?, end_time = ?, status = ?, is_pinned = ?, notes = ?
		WHERE id = ?`, s.StartTime, s.EndTime, s.Status, s.IsPinned, nullableString(s.Notes), s.ID)
	if err != nil {
		return apperr.Store("updating session times", err)
	}
	return nil
}

func (t *sqliteTx) GetTask(ctx context.Context, userID, taskID string) (models.Task, error) {
	return scanTask(t.tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?`, taskID, userID))
}

func (t *sqliteTx) UpdateTaskProgress(ctx context.Context, task models.Task) error {
	subtasksJSON, err := json.Marshal(task.Subtasks)
	if err != nil {
		return apperr.Store("encoding subtasks", err)
	}
	_, err = t.tx.ExecContext(ctx, `
		UPDATE tasks SET actual_minutes_spent = ?, is_completed = ?, status = ?, completed_at = ?, subtasks = ?
		WHERE id = ?`,
		task.ActualMinutesSpent, task.IsCompleted, task.Status, task.CompletedAt, string(subtasksJSON), task.ID)
	if err != nil {
		return apperr.Store("updating task progress", err)
	}
	return nil
}

func (t *sqliteTx) UpsertRecurringInstance(ctx context.Context, task models.Task) (string, error) {
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(recurring_template_id, deadline) DO NOTHING`,
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

func (t *sqliteTx) ListRecurringTemplates(ctx context.Context, userID string) ([]models.Task, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE user_id = ? AND deleted_at IS NULL AND is_recurring_template = 1`, userID)
	if err != nil {
		return nil, apperr.Store("listing recurring templates", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (t *sqliteTx) ListOverdueTasks(ctx context.Context, userID string, asOf time.Time) ([]models.Task, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE user_id = ? AND deleted_at IS NULL AND is_completed = 0
			AND is_recurring_template = 0 AND deadline IS NOT NULL AND deadline < ?`, userID, asOf)
	if err != nil {
		return nil, apperr.Store("listing overdue tasks", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (t *sqliteTx) ListInstancesForTemplate(ctx context.Context, templateID string) ([]models.Task, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks WHERE recurring_template_id = ? AND deleted_at IS NULL`, templateID)
	if err != nil {
		return nil, apperr.Store("listing instances for template", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (t *sqliteTx) UpdateTaskSchedule(ctx context.Context, taskID string, deadline *time.Time, priority models.Priority) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE tasks SET deadline = ?, priority = ? WHERE id = ?`, deadline, priority, taskID)
	if err != nil {
		return apperr.Store("updating task schedule", err)
	}
	return nil
}

func (t *sqliteTx) SoftDeleteTask(ctx context.Context, taskID string, now time.Time) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE tasks SET deleted_at = ? WHERE id = ?`, now, taskID)
	if err != nil {
		return apperr.Store("soft-deleting task", err)
	}
	return nil
}

func (t *sqliteTx) DetachRecurringInstance(ctx context.Context, taskID string) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE tasks SET recurring_template_id = NULL WHERE id = ?`, taskID)
	if err != nil {
		return apperr.Store("detaching recurring instance", err)
	}
	return nil
}

func (t *sqliteTx) UpdateRecurrenceTemplate(ctx context.Context, taskID string, pattern *models.Pattern, endDate *time.Time) error {
	patternJSON, err := json.Marshal(pattern)
	if err != nil {
		return apperr.Store("encoding recurrence_pattern", err)
	}
	_, err = t.tx.ExecContext(ctx, `
		UPDATE tasks SET recurrence_pattern = ?, recurrence_end_date = ? WHERE id = ?`,
		string(patternJSON), endDate, taskID)
	if err != nil {
		return apperr.Store("updating recurrence template", err)
	}
	return nil
}

func (t *sqliteTx) UpsertReflection(ctx context.Context, r models.DailyReflection) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO daily_reflections (user_id, date, worked, challenging, summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET worked = excluded.worked,
			challenging = excluded.challenging, summary = excluded.summary`,
		r.UserID, r.Date, nullablePtrStr(r.Worked), nullablePtrStr(r.Challenging), r.Summary, r.CreatedAt)
	if err != nil {
		return apperr.Store("upserting reflection", err)
	}
	return nil
}

func nullablePtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullablePtrStr(s *string) sql.NullString { return nullablePtr(s) }

func nullableEnergy(e *models.EnergyLevel) sql.NullString {
	if e == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*e), Valid: true}
}
