// Package backup periodically snapshots the SQLite database file,
// adapted from the teacher's internal/backup.Manager (VACUUM-INTO
// snapshotting with a WAL-checkpoint-then-copy fallback, filename
// timestamping with collision suffixes, retention rotation). Postgres
// deployments are expected to rely on the operator's own database
// backup tooling; this manager only targets the embedded SQLite
// backend, same as the teacher's.
package backup

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	// MaxBackups is the maximum number of rotated snapshots to keep.
	MaxBackups = 14

	backupFilePrefix = "studycompanion-"
	backupFileSuffix = ".db"
)

// Info describes one stored snapshot.
type Info struct {
	Path      string
	Timestamp time.Time
	Size      int64
}

// Manager snapshots dbPath into backupDir.
type Manager struct {
	dbPath    string
	backupDir string
}

// NewManager builds a Manager that stores snapshots in a "backups"
// subdirectory alongside dbPath.
func NewManager(dbPath string) *Manager {
	return &Manager{
		dbPath:    dbPath,
		backupDir: filepath.Join(filepath.Dir(dbPath), "backups"),
	}
}

// BackupDir returns the directory snapshots are written to.
func (m *Manager) BackupDir() string {
	return m.backupDir
}

// Create snapshots the database and rotates old snapshots beyond MaxBackups.
func (m *Manager) Create() (string, error) {
	return m.create(false)
}

func (m *Manager) create(skipRotate bool) (string, error) {
	if err := os.MkdirAll(m.backupDir, 0700); err != nil {
		return "", fmt.Errorf("backup: create backup dir: %w", err)
	}
	if _, err := os.Stat(m.dbPath); os.IsNotExist(err) {
		return "", fmt.Errorf("backup: database does not exist: %s", m.dbPath)
	}

	path, err := m.uniqueSnapshotPath(time.Now())
	if err != nil {
		return "", err
	}

	if err := m.snapshotInto(path); err != nil {
		return "", fmt.Errorf("backup: snapshot failed: %w", err)
	}

	if !skipRotate {
		if err := m.rotate(); err != nil {
			return path, fmt.Errorf("backup: snapshot succeeded but rotation failed: %w", err)
		}
	}
	return path, nil
}

func (m *Manager) uniqueSnapshotPath(now time.Time) (string, error) {
	name := backupFilePrefix + now.Format("20060102-1504") + backupFileSuffix
	path := filepath.Join(m.backupDir, name)
	if _, err := os.Stat(path); err != nil {
		return path, nil
	}

	name = backupFilePrefix + now.Format("20060102-150405") + backupFileSuffix
	path = filepath.Join(m.backupDir, name)
	for counter := 1; counter <= 100; counter++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, nil
		}
		name = fmt.Sprintf("%s%s-%d%s", backupFilePrefix, now.Format("20060102-150405"), counter, backupFileSuffix)
		path = filepath.Join(m.backupDir, name)
	}
	return "", fmt.Errorf("backup: could not find a free snapshot filename after 100 attempts")
}

// snapshotInto uses SQLite's VACUUM INTO to produce a consistent
// point-in-time copy, falling back to a WAL checkpoint plus plain
// file copy if the driver's SQLite build rejects VACUUM INTO.
func (m *Manager) snapshotInto(destPath string) error {
	dsn := m.dbPath
	if strings.Contains(dsn, "?") {
		dsn += "&mode=ro"
	} else {
		dsn += "?mode=ro"
	}
	srcDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open source database: %w", err)
	}
	defer srcDB.Close()

	var count int
	if err := srcDB.QueryRow("SELECT COUNT(*) FROM sqlite_master").Scan(&count); err != nil {
		return fmt.Errorf("source database appears unreadable: %w", err)
	}

	_, vacuumErr := srcDB.Exec("VACUUM INTO ?", destPath)
	if vacuumErr == nil {
		return nil
	}

	srcDB.Close()
	if chk, err := sql.Open("sqlite", m.dbPath); err == nil {
		_, _ = chk.Exec("PRAGMA wal_checkpoint(FULL)")
		chk.Close()
	}
	return copyFile(m.dbPath, destPath)
}

// List returns stored snapshots, newest first.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.backupDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("backup: read backup dir: %w", err)
	}

	var infos []Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), backupFilePrefix) || !strings.HasSuffix(entry.Name(), backupFileSuffix) {
			continue
		}
		ts, ok := parseSnapshotTimestamp(entry.Name())
		if !ok {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		infos = append(infos, Info{Path: filepath.Join(m.backupDir, entry.Name()), Timestamp: ts, Size: fi.Size()})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Timestamp.After(infos[j].Timestamp) })
	return infos, nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func parseSnapshotTimestamp(name string) (time.Time, bool) {
	stem := strings.TrimSuffix(strings.TrimPrefix(name, backupFilePrefix), backupFileSuffix)
	parts := strings.Split(stem, "-")
	if len(parts) > 2 && isAllDigits(parts[len(parts)-1]) {
		stem = strings.Join(parts[:len(parts)-1], "-")
	}
	if t, err := time.Parse("20060102-1504", stem); err == nil {
		return t, true
	}
	if t, err := time.Parse("20060102-150405", stem); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func (m *Manager) rotate() error {
	backups, err := m.List()
	if err != nil {
		return err
	}
	for i := MaxBackups; i < len(backups); i++ {
		if err := os.Remove(backups[i].Path); err != nil {
			return fmt.Errorf("remove old snapshot %s: %w", backups[i].Path, err)
		}
	}
	return nil
}

// Restore replaces the live database with a stored snapshot, first
// taking a pre-restore snapshot of the current database (unrotated,
// to avoid evicting the very thing being replaced).
func (m *Manager) Restore(backupPath string) error {
	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		return fmt.Errorf("backup: snapshot does not exist: %s", backupPath)
	}
	if err := m.verify(backupPath); err != nil {
		return fmt.Errorf("backup: snapshot is not a valid database: %w", err)
	}

	if _, err := os.Stat(m.dbPath); err == nil {
		if _, err := m.create(true); err != nil {
			return fmt.Errorf("backup: failed to snapshot current database before restore: %w", err)
		}
	}

	tempPath := m.dbPath + ".restore.tmp"
	if err := copyFile(backupPath, tempPath); err != nil {
		return fmt.Errorf("backup: copy snapshot: %w", err)
	}

	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(m.dbPath + suffix)
	}

	if err := os.Rename(tempPath, m.dbPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("backup: restore rename: %w", err)
	}
	return nil
}

func (m *Manager) verify(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	var count int
	return db.QueryRow("SELECT COUNT(*) FROM sqlite_master").Scan(&count)
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	info, err := srcFile.Stat()
	if err != nil {
		return err
	}

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return err
	}
	if err := dstFile.Sync(); err != nil {
		return err
	}
	return os.Chmod(dst, info.Mode())
}
