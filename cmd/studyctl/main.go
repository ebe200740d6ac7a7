// Command studyctl is the operator CLI for the Smart Study Companion
// service: migrations, health checks, and backup/restore, grounded on
// the teacher's cmd/daylit kong.CLI struct (one field per subcommand,
// an AfterApply hook that opens storage before any command runs).
package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/smartstudy/companion/internal/backup"
	"github.com/smartstudy/companion/internal/config"
	"github.com/smartstudy/companion/internal/logger"
	"github.com/smartstudy/companion/internal/migration"
	"github.com/smartstudy/companion/internal/persistence"
	"github.com/smartstudy/companion/internal/secrets"
	"github.com/smartstudy/companion/internal/storage"
	"github.com/smartstudy/companion/migrations"
)

// appContext carries the resolved config and opened store into every
// subcommand's Run, mirroring the teacher's cli.Context.
type appContext struct {
	cfg   config.Config
	store storage.Provider
}

type cli struct {
	Migrate  MigrateCmd  `cmd:"" help:"Apply pending database migrations."`
	Doctor   DoctorCmd   `cmd:"" help:"Run health checks against the configured database."`
	Calendar struct {
		Rotate CalendarTokenRotateCmd `cmd:"" help:"Issue a fresh calendar feed token for a user."`
		Clear  CalendarTokenClearCmd  `cmd:"" help:"Revoke a user's calendar feed token."`
	} `cmd:"" help:"Manage calendar feed tokens."`
	Backup struct {
		Create  BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    BackupListCmd    `cmd:"" help:"List available backups."`
		Restore BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage sqlite backups."`
	Secrets struct {
		Push SecretsPushCmd `cmd:"" help:"Store the DB DSN and JWT secret in the OS keyring."`
		Pull SecretsPullCmd `cmd:"" help:"Show whether secrets are present in the OS keyring."`
		Drop SecretsDropCmd `cmd:"" help:"Remove secrets from the OS keyring."`
	} `cmd:"" help:"Manage OS-keyring-stored secrets."`
}

func (c *cli) AfterApply(kctx *kong.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Init(logger.Config{Level: cfg.LogLevel}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	cmdPath := kctx.Command()
	if strings.HasPrefix(cmdPath, "secrets") {
		return nil
	}

	var store storage.Provider
	if cfg.DBDriver == "postgres" {
		store, err = storage.OpenPostgres(cfg.DBDSN)
	} else {
		store, err = storage.OpenSQLite(cfg.DBDSN)
	}
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	kctx.Bind(&appContext{cfg: cfg, store: store})
	return nil
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("studyctl"),
		kong.Description("Smart Study Companion operator CLI"),
		kong.UsageOnError(),
	)
	err := kctx.Run()
	kctx.FatalIfErrorf(err)
}

// MigrateCmd applies pending migrations for the configured backend.
type MigrateCmd struct{}

func (cmd *MigrateCmd) Run(actx *appContext) error {
	defer actx.store.Close()

	raw, err := rawDB(actx)
	if err != nil {
		return err
	}

	sub, err := fs.Sub(migrations.FS, actx.cfg.DBDriver)
	if err != nil {
		return fmt.Errorf("locating %s migrations: %w", actx.cfg.DBDriver, err)
	}
	runner := migration.NewRunner(raw, sub, actx.cfg.DBDriver)
	count, err := runner.ApplyMigrations(func(msg string) { fmt.Println(msg) })
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if count == 0 {
		fmt.Println("No migrations to apply. Database is up to date.")
	} else {
		fmt.Printf("Successfully applied %d migration(s).\n", count)
	}
	return nil
}

// DoctorCmd runs a small set of reachability/schema health checks.
type DoctorCmd struct{}

func (cmd *DoctorCmd) Run(actx *appContext) error {
	defer actx.store.Close()
	fmt.Println("Running diagnostics...")

	hasError := false
	raw, err := rawDB(actx)
	if err != nil {
		fmt.Printf("X Database reachable: FAIL\n   %v\n", err)
		return fmt.Errorf("one or more health checks failed")
	}
	var probe int
	if err := raw.QueryRow("SELECT 1").Scan(&probe); err != nil {
		fmt.Printf("X Database reachable: FAIL\n   %v\n", err)
		hasError = true
	} else {
		fmt.Println("OK Database reachable")
	}

	sub, err := fs.Sub(migrations.FS, actx.cfg.DBDriver)
	if err != nil {
		return err
	}
	runner := migration.NewRunner(raw, sub, actx.cfg.DBDriver)
	current, err := runner.GetCurrentVersion()
	if err != nil {
		fmt.Printf("X Schema version: FAIL\n   %v\n", err)
		hasError = true
	} else if latest, err := runner.GetLatestVersion(); err != nil {
		fmt.Printf("X Schema version: FAIL\n   %v\n", err)
		hasError = true
	} else if current < latest {
		fmt.Printf("X Migrations complete: FAIL\n   current %d, latest %d\n", current, latest)
		hasError = true
	} else {
		fmt.Println("OK Migrations up to date")
	}

	if actx.cfg.DBDriver == "sqlite" {
		mgr := backup.NewManager(actx.cfg.DBDSN)
		if list, err := mgr.List(); err != nil || len(list) == 0 {
			fmt.Println("! Backups present: WARNING (no backups found, consider 'studyctl backup create')")
		} else {
			fmt.Println("OK Backups present")
		}
	}

	now := time.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		fmt.Printf("X Clock/timezone: FAIL\n   system time looks wrong: %s\n", now.Format(time.RFC3339))
		hasError = true
	} else {
		fmt.Println("OK Clock/timezone")
	}

	if hasError {
		return fmt.Errorf("one or more health checks failed")
	}
	fmt.Println("All diagnostics passed!")
	return nil
}

// rawDB extracts the *sql.DB the migration runner and doctor checks
// operate on directly, the same type-switch-on-concrete-store idiom
// the teacher's doctor.go uses to reach past the Provider interface.
func rawDB(actx *appContext) (*sql.DB, error) {
	switch s := actx.store.(type) {
	case *storage.SQLiteStore:
		return s.DB(), nil
	case *storage.PostgresStore:
		return s.DB(), nil
	default:
		return nil, fmt.Errorf("unsupported store type %T", actx.store)
	}
}

// CalendarTokenRotateCmd issues a fresh calendar feed token for a user.
type CalendarTokenRotateCmd struct {
	UserID string `arg:"" help:"User ID to rotate the calendar token for."`
}

func (cmd *CalendarTokenRotateCmd) Run(actx *appContext) error {
	defer actx.store.Close()
	p := persistence.New(actx.store)
	token, err := p.RotateCalendarToken(context.Background(), cmd.UserID)
	if err != nil {
		return fmt.Errorf("rotating calendar token: %w", err)
	}
	fmt.Printf("New calendar token for %s: %s\n", cmd.UserID, token)
	return nil
}

// CalendarTokenClearCmd revokes a user's calendar feed token.
type CalendarTokenClearCmd struct {
	UserID string `arg:"" help:"User ID to clear the calendar token for."`
}

func (cmd *CalendarTokenClearCmd) Run(actx *appContext) error {
	defer actx.store.Close()
	p := persistence.New(actx.store)
	if err := p.ClearCalendarToken(context.Background(), cmd.UserID); err != nil {
		return fmt.Errorf("clearing calendar token: %w", err)
	}
	fmt.Printf("Calendar token cleared for %s\n", cmd.UserID)
	return nil
}

// BackupCreateCmd snapshots the sqlite database on demand.
type BackupCreateCmd struct{}

func (cmd *BackupCreateCmd) Run(actx *appContext) error {
	defer actx.store.Close()
	if actx.cfg.DBDriver != "sqlite" {
		return fmt.Errorf("backup command only supports sqlite")
	}
	mgr := backup.NewManager(actx.cfg.DBDSN)
	path, err := mgr.Create()
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	fmt.Printf("Backup created: %s\n", filepath.Base(path))
	return nil
}

// BackupListCmd lists snapshots already on disk.
type BackupListCmd struct{}

func (cmd *BackupListCmd) Run(actx *appContext) error {
	defer actx.store.Close()
	mgr := backup.NewManager(actx.cfg.DBDSN)
	list, err := mgr.List()
	if err != nil {
		return fmt.Errorf("listing backups: %w", err)
	}
	if len(list) == 0 {
		fmt.Printf("No backups found. Backups are stored in: %s\n", mgr.BackupDir())
		return nil
	}
	fmt.Printf("Available backups (%d total, keeping most recent %d):\n\n", len(list), backup.MaxBackups)
	for _, b := range list {
		fmt.Printf("  %s  %s  (%.1f KB)\n", b.Timestamp.Format("2006-01-02 15:04:05"), filepath.Base(b.Path), float64(b.Size)/1024.0)
	}
	return nil
}

// BackupRestoreCmd restores the database from a named snapshot.
type BackupRestoreCmd struct {
	BackupFile string `arg:"" help:"Path or filename of the backup to restore."`
}

func (cmd *BackupRestoreCmd) Run(actx *appContext) error {
	mgr := backup.NewManager(actx.cfg.DBDSN)

	backupPath := cmd.BackupFile
	if !filepath.IsAbs(backupPath) {
		if _, err := os.Stat(backupPath); err != nil {
			candidate := filepath.Join(mgr.BackupDir(), cmd.BackupFile)
			if _, err := os.Stat(candidate); err != nil {
				return fmt.Errorf("backup file not found: tried current directory and %s", mgr.BackupDir())
			}
			backupPath = candidate
		}
	}

	fmt.Println("WARNING: this will replace the current database with the backup.")
	fmt.Println("All studyserver/studyctl processes must be stopped before restoring.")
	fmt.Printf("Restore from: %s\nContinue? [y/N]: ", backupPath)

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	if response = strings.TrimSpace(strings.ToLower(response)); response != "y" && response != "yes" {
		fmt.Println("Restore cancelled.")
		return nil
	}

	if err := actx.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database connection: %v\n", err)
	}
	if err := mgr.Restore(backupPath); err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	fmt.Println("Database restored successfully.")
	return nil
}

// SecretsPushCmd stores the current env-resolved DSN/JWT secret in the
// OS keyring, so future runs can omit the env vars entirely.
type SecretsPushCmd struct {
	DSN       string `help:"Database DSN to store. Defaults to STUDY_DB_DSN." optional:""`
	JWTSecret string `help:"JWT signing secret to store. Defaults to STUDY_JWT_SECRET." optional:""`
}

func (cmd *SecretsPushCmd) Run() error {
	dsn := cmd.DSN
	if dsn == "" {
		dsn = os.Getenv("STUDY_DB_DSN")
	}
	jwtSecret := cmd.JWTSecret
	if jwtSecret == "" {
		jwtSecret = os.Getenv("STUDY_JWT_SECRET")
	}
	if dsn == "" && jwtSecret == "" {
		return errors.New("nothing to store: pass --dsn/--jwt-secret or set STUDY_DB_DSN/STUDY_JWT_SECRET")
	}
	if dsn != "" {
		if err := secrets.Set(secrets.KeyDatabaseDSN, dsn); err != nil {
			return err
		}
		fmt.Println("Stored database DSN in OS keyring.")
	}
	if jwtSecret != "" {
		if err := secrets.Set(secrets.KeyJWTSigning, jwtSecret); err != nil {
			return err
		}
		fmt.Println("Stored JWT signing secret in OS keyring.")
	}
	return nil
}

// SecretsPullCmd reports whether secrets are present, without ever
// printing their values.
type SecretsPullCmd struct{}

func (cmd *SecretsPullCmd) Run() error {
	if !secrets.IsAvailable() {
		return errors.New("OS keyring is not available on this system")
	}
	if _, err := secrets.Get(secrets.KeyDatabaseDSN); err == nil {
		fmt.Println("Database DSN: present")
	} else {
		fmt.Println("Database DSN: not set")
	}
	if _, err := secrets.Get(secrets.KeyJWTSigning); err == nil {
		fmt.Println("JWT signing secret: present")
	} else {
		fmt.Println("JWT signing secret: not set")
	}
	return nil
}

// SecretsDropCmd removes both secrets from the OS keyring.
type SecretsDropCmd struct{}

func (cmd *SecretsDropCmd) Run() error {
	var errs []string
	if err := secrets.Delete(secrets.KeyDatabaseDSN); err != nil && !errors.Is(err, secrets.ErrNotFound) {
		errs = append(errs, err.Error())
	}
	if err := secrets.Delete(secrets.KeyJWTSigning); err != nil && !errors.Is(err, secrets.ErrNotFound) {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to drop some secrets: %s", strings.Join(errs, "; "))
	}
	fmt.Println("Secrets removed from OS keyring.")
	return nil
}
