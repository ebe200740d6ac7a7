// Command studyserver runs the Smart Study Companion scheduling core
// as an HTTP daemon. Wiring order — logger, then storage, then
// migrations, then the HTTP router — follows the teacher's
// cmd/daylit/main.go AfterApply sequence (logger first so every
// subsequent failure is logged, storage opened before anything else
// touches it).
package main

import (
	"database/sql"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/smartstudy/companion/internal/backup"
	"github.com/smartstudy/companion/internal/coach"
	"github.com/smartstudy/companion/internal/config"
	"github.com/smartstudy/companion/internal/httpapi"
	"github.com/smartstudy/companion/internal/logger"
	"github.com/smartstudy/companion/internal/migration"
	"github.com/smartstudy/companion/internal/persistence"
	"github.com/smartstudy/companion/internal/procguard"
	"github.com/smartstudy/companion/internal/storage"
	"github.com/smartstudy/companion/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "studyserver: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{Level: cfg.LogLevel, LogDir: cfg.LogDir}); err != nil {
		fmt.Fprintf(os.Stderr, "studyserver: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if cfg.DBDriver == "sqlite" {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			logger.Fatal("failed to create data directory", "dir", cfg.DataDir, "error", err)
		}
		lockPath := filepath.Join(cfg.DataDir, "studyserver.lock")
		guard, err := procguard.Acquire(lockPath)
		if err != nil {
			logger.Fatal("startup aborted", "error", err)
		}
		defer guard.Release()
	}

	store, rawDB, err := openStore(cfg)
	if err != nil {
		logger.Fatal("failed to open storage", "driver", cfg.DBDriver, "error", err)
	}
	defer store.Close()

	if err := runMigrations(rawDB, cfg.DBDriver); err != nil {
		logger.Fatal("failed to apply migrations", "error", err)
	}

	if cfg.DBDriver == "sqlite" {
		startBackupLoop(cfg.DBDSN)
	}

	persist := persistence.New(store)
	coachAdapter := buildCoachAdapter(cfg)

	server := httpapi.New(store, persist, coachAdapter, cfg.JWTSecret, cfg.CORSOrigins, cfg.CalendarDomain)

	logger.Info("starting studyserver", "addr", cfg.HTTPAddr, "db_driver", cfg.DBDriver)
	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server stopped", "error", err)
	}
}

// openStore opens the configured backend and returns both the
// Provider the HTTP layer uses and the raw *sql.DB the migration
// runner operates on directly.
func openStore(cfg config.Config) (storage.Provider, *sql.DB, error) {
	switch cfg.DBDriver {
	case "postgres":
		s, err := storage.OpenPostgres(cfg.DBDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.DB(), nil
	default:
		s, err := storage.OpenSQLite(cfg.DBDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.DB(), nil
	}
}

func runMigrations(db *sql.DB, driver string) error {
	sub, err := fs.Sub(migrations.FS, driver)
	if err != nil {
		return fmt.Errorf("locating %s migrations: %w", driver, err)
	}
	runner := migration.NewRunner(db, sub, driver)
	applied, err := runner.ApplyMigrations(func(msg string) { logger.Info(msg) })
	if err != nil {
		return err
	}
	if applied > 0 {
		logger.Info("applied migrations", "count", applied)
	}
	return nil
}

// startBackupLoop snapshots the sqlite file on a fixed interval for
// the lifetime of the process, mirroring the teacher's scheduled
// backup behavior but without its CLI-triggered manual path.
func startBackupLoop(dbPath string) {
	mgr := backup.NewManager(dbPath)
	go func() {
		ticker := time.NewTicker(6 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if path, err := mgr.Create(); err != nil {
				logger.Error("scheduled backup failed", "error", err)
			} else {
				logger.Info("scheduled backup created", "path", path)
			}
		}
	}()
}

func buildCoachAdapter(cfg config.Config) coach.Adapter {
	if cfg.CoachProvider != "openai" {
		return coach.NoopAdapter{}
	}
	return coach.NewOpenAIAdapter(cfg.OpenAIAPIKey, "")
}
