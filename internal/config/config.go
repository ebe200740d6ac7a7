// Package config loads the service's environment-variable driven
// configuration. Grounded on the teacher's CLI flag/env precedence
// (DAYLIT_CONFIG falling back to the OS keyring in cmd/daylit/main.go)
// generalized from a single DB connection string to the full set of
// settings an HTTP daemon needs.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/smartstudy/companion/internal/secrets"
)

// Config is the fully resolved server configuration.
type Config struct {
	DBDriver       string // "sqlite" or "postgres"
	DBDSN          string
	JWTSecret      string
	LogLevel       string
	LogDir         string
	HTTPAddr       string
	CoachProvider  string // "" or "openai"
	OpenAIAPIKey   string
	CORSOrigins    []string
	CalendarDomain string
	DataDir        string // holds the procguard lockfile and sqlite backups
}

const (
	envDBDriver       = "STUDY_DB_DRIVER"
	envDBDSN          = "STUDY_DB_DSN"
	envJWTSecret      = "STUDY_JWT_SECRET"
	envLogLevel       = "STUDY_LOG_LEVEL"
	envLogDir         = "STUDY_LOG_DIR"
	envHTTPAddr       = "STUDY_HTTP_ADDR"
	envCoachProvider  = "STUDY_COACH_PROVIDER"
	envOpenAIAPIKey   = "STUDY_OPENAI_API_KEY"
	envCORSOrigins    = "STUDY_CORS_ORIGINS"
	envCalendarDomain = "STUDY_CALENDAR_DOMAIN"
	envDataDir        = "STUDY_DATA_DIR"
)

// Load resolves configuration from the environment, falling back to
// the OS keyring for the DSN and JWT secret when their env vars are
// unset — mirroring the teacher's DAYLIT_CONFIG-then-keyring fallback.
func Load() (Config, error) {
	cfg := Config{
		DBDriver:       getenv(envDBDriver, "sqlite"),
		DBDSN:          os.Getenv(envDBDSN),
		JWTSecret:      os.Getenv(envJWTSecret),
		LogLevel:       getenv(envLogLevel, "info"),
		LogDir:         os.Getenv(envLogDir),
		HTTPAddr:       getenv(envHTTPAddr, ":8080"),
		CoachProvider:  os.Getenv(envCoachProvider),
		OpenAIAPIKey:   os.Getenv(envOpenAIAPIKey),
		CalendarDomain: getenv(envCalendarDomain, "studycompanion.app"),
		DataDir:        getenv(envDataDir, "."),
	}

	if origins := os.Getenv(envCORSOrigins); origins != "" {
		cfg.CORSOrigins = strings.Split(origins, ",")
	} else {
		cfg.CORSOrigins = []string{"*"}
	}

	if cfg.DBDSN == "" {
		if dsn, err := secrets.Get(secrets.KeyDatabaseDSN); err == nil {
			cfg.DBDSN = dsn
		}
	}
	if cfg.JWTSecret == "" {
		if key, err := secrets.Get(secrets.KeyJWTSigning); err == nil {
			cfg.JWTSecret = key
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.DBDriver != "sqlite" && c.DBDriver != "postgres" {
		return fmt.Errorf("config: unknown %s %q, want sqlite or postgres", envDBDriver, c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("config: %s is required (env or keyring)", envDBDSN)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("config: %s is required (env or keyring)", envJWTSecret)
	}
	if c.CoachProvider == "openai" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("config: %s=openai requires %s", envCoachProvider, envOpenAIAPIKey)
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
