package config

import "testing"

func TestConfig_Validate_RejectsUnknownDriver(t *testing.T) {
	cfg := Config{DBDriver: "mysql", DBDSN: "x", JWTSecret: "y"}
	if err := cfg.validate(); err == nil {
		t.Fatal("expected an error for an unknown driver")
	}
}

func TestConfig_Validate_RequiresDSNAndSecret(t *testing.T) {
	cfg := Config{DBDriver: "sqlite"}
	if err := cfg.validate(); err == nil {
		t.Fatal("expected an error for a missing DSN")
	}
	cfg.DBDSN = "file::memory:"
	if err := cfg.validate(); err == nil {
		t.Fatal("expected an error for a missing JWT secret")
	}
	cfg.JWTSecret = "secret"
	if err := cfg.validate(); err != nil {
		t.Fatalf("expected a valid config, got %v", err)
	}
}

func TestConfig_Validate_CoachProviderRequiresAPIKey(t *testing.T) {
	cfg := Config{DBDriver: "sqlite", DBDSN: "x", JWTSecret: "y", CoachProvider: "openai"}
	if err := cfg.validate(); err == nil {
		t.Fatal("expected an error for openai provider without an API key")
	}
	cfg.OpenAIAPIKey = "sk-test"
	if err := cfg.validate(); err != nil {
		t.Fatalf("expected a valid config, got %v", err)
	}
}
