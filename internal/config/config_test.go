package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{})
	cfg, err := Load("queryloom-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Auth.Required {
		t.Fatal("Auth.Required should default to false in dev")
	}
	if cfg.Store.Driver != "sqlite" {
		t.Fatalf("Store.Driver = %q", cfg.Store.Driver)
	}
	if cfg.Store.MaxOpenConns != 10 {
		t.Fatalf("Store.MaxOpenConns = %d", cfg.Store.MaxOpenConns)
	}
	if cfg.Sampling.SampleLimit != 50 {
		t.Fatalf("Sampling.SampleLimit = %d", cfg.Sampling.SampleLimit)
	}
	if cfg.Sampling.PreviewRows != 10 {
		t.Fatalf("Sampling.PreviewRows = %d", cfg.Sampling.PreviewRows)
	}
	if cfg.AI.TranslateEnabled {
		t.Fatal("AI.TranslateEnabled should default to false")
	}
	if cfg.AI.Model != "gpt-5" {
		t.Fatalf("AI.Model = %q", cfg.AI.Model)
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	lookup := mapLookup(map[string]string{"QUERYLOOM_PROFILE": "prod"})
	cfg, err := Load("queryloom-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileProd {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileProd)
	}
	if !cfg.Auth.Required {
		t.Fatal("Auth.Required should default to true in prod")
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"QUERYLOOM_PROFILE":              "test",
		"QUERYLOOM_HTTP_ADDR":            ":9999",
		"QUERYLOOM_HTTP_READ_TIMEOUT":    "11s",
		"QUERYLOOM_STORE_DRIVER":         "postgres",
		"QUERYLOOM_STORE_DSN":            "postgres://localhost:5432/app",
		"QUERYLOOM_SAMPLE_LIMIT":         "25",
		"QUERYLOOM_AI_TRANSLATE_ENABLED": "true",
		"QUERYLOOM_AI_TEMPERATURE":       "0.4",
		"QUERYLOOM_LOG_LEVEL":            "error",
		"QUERYLOOM_AUTH_REQUIRED":        "true",
		"QUERYLOOM_AUTH_STATIC_KEYS":     "k1:alice:query_reader",
	})
	cfg, err := Load("queryloom-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTP.Address != ":9999" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.HTTP.ReadTimeout != 11*time.Second {
		t.Fatalf("HTTP.ReadTimeout = %v", cfg.HTTP.ReadTimeout)
	}
	if cfg.Store.Driver != "postgres" {
		t.Fatalf("Store.Driver = %q", cfg.Store.Driver)
	}
	if cfg.Store.DSN != "postgres://localhost:5432/app" {
		t.Fatalf("Store.DSN = %q", cfg.Store.DSN)
	}
	if cfg.Sampling.SampleLimit != 25 {
		t.Fatalf("Sampling.SampleLimit = %d", cfg.Sampling.SampleLimit)
	}
	if !cfg.AI.TranslateEnabled {
		t.Fatal("AI.TranslateEnabled should be true")
	}
	if cfg.AI.Temperature != 0.4 {
		t.Fatalf("AI.Temperature = %v", cfg.AI.Temperature)
	}
	if cfg.Observability.LogLevel != slog.LevelError {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Auth.StaticKeys != "k1:alice:query_reader" {
		t.Fatalf("Auth.StaticKeys = %q", cfg.Auth.StaticKeys)
	}
}

func TestLoadRejectsInvalidProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{"QUERYLOOM_PROFILE": "staging"})
	if _, err := Load("queryloom-api", lookup); err == nil {
		t.Fatal("expected error for invalid profile")
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	lookup := mapLookup(map[string]string{"QUERYLOOM_HTTP_READ_TIMEOUT": "not-a-duration"})
	if _, err := Load("queryloom-api", lookup); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	lookup := mapLookup(map[string]string{"QUERYLOOM_LOG_LEVEL": "verbose"})
	if _, err := Load("queryloom-api", lookup); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestLoadAppliesYAMLFileBeforeEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queryloom.yaml")
	contents := `
http:
  address: ":7070"
store:
  driver: mysql
  dsn: "app:app@tcp(localhost:3306)/app"
sampling:
  sample_limit: 5
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	lookup := mapLookup(map[string]string{
		"QUERYLOOM_CONFIG_FILE": path,
		"QUERYLOOM_HTTP_ADDR":   ":6060",
	})
	cfg, err := Load("queryloom-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Driver != "mysql" {
		t.Fatalf("Store.Driver = %q, want file value", cfg.Store.Driver)
	}
	if cfg.Sampling.SampleLimit != 5 {
		t.Fatalf("Sampling.SampleLimit = %d, want file value", cfg.Sampling.SampleLimit)
	}
	if cfg.HTTP.Address != ":6060" {
		t.Fatalf("HTTP.Address = %q, env should win over file", cfg.HTTP.Address)
	}
}

func TestLoadRejectsMissingConfigFile(t *testing.T) {
	lookup := mapLookup(map[string]string{"QUERYLOOM_CONFIG_FILE": "/nonexistent/queryloom.yaml"})
	if _, err := Load("queryloom-api", lookup); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
