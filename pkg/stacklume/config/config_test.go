package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	t.Setenv("TEST_STACKLUME_SECRET", "a-very-long-secret-value")
	path := writeConfig(t, `
app:
  log_level: debug
  http:
    port: 9090
database:
  dsn: /tmp/test.db
auth:
  jwt_secret: ${TEST_STACKLUME_SECRET}
  token_ttl: 2h
backup:
  retention_limit: 5
  auto_interval: 30m
  max_import_bytes: 2048
`)

	cfg := NewDefaultConfig()
	if err := Load(path, cfg); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.App.LogLevel != slog.LevelDebug {
		t.Errorf("log level = %v, want debug", cfg.App.LogLevel)
	}
	if cfg.App.HTTP.Address() != ":9090" {
		t.Errorf("address = %q, want :9090", cfg.App.HTTP.Address())
	}
	if cfg.Auth.JWTSecret != "a-very-long-secret-value" {
		t.Errorf("jwt secret not expanded from env: %q", cfg.Auth.JWTSecret)
	}
	if cfg.Auth.TokenTTL != 2*time.Hour {
		t.Errorf("token ttl = %v, want 2h", cfg.Auth.TokenTTL)
	}
	if cfg.Backup.RetentionLimit != 5 || cfg.Backup.AutoInterval != 30*time.Minute {
		t.Errorf("backup = %+v", cfg.Backup)
	}
	if cfg.Retry.Attempts != 3 {
		t.Errorf("retry attempts should keep default, got %d", cfg.Retry.Attempts)
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	path := writeConfig(t, `
backup:
  retention_limit: 0
`)
	cfg := NewDefaultConfig()
	if err := Load(path, cfg); err == nil {
		t.Fatal("retention limit of zero should fail validation")
	}
}

func TestLoadOptional_MissingFile(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), cfg); err != nil {
		t.Fatalf("missing file should keep defaults: %v", err)
	}
	if cfg.Database.DSN != "stacklume.db" {
		t.Errorf("dsn = %q, want default", cfg.Database.DSN)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("STACKLUME_DB_PATH", "libsql://example.turso.io")
	t.Setenv("PORT", "3000")
	t.Setenv("JWT_SECRET", "env-secret-0123456789")
	t.Setenv("STACKLUME_BACKUP_INTERVAL", "6h")

	cfg := NewDefaultConfig()
	cfg.ApplyEnv()

	if cfg.Database.DSN != "libsql://example.turso.io" {
		t.Errorf("dsn = %q", cfg.Database.DSN)
	}
	if cfg.App.HTTP.Port != 3000 {
		t.Errorf("port = %d", cfg.App.HTTP.Port)
	}
	if cfg.Auth.JWTSecret != "env-secret-0123456789" {
		t.Errorf("jwt secret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.Backup.AutoInterval != 6*time.Hour {
		t.Errorf("auto interval = %v", cfg.Backup.AutoInterval)
	}
}

func TestRetryConfig_MaxBelowInitial(t *testing.T) {
	cfg := RetryConfig{Attempts: 3, InitialDelay: time.Second, MaxDelay: time.Millisecond}
	if err := cfg.Validate(); err == nil {
		t.Fatal("max delay below initial delay should fail")
	}
}
