package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DefaultRetentionLimit is the number of snapshots kept per account.
const DefaultRetentionLimit = 10

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Database DatabaseConfig    `yaml:"database"`
	Auth     AuthConfig        `yaml:"auth"`
	Backup   BackupConfig      `yaml:"backup"`
	Retry    RetryConfig       `yaml:"retry"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Backup.Validate(); err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// DatabaseConfig holds the database location. A plain path or file: URL opens
// a local SQLite file; a libsql:// or wss:// URL opens a remote libSQL database.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// Validate validates the database configuration.
func (c *DatabaseConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DSN, validation.Required),
	)
}

// AuthConfig holds token signing configuration.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.JWTSecret, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.TokenTTL, validation.Required, validation.Min(time.Minute)),
	)
}

// BackupConfig controls snapshot retention, automatic backups and imports.
type BackupConfig struct {
	RetentionLimit int `yaml:"retention_limit"`
	// AutoInterval is how often automatic snapshots are taken. Zero disables them.
	AutoInterval   time.Duration `yaml:"auto_interval"`
	MaxImportBytes int64         `yaml:"max_import_bytes"`
}

// Validate validates the backup configuration.
func (c *BackupConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RetentionLimit, validation.Required, validation.Min(1)),
		validation.Field(&c.AutoInterval, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxImportBytes, validation.Required, validation.Min(int64(1024))),
	)
}

// RetryConfig bounds the retry wrapper around storage calls.
type RetryConfig struct {
	Attempts     int           `yaml:"attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// Validate validates the retry configuration.
func (c *RetryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Attempts, validation.Required, validation.Min(1), validation.Max(10)),
		validation.Field(&c.InitialDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxDelay, validation.Min(c.InitialDelay)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Database: DatabaseConfig{
			DSN: "stacklume.db",
		},
		Auth: AuthConfig{
			// Default for development only - should be set in production
			JWTSecret: "stacklume-dev-secret-change-in-production",
			TokenTTL:  24 * time.Hour,
		},
		Backup: BackupConfig{
			RetentionLimit: DefaultRetentionLimit,
			MaxImportBytes: 10 << 20,
		},
		Retry: RetryConfig{
			Attempts:     3,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     time.Second,
		},
	}
}

// ApplyEnv overrides configuration values from the environment variables the
// server has always honoured.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("STACKLUME_DB_PATH"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.App.HTTP.Port = port
		}
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("STACKLUME_BACKUP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Backup.AutoInterval = d
		}
	}
}
