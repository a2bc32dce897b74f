// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gurkanbulca/teamportal/internal/database"
	"github.com/gurkanbulca/teamportal/pkg/email"
	"github.com/gurkanbulca/teamportal/pkg/recurrence"
	"github.com/gurkanbulca/teamportal/pkg/scoring"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Email     EmailConfig
	Lifecycle LifecycleConfig
}

type ServerConfig struct {
	GRPCPort         string
	HTTPPort         string
	Environment      string
	EnableReflection bool
	ShutdownTimeout  time.Duration
}

type DatabaseConfig struct {
	// Driver is one of postgres, pgx, sqlite3, sqlite or memory.
	Driver      string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	Path        string
	AutoMigrate bool
	Debug       bool
}

type JWTConfig struct {
	Secret        string
	Issuer        string
	TokenDuration time.Duration
}

type EmailConfig struct {
	Enabled      bool
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
	BaseURL      string
	AppName      string
	SupportEmail string
}

type LifecycleConfig struct {
	GraceWindow    time.Duration
	EndInclusive   bool
	MaxOccurrences int
	NotifyTimeout  time.Duration
}

// DriverMemory keeps all documents in process memory.
const DriverMemory = "memory"

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			GRPCPort:         getEnv("GRPC_PORT", "50051"),
			HTTPPort:         getEnv("HTTP_PORT", "8080"),
			Environment:      getEnv("ENVIRONMENT", "development"),
			EnableReflection: getEnvAsBool("GRPC_REFLECTION", true),
			ShutdownTimeout:  getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Driver:      getEnv("DB_DRIVER", database.DriverPostgres),
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnvAsInt("DB_PORT", 5432),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			DBName:      getEnv("DB_NAME", "teamportal"),
			SSLMode:     getEnv("DB_SSL_MODE", "disable"),
			Path:        getEnv("DB_PATH", "teamportal.db"),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", true),
			Debug:       getEnvAsBool("DB_DEBUG", false),
		},
		JWT: JWTConfig{
			Secret:        getEnv("JWT_SECRET", "dev-secret-change-in-production"),
			Issuer:        getEnv("JWT_ISSUER", "teamportal"),
			TokenDuration: getEnvAsDuration("JWT_TOKEN_DURATION", 24*time.Hour),
		},
		Email: EmailConfig{
			Enabled:      getEnvAsBool("EMAIL_ENABLED", false),
			SMTPHost:     getEnv("SMTP_HOST", "localhost"),
			SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromEmail:    getEnv("EMAIL_FROM", "noreply@teamportal.local"),
			FromName:     getEnv("EMAIL_FROM_NAME", "Team Portal"),
			BaseURL:      getEnv("APP_BASE_URL", "http://localhost:3000"),
			AppName:      getEnv("APP_NAME", "Team Portal"),
			SupportEmail: getEnv("SUPPORT_EMAIL", "support@teamportal.local"),
		},
		Lifecycle: LifecycleConfig{
			GraceWindow:    getEnvAsDuration("SCORING_GRACE_WINDOW", scoring.DefaultGraceWindow),
			EndInclusive:   getEnvAsBool("RECURRENCE_END_INCLUSIVE", false),
			MaxOccurrences: getEnvAsInt("RECURRENCE_MAX_OCCURRENCES", 52),
			NotifyTimeout:  getEnvAsDuration("NOTIFY_TIMEOUT", 5*time.Second),
		},
	}

	if err := cfg.ValidateConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidateConfig rejects settings the server cannot run with.
func (c *Config) ValidateConfig() error {
	var errs []error

	switch c.Database.Driver {
	case database.DriverPostgres, database.DriverPgx:
		if c.Database.Host == "" || c.Database.DBName == "" {
			errs = append(errs, errors.New("DB_HOST and DB_NAME are required for postgres"))
		}
	case database.DriverSQLite3, database.DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, errors.New("DB_PATH is required for sqlite"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver))
	}

	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if !c.IsDevelopment() && strings.HasPrefix(c.JWT.Secret, "dev-") {
		errs = append(errs, errors.New("JWT_SECRET must be changed outside development"))
	}
	if c.JWT.TokenDuration <= 0 {
		errs = append(errs, errors.New("JWT_TOKEN_DURATION must be positive"))
	}

	if c.Email.Enabled && c.Email.SMTPHost == "" {
		errs = append(errs, errors.New("SMTP_HOST is required when email is enabled"))
	}

	if c.Lifecycle.GraceWindow <= 0 {
		errs = append(errs, errors.New("SCORING_GRACE_WINDOW must be positive"))
	}
	if c.Lifecycle.MaxOccurrences <= 0 {
		errs = append(errs, errors.New("RECURRENCE_MAX_OCCURRENCES must be positive"))
	}
	if c.Lifecycle.NotifyTimeout <= 0 {
		errs = append(errs, errors.New("NOTIFY_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// ToDatabaseConfig converts to the database package config.
func (c *Config) ToDatabaseConfig() database.Config {
	return database.Config{
		Driver:   c.Database.Driver,
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		User:     c.Database.User,
		Password: c.Database.Password,
		DBName:   c.Database.DBName,
		SSLMode:  c.Database.SSLMode,
		Path:     c.Database.Path,
		Debug:    c.Database.Debug,
	}
}

// ToEmailConfig converts to the email package config.
func (c *Config) ToEmailConfig() *email.Config {
	return &email.Config{
		SMTPHost:     c.Email.SMTPHost,
		SMTPPort:     c.Email.SMTPPort,
		SMTPUsername: c.Email.SMTPUsername,
		SMTPPassword: c.Email.SMTPPassword,
		FromEmail:    c.Email.FromEmail,
		FromName:     c.Email.FromName,
		BaseURL:      c.Email.BaseURL,
		AppName:      c.Email.AppName,
		SupportEmail: c.Email.SupportEmail,
	}
}

// Calendar returns the recurrence calendar for the configured end boundary.
func (c *Config) Calendar() recurrence.Calendar {
	if c.Lifecycle.EndInclusive {
		return recurrence.Calendar{Boundary: recurrence.Inclusive}
	}
	return recurrence.Calendar{Boundary: recurrence.Exclusive}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	// Try parsing as duration string (e.g., "15m", "24h")
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}

	return defaultValue
}
