package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"entgo.io/ent/dialect"
	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names
const (
	DriverPostgres = "postgres" // lib/pq
	DriverPgx      = "pgx"      // jackc/pgx stdlib
	DriverSQLite3  = "sqlite3"  // mattn/go-sqlite3 (cgo)
	DriverSQLite   = "sqlite"   // modernc.org/sqlite (pure Go)
)

// Config for database connection
type Config struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// Path is the SQLite database file or DSN.
	Path  string
	Debug bool
}

// DSN builds the driver specific data source name.
func (c Config) DSN() (string, error) {
	switch c.Driver {
	case DriverPostgres, DriverPgx, "":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
		), nil
	case DriverSQLite3:
		if c.Path == "" {
			return "", fmt.Errorf("sqlite path is required")
		}
		return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", c.Path), nil
	case DriverSQLite:
		if c.Path == "" {
			return "", fmt.Errorf("sqlite path is required")
		}
		return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", c.Path), nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

// Dialect maps the driver to the SQL dialect the document store speaks.
func (c Config) Dialect() string {
	switch c.Driver {
	case DriverSQLite3, DriverSQLite:
		return dialect.SQLite
	default:
		return dialect.Postgres
	}
}

// Open connects to the configured database and returns the handle together
// with its dialect.
func Open(cfg Config) (*sqlx.DB, string, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverPostgres
	}
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, "", err
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, "", fmt.Errorf("open database: %w", err)
	}

	// Configure connection pool
	if cfg.Dialect() == dialect.SQLite {
		// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("ping database: %w", err)
	}

	if cfg.Debug {
		log.Printf("[DEBUG] database driver=%s dialect=%s", cfg.Driver, cfg.Dialect())
	}
	log.Printf("✅ Connected to %s (%s)", cfg.Dialect(), cfg.Driver)
	return db, cfg.Dialect(), nil
}
