// Package sqlite provides the SQLite-backed dispatch history.
package sqlite

import (
	"database/sql"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Errors
var (
	ErrOpenFailed      = errors.New("sqlite: open failed")
	ErrMigrationFailed = errors.New("sqlite: migration failed")
)

// Config configures the history database.
type Config struct {
	// DSN is a go-sqlite3 data source, e.g. "file:domguard.db?mode=rwc".
	DSN string
	// MaxOpenConns caps the pool. Writes are serialized by SQLite anyway.
	MaxOpenConns int
	// ConnMaxIdleTime closes pooled connections idle for longer.
	ConnMaxIdleTime time.Duration
	// JournalMode is applied to every connection, e.g. "WAL".
	JournalMode string
	// BusyTimeout is how long a connection waits on a locked database.
	BusyTimeout time.Duration
	// Migrate creates the history table on open.
	Migrate bool
}

// Option configures the history database.
type Option func(*Config)

// WithDSN sets the data source.
func WithDSN(dsn string) Option {
	return func(c *Config) { c.DSN = dsn }
}

// WithBusyTimeout sets the lock wait.
func WithBusyTimeout(d time.Duration) Option {
	return func(c *Config) { c.BusyTimeout = d }
}

// WithJournalMode sets the journal mode.
func WithJournalMode(mode string) Option {
	return func(c *Config) { c.JournalMode = mode }
}

// WithoutMigration opens an existing history without touching its schema.
func WithoutMigration() Option {
	return func(c *Config) { c.Migrate = false }
}

// DefaultConfig returns the settings used by the domguard CLI.
func DefaultConfig() Config {
	return Config{
		DSN:             "file:domguard.db?cache=shared&mode=rwc",
		MaxOpenConns:    4,
		ConnMaxIdleTime: 5 * time.Minute,
		JournalMode:     "WAL",
		BusyTimeout:     5 * time.Second,
		Migrate:         true,
	}
}

// openDB opens the database with per-connection settings carried in the DSN
// so that every pooled connection gets them.
func openDB(cfg Config) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", connectionDSN(cfg))
	if err != nil {
		return nil, errors.Join(ErrOpenFailed, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Join(ErrOpenFailed, err)
	}
	return db, nil
}

func connectionDSN(cfg Config) string {
	params := url.Values{}
	if cfg.BusyTimeout > 0 && !strings.Contains(cfg.DSN, "_busy_timeout=") {
		params.Set("_busy_timeout", strconv.FormatInt(cfg.BusyTimeout.Milliseconds(), 10))
	}
	if cfg.JournalMode != "" && !strings.Contains(cfg.DSN, "_journal_mode=") {
		params.Set("_journal_mode", cfg.JournalMode)
	}
	if len(params) == 0 {
		return cfg.DSN
	}
	sep := "?"
	if strings.Contains(cfg.DSN, "?") {
		sep = "&"
	}
	return cfg.DSN + sep + params.Encode()
}
