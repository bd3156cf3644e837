package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/4Lajf/karczma-wrapped/models"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
	_ "modernc.org/sqlite"          // registers "sqlite"
)

// Supported database/sql driver names.
const (
	DriverCgo  = "sqlite3"
	DriverPure = "sqlite"
)

// ErrInvalidRecord is returned for a message that cannot be keyed (no id or no author id).
var ErrInvalidRecord = errors.New("invalid message record")

// Store owns the SQLite handle used by the ingestion pipeline. It is opened once
// at pipeline start and closed once at the end. Write transactions are serialized
// so that at most one batch is in flight at a time.
type Store struct {
	db      *sql.DB
	path    string
	writeMu sync.Mutex
}

// Open opens (creating if needed) the SQLite database described by cfg, applies
// pragmas and brings the schema up to date.
func Open(ctx context.Context, cfg models.DatabaseConfig) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverCgo
	}
	if driver != DriverCgo && driver != DriverPure {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	memory := cfg.Path == ":memory:"
	if !memory {
		// Ensure the directory for the database file exists.
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn(driver, cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if memory {
		// Every connection to ":memory:" is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Store{db: db, path: cfg.Path}, nil
}

// dsn encodes the pragmas as connection parameters so that every pooled
// connection gets them, not just the first.
func dsn(driver string, cfg models.DatabaseConfig) string {
	q := url.Values{}
	switch driver {
	case DriverCgo:
		q.Set("_foreign_keys", "on")
		q.Set("_busy_timeout", fmt.Sprint(cfg.BusyTimeoutMS))
		q.Set("_journal_mode", "WAL")
		q.Set("_synchronous", "NORMAL")
	case DriverPure:
		q.Add("_pragma", "foreign_keys(1)")
		q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeoutMS))
		q.Add("_pragma", "journal_mode(WAL)")
		q.Add("_pragma", "synchronous(NORMAL)")
	}
	// Take the write lock at BEGIN instead of failing mid-transaction on upgrade.
	q.Set("_txlock", "immediate")
	return cfg.Path + "?" + q.Encode()
}

// DB returns the underlying handle for read-only callers.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path is the database file the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
