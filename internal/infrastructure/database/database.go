package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

const (
	dirPermissions  = 0750
	filePermissions = 0600

	pingTimeout     = 5 * time.Second
	connMaxIdleTime = 30 * time.Minute
)

// DB is the SQLite database behind the journal.
//
// The pool holds a single connection: the journal driver is the only
// writer, and admin API reads queue behind it rather than racing it for
// the file lock.
type DB struct {
	*sql.DB
	path       string
	migrations fs.FS
}

// Config maps the database section of config.yaml.
type Config struct {
	// Path of the database file. Missing directories are created.
	Path string

	// WALMode switches the journal to write-ahead logging with
	// synchronous=NORMAL.
	WALMode bool

	// BusyTimeout is how long (seconds) a statement waits on a lock.
	BusyTimeout int

	// Migrations holds the *.up.sql / *.down.sql files applied by Migrate,
	// at the root of the filesystem. Usually migrations.FS.
	Migrations fs.FS
}

// Open opens (creating if needed) the database at cfg.Path and pings it.
//
// Parameters:
//   - ctx: Bounds the ping (capped at 5s)
//   - cfg: Database configuration
//
// Returns:
//   - *DB: Open database; the file is restricted to its owner (0600)
//   - error: ErrNoPath, or the directory/open/ping failure
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, ErrNoPath
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	// The ping created the file.
	if err := os.Chmod(cfg.Path, filePermissions); err != nil {
		sqlDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("restricting database file: %w", err)
	}

	return &DB{DB: sqlDB, path: cfg.Path, migrations: cfg.Migrations}, nil
}

// dsn builds the go-sqlite3 connection string.
// See https://github.com/mattn/go-sqlite3#connection-string
func dsn(cfg Config) string {
	params := url.Values{}
	params.Set("_busy_timeout", strconv.Itoa(cfg.BusyTimeout*int(time.Second/time.Millisecond)))
	params.Set("_foreign_keys", "on")
	params.Set("_txlock", "immediate")
	if cfg.WALMode {
		params.Set("_journal_mode", "WAL")
		params.Set("_synchronous", "NORMAL")
	}
	return "file:" + cfg.Path + "?" + params.Encode()
}

// Close closes the pool. It is a no-op on a nil pool.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck runs a trivial query.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	return nil
}

// Pragma reads a single PRAGMA value as text, e.g. Pragma(ctx,
// "journal_mode") returns "wal" when WAL is on. name is not escaped and
// must be a constant.
func (db *DB) Pragma(ctx context.Context, name string) (string, error) {
	var value string
	if err := db.QueryRowContext(ctx, "PRAGMA "+name).Scan(&value); err != nil {
		return "", fmt.Errorf("reading pragma %s: %w", name, err)
	}
	return value, nil
}
