package database

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"
)

const (
	schemaMigrationsDDL = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`

	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"
)

// Migration is one schema step loaded from the migrations filesystem.
//
// Files are named YYYYMMDD_HHMMSS_name.up.sql with an optional matching
// .down.sql. Version is the timestamp prefix, which also fixes the order.
type Migration struct {
	Version string
	Name    string
	UpSQL   string
	DownSQL string
}

// MigrationRecord is a row of schema_migrations.
type MigrationRecord struct {
	Version   string
	AppliedAt time.Time
}

// inTx runs fn in a transaction and commits if it returns nil.
func (db *DB) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

// Migrate applies every pending migration, oldest first.
//
// Each migration commits on its own. A failing migration is rolled back
// and stops the run; earlier ones stay applied, so calling Migrate again
// after fixing the SQL resumes from the failure.
func (db *DB) Migrate(ctx context.Context) error {
	_, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		return err
	}

	for _, m := range pending {
		err := db.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
				m.Version, time.Now().UTC().Format(time.RFC3339),
			)
			return err
		})
		if err != nil {
			return fmt.Errorf("applying migration %s (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

// MigrateDown reverts the most recently applied migration. With nothing
// applied it does nothing.
//
// Returns:
//   - error: ErrMigrationNotFound when the applied version has no file,
//     ErrNoDownMigration when it has no .down.sql, or a database failure
func (db *DB) MigrateDown(ctx context.Context) error {
	applied, _, err := db.GetMigrationStatus(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return nil
	}
	latest := applied[len(applied)-1].Version

	all, err := db.loadMigrations()
	if err != nil {
		return err
	}
	i, found := slices.BinarySearchFunc(all, latest, func(m Migration, v string) int {
		return cmp.Compare(m.Version, v)
	})
	if !found {
		return fmt.Errorf("%w: %s", ErrMigrationNotFound, latest)
	}
	m := all[i]
	if m.DownSQL == "" {
		return fmt.Errorf("%w: %s", ErrNoDownMigration, m.Version)
	}

	err = db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, m.DownSQL); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = ?", m.Version)
		return err
	})
	if err != nil {
		return fmt.Errorf("reverting migration %s (%s): %w", m.Version, m.Name, err)
	}
	return nil
}

// GetMigrationStatus lists applied migrations (oldest first) and the ones
// in the filesystem that have not been applied yet. It creates the
// schema_migrations table if needed.
func (db *DB) GetMigrationStatus(ctx context.Context) (applied []MigrationRecord, pending []Migration, err error) {
	if _, err := db.ExecContext(ctx, schemaMigrationsDDL); err != nil {
		return nil, nil, fmt.Errorf("creating schema_migrations: %w", err)
	}

	applied, err = db.appliedMigrations(ctx)
	if err != nil {
		return nil, nil, err
	}
	all, err := db.loadMigrations()
	if err != nil {
		return nil, nil, err
	}

	done := make(map[string]struct{}, len(applied))
	for _, r := range applied {
		done[r.Version] = struct{}{}
	}
	for _, m := range all {
		if _, ok := done[m.Version]; !ok {
			pending = append(pending, m)
		}
	}
	return applied, pending, nil
}

func (db *DB) appliedMigrations(ctx context.Context) ([]MigrationRecord, error) {
	rows, err := db.QueryContext(ctx, "SELECT version, applied_at FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("querying schema_migrations: %w", err)
	}
	defer rows.Close()

	var records []MigrationRecord
	for rows.Next() {
		var (
			r  MigrationRecord
			at string
		)
		if err := rows.Scan(&r.Version, &at); err != nil {
			return nil, fmt.Errorf("scanning schema_migrations: %w", err)
		}
		r.AppliedAt, _ = time.Parse(time.RFC3339, at) //nolint:errcheck // written by Migrate
		records = append(records, r)
	}
	return records, rows.Err()
}

// loadMigrations reads the migrations filesystem, sorted by version. A DB
// opened without one has no migrations. Files that do not follow the
// naming scheme are ignored.
func (db *DB) loadMigrations() ([]Migration, error) {
	if db.migrations == nil {
		return nil, nil
	}
	entries, err := fs.ReadDir(db.migrations, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migrations: %w", err)
	}

	byVersion := make(map[string]*Migration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version, isUp, ok := parseMigrationFilename(entry.Name())
		if !ok {
			continue
		}
		data, err := fs.ReadFile(db.migrations, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}

		m := byVersion[version]
		if m == nil {
			m = &Migration{Version: version}
			byVersion[version] = m
		}
		if isUp {
			m.Name = extractMigrationName(entry.Name())
			m.UpSQL = string(data)
		} else {
			m.DownSQL = string(data)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		// A lone .down.sql has nothing to apply.
		if m.UpSQL == "" {
			continue
		}
		migrations = append(migrations, *m)
	}
	slices.SortFunc(migrations, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	return migrations, nil
}

// parseMigrationFilename splits "20260301_090000_log_journal.up.sql" into
// version "20260301_090000" and direction. ok is false for anything else.
func parseMigrationFilename(name string) (version string, isUp bool, ok bool) {
	var base string
	switch {
	case strings.HasSuffix(name, upSuffix):
		base, isUp = strings.TrimSuffix(name, upSuffix), true
	case strings.HasSuffix(name, downSuffix):
		base = strings.TrimSuffix(name, downSuffix)
	default:
		return "", false, false
	}

	date, rest, found := strings.Cut(base, "_")
	if !found || date == "" {
		return "", false, false
	}
	clock, _, _ := strings.Cut(rest, "_")
	if clock == "" {
		return "", false, false
	}
	return date + "_" + clock, isUp, true
}

// extractMigrationName returns the part after the version:
// "20260301_090000_log_journal.up.sql" gives "log_journal".
func extractMigrationName(filename string) string {
	base := strings.TrimSuffix(strings.TrimSuffix(filename, upSuffix), downSuffix)
	if _, rest, ok := strings.Cut(base, "_"); ok {
		if _, name, ok := strings.Cut(rest, "_"); ok {
			return name
		}
	}
	return base
}
