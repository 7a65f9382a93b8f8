package database

import "errors"

// Sentinel errors for database operations.
var (
	// ErrNoPath is returned by Open when no database path is configured.
	ErrNoPath = errors.New("database: path is required")

	// ErrMigrationNotFound is returned by MigrateDown when the applied
	// version has no file in the migrations filesystem.
	ErrMigrationNotFound = errors.New("database: migration not found")

	// ErrNoDownMigration is returned by MigrateDown when the latest
	// migration cannot be rolled back.
	ErrNoDownMigration = errors.New("database: migration has no down SQL")
)
