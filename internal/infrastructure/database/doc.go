// Package database provides the SQLite journal for Bonsai.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Schema migrations read from an fs.FS (usually migrations.FS)
//   - A bonsai driver that journals events and store payloads
//   - Newest-first queries over the journal for the admin API
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//   - Store payloads are written as given; do not store secrets
//
// Performance Characteristics:
//   - WAL mode allows concurrent reads during writes
//   - The driver batches queued records into one transaction per drain
//   - A full queue drops records rather than stalling the caller
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{
//	    Path:       cfg.Database.Path,
//	    WALMode:    cfg.Database.WALMode,
//	    Migrations: migrations.FS,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
//	journal := database.NewDriver(db, database.DriverConfig{Instance: id})
//	logger.Register(journal)
//
// Migration Strategy:
//
// Files are named YYYYMMDD_HHMMSS_name.up.sql with a matching .down.sql and
// are applied in version order, one transaction each. Tables are STRICT.
package database
