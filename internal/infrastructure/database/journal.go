package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/bonsai/internal/bonsai"
	"github.com/nerrad567/bonsai/internal/infrastructure/event"
)

// Journal defaults.
const (
	// DefaultBufferSize is the driver queue length when none is configured.
	DefaultBufferSize = 1024

	// maxBatch caps how many queued records share one transaction.
	maxBatch = 128

	// writeTimeout bounds a single batch insert.
	writeTimeout = 10 * time.Second

	// DefaultRecentLimit is used when Recent is asked for zero rows.
	DefaultRecentLimit = 100

	// MaxRecentLimit caps a single Recent query.
	MaxRecentLimit = 1000
)

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Logger receives journal write failures.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
}

// DriverConfig configures a journal Driver.
type DriverConfig struct {
	BufferSize int

	// Instance is stamped on every row.
	Instance string
}

// Driver journals façade events into SQLite.
//
// Messages and metadata go to log_events; store payloads go to
// store_entries. The schema comes from the migrations package, so Migrate
// must have run before the first write.
//
// Thread Safety:
//   - Driver methods never block the dispatcher: records are queued to a
//     bounded buffer drained by one worker, which batches whatever is
//     waiting into a single transaction.
//   - When the buffer is full the record is dropped and counted.
//   - Failed batches are counted per record and reported to the logger set
//     via SetLogger.
type Driver struct {
	db  *DB
	cfg DriverConfig

	queue chan event.Record
	wg    sync.WaitGroup

	closeMu sync.RWMutex
	closed  bool

	dropped atomic.Uint64
	failed  atomic.Uint64
	written atomic.Uint64

	logger   Logger
	loggerMu sync.RWMutex
}

// NewDriver creates a journal driver over db and starts its worker.
//
// Parameters:
//   - db: Open, migrated database
//   - cfg: Queue length and instance id
//
// Returns:
//   - *Driver: Running driver; call Close to flush and stop it
func NewDriver(db *DB, cfg DriverConfig) *Driver {
	if cfg.BufferSize < 1 {
		cfg.BufferSize = DefaultBufferSize
	}
	d := &Driver{
		db:    db,
		cfg:   cfg,
		queue: make(chan event.Record, cfg.BufferSize),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Name implements bonsai.Named.
func (d *Driver) Name() string { return "sqlite" }

// LogMessage implements bonsai.Driver.
func (d *Driver) LogMessage(level bonsai.Level, text string, origin bonsai.Origin) {
	d.enqueue(event.Message(level, text, origin))
}

// LogMetadata implements bonsai.Driver.
func (d *Driver) LogMetadata(level bonsai.Level, metadata bonsai.Metadata, origin bonsai.Origin) {
	d.enqueue(event.FromMetadata(level, metadata, origin))
}

// Store implements bonsai.Driver.
func (d *Driver) Store(metadata bonsai.Metadata) {
	d.enqueue(event.Store(metadata))
}

// Dropped returns the number of records discarded because the queue was
// full or the driver was closed.
func (d *Driver) Dropped() uint64 { return d.dropped.Load() }

// Failed returns the number of records lost to failed inserts.
func (d *Driver) Failed() uint64 { return d.failed.Load() }

// Written returns the number of records committed.
func (d *Driver) Written() uint64 { return d.written.Load() }

// SetLogger sets a logger for write failures.
func (d *Driver) SetLogger(logger Logger) {
	d.loggerMu.Lock()
	d.logger = logger
	d.loggerMu.Unlock()
}

// Close stops accepting records, writes what is already queued and waits
// for the worker to exit. It does not close the database.
func (d *Driver) Close() error {
	d.closeMu.Lock()
	if d.closed {
		d.closeMu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.closeMu.Unlock()

	d.wg.Wait()
	return nil
}

// Recent returns the newest journaled events, newest first.
func (d *Driver) Recent(ctx context.Context, limit int) ([]event.Record, error) {
	return d.db.RecentEvents(ctx, limit)
}

// RecentStores returns the newest store payloads, newest first.
func (d *Driver) RecentStores(ctx context.Context, limit int) ([]event.Record, error) {
	return d.db.RecentStores(ctx, limit)
}

func (d *Driver) enqueue(record event.Record) {
	d.closeMu.RLock()
	defer d.closeMu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		return
	}

	select {
	case d.queue <- record.Stamp(d.cfg.Instance):
	default:
		d.dropped.Add(1)
	}
}

func (d *Driver) run() {
	defer d.wg.Done()

	batch := make([]event.Record, 0, maxBatch)
	for record := range d.queue {
		batch = append(batch[:0], record)
	drain:
		for len(batch) < maxBatch {
			select {
			case next, ok := <-d.queue:
				if !ok {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}
		d.write(batch)
	}
}

func (d *Driver) write(batch []event.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := d.db.InsertRecords(ctx, batch); err != nil {
		d.failed.Add(uint64(len(batch)))
		d.loggerMu.RLock()
		logger := d.logger
		d.loggerMu.RUnlock()
		if logger != nil {
			logger.Warn("journal write failed",
				"records", len(batch),
				"error", err,
			)
		}
		return
	}
	d.written.Add(uint64(len(batch)))
}

// InsertRecords writes records in one transaction. Store records go to
// store_entries, everything else to log_events.
func (db *DB) InsertRecords(ctx context.Context, records []event.Record) error {
	if len(records) == 0 {
		return nil
	}

	err := db.inTx(ctx, func(tx *sql.Tx) error {
		for _, r := range records {
			if err := insertRecord(ctx, tx, r); err != nil {
				return fmt.Errorf("inserting %s record %s: %w", r.Kind, r.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("journal batch of %d: %w", len(records), err)
	}
	return nil
}

func insertRecord(ctx context.Context, tx *sql.Tx, r event.Record) error {
	created := r.Timestamp.UTC().Format(timeLayout)

	if r.Kind == event.KindStore {
		payload, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("encoding payload: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO store_entries (id, instance, payload, created_at) VALUES (?, ?, ?, ?)`,
			r.ID, r.Instance, string(payload), created,
		)
		return err
	}

	var metadata sql.NullString
	if r.Metadata != nil {
		data, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata: %w", err)
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO log_events
			(id, instance, kind, level, glyph, text, metadata, file, function, line, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Instance, string(r.Kind), r.Level, r.Glyph, r.Text, metadata,
		r.File, r.Function, r.Line, created,
	)
	return err
}

// RecentEvents returns up to limit journaled events, newest first.
// A limit of zero means DefaultRecentLimit; larger than MaxRecentLimit is
// capped.
func (db *DB) RecentEvents(ctx context.Context, limit int) ([]event.Record, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, instance, kind, level, glyph, text, metadata, file, function, line, created_at
		FROM log_events
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	records := []event.Record{}
	for rows.Next() {
		var (
			r        event.Record
			kind     string
			metadata sql.NullString
			created  string
		)
		if err := rows.Scan(&r.ID, &r.Instance, &kind, &r.Level, &r.Glyph, &r.Text,
			&metadata, &r.File, &r.Function, &r.Line, &created); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		r.Kind = event.Kind(kind)
		if metadata.Valid {
			if err := json.Unmarshal([]byte(metadata.String), &r.Metadata); err != nil {
				return nil, fmt.Errorf("decoding metadata of %s: %w", r.ID, err)
			}
		}
		r.Timestamp, _ = time.Parse(timeLayout, created) //nolint:errcheck // Format is controlled
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return records, nil
}

// RecentStores returns up to limit store payloads, newest first.
func (db *DB) RecentStores(ctx context.Context, limit int) ([]event.Record, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, instance, payload, created_at
		FROM store_entries
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying store entries: %w", err)
	}
	defer rows.Close()

	records := []event.Record{}
	for rows.Next() {
		var (
			r       = event.Record{Kind: event.KindStore}
			payload string
			created string
		)
		if err := rows.Scan(&r.ID, &r.Instance, &payload, &created); err != nil {
			return nil, fmt.Errorf("scanning store row: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &r.Metadata); err != nil {
			return nil, fmt.Errorf("decoding payload of %s: %w", r.ID, err)
		}
		r.Timestamp, _ = time.Parse(timeLayout, created) //nolint:errcheck // Format is controlled
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating store entries: %w", err)
	}
	return records, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultRecentLimit
	case limit > MaxRecentLimit:
		return MaxRecentLimit
	default:
		return limit
	}
}
