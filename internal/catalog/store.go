package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // pure Go SQLite driver, registers as "sqlite"
)

// walJournalSizeLimit caps the WAL file before SQLite truncates it back down.
const walJournalSizeLimit = 64 * 1024 * 1024

// Store is the durable catalog contract (data-model section 4.1). load_all
// is a read-only bulk load at the start of each cycle; upsert/remove are
// serialized by the engine; append_log never aborts a cycle on failure.
type Store interface {
	LoadAll(ctx context.Context) (map[string]FileRecord, error)
	Upsert(ctx context.Context, record FileRecord) error
	Remove(ctx context.Context, path string) error
	AppendLog(ctx context.Context, entry SyncLogEntry) error
	TailLog(ctx context.Context, limit int) ([]SyncLogEntry, error)
	Close() error
}

// SQLiteStore implements Store on top of an embedded, pure-Go SQLite
// database opened in WAL mode. A single *sql.DB connection is used
// throughout — the engine is the sole writer and readers never need to
// observe uncommitted state, so connection pooling would only add
// surprising interleavings.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if missing) the catalog database at dbPath and
// brings its schema up to date. Use ":memory:" for tests.
func Open(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("catalog: opening database", slog.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("catalog: open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)

	ctx := context.Background()

	if err := setPragmas(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("catalog: database ready", slog.String("path", dbPath))

	return &SQLiteStore{db: db, logger: logger}, nil
}

func setPragmas(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	pragmas := []struct {
		sql  string
		desc string
	}{
		{"PRAGMA journal_mode = WAL", "WAL mode"},
		{"PRAGMA synchronous = FULL", "synchronous FULL"},
		{"PRAGMA foreign_keys = ON", "foreign keys"},
		{fmt.Sprintf("PRAGMA journal_size_limit = %d", walJournalSizeLimit), "journal size limit"},
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p.sql); err != nil {
			return fmt.Errorf("catalog: set pragma %s: %w", p.desc, err)
		}

		logger.Debug("catalog: pragma set", slog.String("pragma", p.desc))
	}

	return nil
}

// LoadAll reads every FileRecord in the catalog, keyed by path.
func (s *SQLiteStore) LoadAll(ctx context.Context) (map[string]FileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, content_hash, size_bytes, local_mtime_epoch_s, remote_id, last_synced_epoch_s
		 FROM file_records`)
	if err != nil {
		return nil, fmt.Errorf("catalog: load_all query: %w", err)
	}
	defer rows.Close()

	out := make(map[string]FileRecord)

	for rows.Next() {
		var (
			rec      FileRecord
			remoteID sql.NullString
		)

		if err := rows.Scan(&rec.Path, &rec.ContentHash, &rec.SizeBytes,
			&rec.LocalMtimeEpochS, &remoteID, &rec.LastSyncedEpochS); err != nil {
			return nil, fmt.Errorf("catalog: load_all scan: %w", err)
		}

		rec.RemoteID = remoteID.String
		out[rec.Path] = rec
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: load_all iterate: %w", err)
	}

	return out, nil
}

// Upsert replaces-or-inserts a FileRecord by path. The caller must not
// report success to the scheduler until this returns nil — durability is
// the contract (data-model section 4.1).
func (s *SQLiteStore) Upsert(ctx context.Context, record FileRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO file_records (path, content_hash, size_bytes, local_mtime_epoch_s, remote_id, last_synced_epoch_s)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   content_hash = excluded.content_hash,
		   size_bytes = excluded.size_bytes,
		   local_mtime_epoch_s = excluded.local_mtime_epoch_s,
		   remote_id = excluded.remote_id,
		   last_synced_epoch_s = excluded.last_synced_epoch_s`,
		record.Path, record.ContentHash, record.SizeBytes, record.LocalMtimeEpochS,
		nullableString(record.RemoteID), record.LastSyncedEpochS,
	)
	if err != nil {
		return fmt.Errorf("catalog: upsert %q: %w", record.Path, err)
	}

	return nil
}

// Remove deletes a record by path; a no-op if absent.
func (s *SQLiteStore) Remove(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM file_records WHERE path = ?`, path); err != nil {
		return fmt.Errorf("catalog: remove %q: %w", path, err)
	}

	return nil
}

// AppendLog inserts one audit row. The log is append-only: existing rows
// are never updated or deleted by the engine.
func (s *SQLiteStore) AppendLog(ctx context.Context, entry SyncLogEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_log (cycle_id, timestamp_s, action, path, status, error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.CycleID, entry.TimestampS, string(entry.Action), entry.Path,
		string(entry.Status), nullableString(entry.Error),
	)
	if err != nil {
		return fmt.Errorf("catalog: append_log: %w", err)
	}

	return nil
}

// TailLog returns the most recent log rows, newest first.
func (s *SQLiteStore) TailLog(ctx context.Context, limit int) ([]SyncLogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cycle_id, timestamp_s, action, path, status, error
		 FROM sync_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: tail_log query: %w", err)
	}
	defer rows.Close()

	var out []SyncLogEntry

	for rows.Next() {
		var (
			entry   SyncLogEntry
			action  string
			status  string
			errText sql.NullString
		)

		if err := rows.Scan(&entry.CycleID, &entry.TimestampS, &action, &entry.Path, &status, &errText); err != nil {
			return nil, fmt.Errorf("catalog: tail_log scan: %w", err)
		}

		entry.Action = ActionKind(action)
		entry.Status = LogStatus(status)
		entry.Error = errText.String

		out = append(out, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: tail_log iterate: %w", err)
	}

	return out, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
