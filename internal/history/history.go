package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"docsort/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current journal schema. Bump it when the schema
// changes; a mismatched database must be deleted and recreated.
const schemaVersion = 1

// ErrSchemaMismatch indicates the journal was written by a different schema
// version.
var ErrSchemaMismatch = errors.New("history schema version mismatch")

// Entry is one recorded pipeline outcome.
type Entry struct {
	ID         int64
	JobID      string
	FileName   string
	SourcePath string
	FileType   string
	Category   string
	Score      float64
	Action     string
	Detail     string
	Elapsed    time.Duration
	CreatedAt  time.Time
}

// Journal persists outcomes to SQLite. All methods are safe on a nil
// receiver so callers can wire it unconditionally and leave it nil when
// history is disabled.
type Journal struct {
	db   *sql.DB
	path string
	keep int
}

// Open connects to the journal database, creating it if needed. Returns
// (nil, nil) when history is disabled in the configuration.
func Open(cfg *config.Config) (*Journal, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.HistoryPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	journal := &Journal{db: db, path: dbPath, keep: cfg.History.Keep}
	if err := journal.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return journal, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Path returns the database file location.
func (j *Journal) Path() string {
	if j == nil {
		return ""
	}
	return j.path
}

// Record inserts an outcome and trims entries beyond the retention limit.
func (j *Journal) Record(ctx context.Context, entry Entry) error {
	if j == nil {
		return nil
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := j.db.ExecContext(
		ctx,
		`INSERT INTO outcomes (
            job_id, file_name, source_path, file_type,
            category, score, action, detail, elapsed_ms, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.JobID,
		entry.FileName,
		entry.SourcePath,
		entry.FileType,
		entry.Category,
		entry.Score,
		entry.Action,
		entry.Detail,
		entry.Elapsed.Milliseconds(),
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}

	return j.prune(ctx)
}

// List returns up to limit outcomes, most recent first. A non-positive
// limit returns everything.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	if j == nil {
		return nil, nil
	}

	query := `SELECT id, job_id, file_name, source_path, file_type,
        category, score, action, detail, elapsed_ms, created_at
        FROM outcomes ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, max(limit, 0))
	for rows.Next() {
		var entry Entry
		var elapsedMS int64
		var createdAt string
		if err := rows.Scan(
			&entry.ID,
			&entry.JobID,
			&entry.FileName,
			&entry.SourcePath,
			&entry.FileType,
			&entry.Category,
			&entry.Score,
			&entry.Action,
			&entry.Detail,
			&elapsedMS,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		entry.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		if parsed, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
			entry.CreatedAt = parsed
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return entries, nil
}

// Count returns the number of journal entries.
func (j *Journal) Count(ctx context.Context) (int, error) {
	if j == nil {
		return 0, nil
	}
	var count int
	if err := j.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM outcomes").Scan(&count); err != nil {
		return 0, fmt.Errorf("count outcomes: %w", err)
	}
	return count, nil
}

func (j *Journal) prune(ctx context.Context) error {
	if j.keep <= 0 {
		return nil
	}
	_, err := j.db.ExecContext(
		ctx,
		`DELETE FROM outcomes WHERE id NOT IN (
            SELECT id FROM outcomes ORDER BY id DESC LIMIT ?
        )`,
		j.keep,
	)
	if err != nil {
		return fmt.Errorf("prune outcomes: %w", err)
	}
	return nil
}

func (j *Journal) initSchema(ctx context.Context) error {
	var tableExists int
	err := j.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		if _, err := j.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create history schema: %w", err)
		}
		return nil
	}

	var version int
	if err := j.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, j.path)
	}
	return nil
}
