// Package journal persists resolution history in an embedded SQLite
// database.
//
// The journal is an audit trail for the current merge session and beyond:
// every successful resolution operation is recorded with its path, method,
// region span, and timestamp. The database lives at .mend/journal.db by
// default and is opened in WAL mode so concurrent scans can read while a
// resolution writes.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/mendtool/mend/internal/engine"
)

// Journal wraps the SQLite connection.
type Journal struct {
	conn *sql.DB
	path string
}

// Open creates or opens the journal database at the specified path.
//
// The caller MUST call Close() when done.
func Open(path string) (*Journal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping journal database: %w", err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetConnMaxLifetime(5 * time.Minute)

	j := &Journal{conn: conn, path: path}

	// WAL for concurrent readers, busy timeout for writer contention
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = j.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = j.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := j.initSchema(); err != nil {
		_ = j.Close()
		return nil, err
	}

	return j, nil
}

// initSchema creates the resolutions table if needed. Idempotent.
func (j *Journal) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS resolutions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	path         TEXT NOT NULL,
	method       TEXT NOT NULL,
	side         TEXT NOT NULL DEFAULT '',
	region_start INTEGER NOT NULL DEFAULT 0,
	region_end   INTEGER NOT NULL DEFAULT 0,
	resolved_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_resolutions_path ON resolutions(path);
CREATE INDEX IF NOT EXISTS idx_resolutions_resolved_at ON resolutions(resolved_at);
`
	if _, err := j.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize journal schema: %w", err)
	}
	return nil
}

// Close closes the journal, checkpointing the WAL first.
func (j *Journal) Close() error {
	if j.conn == nil {
		return nil
	}

	if _, err := j.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint journal WAL: %v\n", err)
	}

	if err := j.conn.Close(); err != nil {
		return fmt.Errorf("failed to close journal database: %w", err)
	}

	j.conn = nil
	return nil
}

// Record persists one resolution. Implements engine.Recorder.
func (j *Journal) Record(ctx context.Context, r engine.Resolution) error {
	at := r.ResolvedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	_, err := j.conn.ExecContext(ctx,
		`INSERT INTO resolutions (path, method, side, region_start, region_end, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.Path, r.Method, r.Side, r.RegionStart, r.RegionEnd, at.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to record resolution: %w", err)
	}

	return nil
}

// Recent returns the most recent resolutions, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]engine.Resolution, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := j.conn.QueryContext(ctx,
		`SELECT path, method, side, region_start, region_end, resolved_at
		 FROM resolutions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolutions: %w", err)
	}
	defer rows.Close()

	return scanResolutions(rows)
}

// ByPath returns all recorded resolutions for one path, oldest first.
func (j *Journal) ByPath(ctx context.Context, path string) ([]engine.Resolution, error) {
	rows, err := j.conn.QueryContext(ctx,
		`SELECT path, method, side, region_start, region_end, resolved_at
		 FROM resolutions WHERE path = ? ORDER BY id ASC`, path)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolutions for %s: %w", path, err)
	}
	defer rows.Close()

	return scanResolutions(rows)
}

func scanResolutions(rows *sql.Rows) ([]engine.Resolution, error) {
	var result []engine.Resolution

	for rows.Next() {
		var (
			r  engine.Resolution
			at string
		)
		if err := rows.Scan(&r.Path, &r.Method, &r.Side, &r.RegionStart, &r.RegionEnd, &at); err != nil {
			return nil, fmt.Errorf("failed to scan resolution row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, at); err == nil {
			r.ResolvedAt = t
		}
		result = append(result, r)
	}

	return result, rows.Err()
}
