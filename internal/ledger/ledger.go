// Package ledger keeps a SQLite-backed record of bulk transfer jobs. The
// jobs themselves are transient; the ledger is the durable trail of what was
// moved where and how it ended.
package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/silodb/silo/internal/pg"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS transfer_jobs (
	id          TEXT PRIMARY KEY,
	direction   TEXT NOT NULL,
	subject     TEXT NOT NULL,
	path        TEXT NOT NULL,
	format      TEXT,
	state       TEXT NOT NULL,
	error       TEXT,
	started_at  DATETIME,
	duration_ms INTEGER
)`

// Entry is one recorded transfer job.
type Entry struct {
	ID         string
	Direction  string
	Subject    string
	Path       string
	Format     string
	State      string
	Error      string
	StartedAt  time.Time
	DurationMS int64
}

// Ledger provides SQLite-backed transfer job storage.
type Ledger struct {
	db *sql.DB
}

// Open opens (or creates) the ledger database at path and ensures the schema
// exists.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ledger: create dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open db: %w", err)
	}

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: create table: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Record implements pg.JobRecorder. Recording is best-effort: a ledger
// failure must never fail the transfer it describes.
func (l *Ledger) Record(job *pg.Job) {
	if l == nil {
		return
	}
	e := Entry{
		ID:         job.ID.String(),
		Direction:  string(job.Direction),
		Subject:    job.Subject,
		Path:       job.Path,
		Format:     job.Options.Format,
		State:      job.State.String(),
		StartedAt:  job.StartedAt,
		DurationMS: job.Duration.Milliseconds(),
	}
	if job.Err != nil {
		e.Error = job.Err.Error()
	}
	_ = l.Add(e)
}

// Add inserts a ledger entry.
func (l *Ledger) Add(e Entry) error {
	_, err := l.db.Exec(
		`INSERT INTO transfer_jobs (id, direction, subject, path, format, state, error, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.Direction,
		e.Subject,
		e.Path,
		e.Format,
		e.State,
		e.Error,
		e.StartedAt,
		e.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("ledger add: %w", err)
	}
	return nil
}

// Recent returns the most recent entries, limited to limit rows.
func (l *Ledger) Recent(limit int) ([]Entry, error) {
	rows, err := l.db.Query(
		`SELECT id, direction, subject, path, format, state, error, started_at, duration_ms
		 FROM transfer_jobs
		 ORDER BY started_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ledger recent: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Clear deletes all ledger entries.
func (l *Ledger) Clear() error {
	if _, err := l.db.Exec(`DELETE FROM transfer_jobs`); err != nil {
		return fmt.Errorf("ledger clear: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID,
			&e.Direction,
			&e.Subject,
			&e.Path,
			&e.Format,
			&e.State,
			&e.Error,
			&e.StartedAt,
			&e.DurationMS,
		); err != nil {
			return nil, fmt.Errorf("ledger scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger rows: %w", err)
	}
	return entries, nil
}
