package index

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"cmdtrack/internal/record"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS executions (
	uuid       TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	command    TEXT NOT NULL,
	start_time TEXT NOT NULL,
	exit_code  INTEGER
);
CREATE INDEX IF NOT EXISTS idx_executions_status ON executions(status);`

// SQLite is an embedded index backend. Unlike clink it needs no external
// binary, but it remains best-effort: the flat file stays authoritative.
type SQLite struct {
	db   *sql.DB
	path string
}

// NewSQLite opens (or creates) the index database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("index: open sqlite: %w", err)
	}
	// The index is written under the store's exclusive lock, so one
	// connection is enough and keeps sqlite happy.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("index: create schema: %w", err)
	}
	return &SQLite{db: db, path: path}, nil
}

func (s *SQLite) Available() bool  { return s.db != nil }
func (s *SQLite) Describe() string { return "sqlite:" + s.path }

func (s *SQLite) Save(rec *record.Record) error {
	var exitCode any
	if rec.ExitCode != nil {
		exitCode = *rec.ExitCode
	}
	_, err := s.db.Exec(
		`INSERT INTO executions (uuid, status, command, start_time, exit_code)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(uuid) DO UPDATE SET
		   status = excluded.status,
		   command = excluded.command,
		   start_time = excluded.start_time,
		   exit_code = excluded.exit_code`,
		rec.UUID, string(rec.Status), rec.Command,
		rec.StartTime.Format(time.RFC3339Nano), exitCode,
	)
	if err != nil {
		return fmt.Errorf("index: upsert %s: %w", rec.UUID, err)
	}
	return nil
}

func (s *SQLite) Delete(uuid string) error {
	if _, err := s.db.Exec(`DELETE FROM executions WHERE uuid = ?`, uuid); err != nil {
		return fmt.Errorf("index: delete %s: %w", uuid, err)
	}
	return nil
}

func (s *SQLite) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM executions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}

func (s *SQLite) Drop() error {
	if _, err := s.db.Exec(`DELETE FROM executions`); err != nil {
		return fmt.Errorf("index: drop: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func removeIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
