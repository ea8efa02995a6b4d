/*
Package sqlite opens a SQLite-backed Ledger Store.

PURPOSE:
  Supplies the SQLite dialect to sqlstore: schema, placeholder style and
  constraint error detection. Used for local runs, the demo and the
  integration tests (":memory:").

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging), foreign keys
  and a busy timeout. The pool is limited to one connection: SQLite has a
  single writer, and a ":memory:" database only exists on the connection
  that created it.

TYPES:
  Hours are TEXT so decimal values round-trip exactly. Dates are TEXT in
  YYYY-MM-DD, which sorts and compares correctly as strings.

USAGE:
  store, err := sqlite.Open(ctx, "./data/timearch.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - store/sqlstore: the shared query layer
  - store/postgres: PostgreSQL dialect
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/timearch/engine/store/sqlstore"
)

// Dialect is the SQLite flavour of the Ledger Store.
var Dialect = sqlstore.Dialect{
	Name:              "sqlite",
	Schema:            schema,
	IsUniqueViolation: isUniqueConstraintError,
}

// Open opens (creating if needed) the database at path and migrates it.
// Use ":memory:" for an in-memory database.
func Open(ctx context.Context, path string) (*sqlstore.Store, error) {
	db, err := sql.Open("sqlite3", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := sqlstore.New(db, Dialect)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// DSN appends the connection pragmas to a file path, keeping any query
// parameters the caller already set.
func DSN(path string) string {
	params := "_foreign_keys=on&_busy_timeout=5000"
	if path != ":memory:" {
		params += "&_journal_mode=WAL"
	}
	if strings.Contains(path, "?") {
		return path + "&" + params
	}
	return path + "?" + params
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL CHECK (role IN ('admin', 'user')),
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS user_settings (
		user_id INTEGER PRIMARY KEY REFERENCES users(id),
		default_hours_per_day TEXT NOT NULL DEFAULT '8.5',
		employment_percentage INTEGER NOT NULL DEFAULT 100,
		vacation_hours TEXT NOT NULL DEFAULT '212.5',
		start_date TEXT
	);

	CREATE TABLE IF NOT EXISTS projects (
		project_number TEXT PRIMARY KEY,
		project_name TEXT NOT NULL,
		description TEXT
	);

	CREATE TABLE IF NOT EXISTS sia_phases (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		phase_number INTEGER NOT NULL,
		phase_name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS user_projects (
		user_id INTEGER NOT NULL REFERENCES users(id),
		project_number TEXT NOT NULL REFERENCES projects(project_number),
		PRIMARY KEY (user_id, project_number)
	);

	CREATE TABLE IF NOT EXISTS project_sia_phases (
		project_number TEXT NOT NULL REFERENCES projects(project_number),
		phase_name TEXT NOT NULL REFERENCES sia_phases(phase_name),
		soll_stunden TEXT NOT NULL,
		PRIMARY KEY (project_number, phase_name)
	);

	CREATE TABLE IF NOT EXISTS time_entries (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id),
		project_number TEXT NOT NULL REFERENCES projects(project_number),
		phase_id INTEGER REFERENCES sia_phases(id),
		hours TEXT NOT NULL CHECK (CAST(hours AS REAL) >= 0),
		entry_date TEXT NOT NULL,
		activity TEXT NOT NULL,
		note TEXT,
		created_at TEXT NOT NULL
	);

	-- Balance views read by user and date (hot path)
	CREATE INDEX IF NOT EXISTS idx_time_entries_user_date
		ON time_entries(user_id, entry_date);

	-- Allocation reads by project, then filters by date
	CREATE INDEX IF NOT EXISTS idx_time_entries_project_date
		ON time_entries(project_number, entry_date);

	-- Vacation bank
	CREATE INDEX IF NOT EXISTS idx_time_entries_user_activity
		ON time_entries(user_id, activity);
`
