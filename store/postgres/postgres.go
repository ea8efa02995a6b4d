// Package postgres opens a PostgreSQL-backed Ledger Store using lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	pq "github.com/lib/pq"

	"github.com/timearch/engine/store/sqlstore"
)

var ErrInvalidConnectionString = errors.New("invalid PostgreSQL connection string")

// DefaultConnectTimeout is added to connection strings that set none.
const DefaultConnectTimeout = 5 * time.Second

// Dialect is the PostgreSQL flavour of the Ledger Store.
var Dialect = sqlstore.Dialect{
	Name:                 "postgres",
	Schema:               schema,
	NumberedPlaceholders: true,
	IsUniqueViolation:    isUniqueViolation,
}

// Options tunes the connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnectTimeout:  DefaultConnectTimeout,
	}
}

// Open validates connStr, connects and migrates the schema.
func Open(ctx context.Context, connStr string, opts Options) (*sqlstore.Store, error) {
	if err := ValidateConnString(connStr); err != nil {
		return nil, err
	}
	connector, err := pq.NewConnector(WithConnectTimeout(connStr, opts.ConnectTimeout))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConnectionString, err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		if strings.Contains(err.Error(), "SSL is not enabled on the server") && !hasParam(connStr, "sslmode") {
			return nil, fmt.Errorf("failed to connect to database: %w (hint: add sslmode=disable to the connection string)", err)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := sqlstore.New(db, Dialect)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// ValidateConnString checks that connStr parses as a PostgreSQL URL or
// key=value DSN.
func ValidateConnString(connStr string) error {
	if strings.TrimSpace(connStr) == "" {
		return fmt.Errorf("%w: connection string cannot be empty", ErrInvalidConnectionString)
	}
	if _, err := pq.NewConnector(connStr); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConnectionString, err)
	}
	if isURL(connStr) {
		u, err := url.Parse(connStr)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConnectionString, err)
		}
		if u.Host == "" && (u.Path == "" || u.Path == "/") {
			return fmt.Errorf("%w: connection URL is incomplete", ErrInvalidConnectionString)
		}
	}
	return nil
}

// WithConnectTimeout adds connect_timeout (whole seconds) unless the
// connection string already sets one.
func WithConnectTimeout(connStr string, timeout time.Duration) string {
	secs := int(timeout / time.Second)
	if secs <= 0 || hasParam(connStr, "connect_timeout") {
		return connStr
	}
	value := strconv.Itoa(secs)

	if isURL(connStr) {
		u, err := url.Parse(connStr)
		if err != nil {
			return connStr
		}
		q := u.Query()
		q.Set("connect_timeout", value)
		u.RawQuery = q.Encode()
		return u.String()
	}
	return strings.TrimSpace(connStr) + " connect_timeout=" + value
}

func isURL(connStr string) bool {
	return strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://")
}

// hasParam reports whether a URL or key=value connection string sets key.
func hasParam(connStr, key string) bool {
	if isURL(connStr) {
		u, err := url.Parse(connStr)
		if err != nil {
			return false
		}
		for k := range u.Query() {
			if strings.EqualFold(k, key) {
				return true
			}
		}
		return false
	}
	for _, part := range strings.Fields(connStr) {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) == 2 && strings.EqualFold(kv[0], key) {
			return true
		}
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL CHECK (role IN ('admin', 'user')),
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS user_settings (
		user_id BIGINT PRIMARY KEY REFERENCES users(id),
		default_hours_per_day NUMERIC(6,2) NOT NULL DEFAULT 8.5,
		employment_percentage INTEGER NOT NULL DEFAULT 100,
		vacation_hours NUMERIC(8,2) NOT NULL DEFAULT 212.50,
		start_date DATE
	);

	CREATE TABLE IF NOT EXISTS projects (
		project_number TEXT PRIMARY KEY,
		project_name TEXT NOT NULL,
		description TEXT
	);

	CREATE TABLE IF NOT EXISTS sia_phases (
		id BIGSERIAL PRIMARY KEY,
		phase_number INTEGER NOT NULL,
		phase_name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS user_projects (
		user_id BIGINT NOT NULL REFERENCES users(id),
		project_number TEXT NOT NULL REFERENCES projects(project_number),
		PRIMARY KEY (user_id, project_number)
	);

	CREATE TABLE IF NOT EXISTS project_sia_phases (
		project_number TEXT NOT NULL REFERENCES projects(project_number),
		phase_name TEXT NOT NULL REFERENCES sia_phases(phase_name),
		soll_stunden NUMERIC(10,2) NOT NULL,
		PRIMARY KEY (project_number, phase_name)
	);

	CREATE TABLE IF NOT EXISTS time_entries (
		id TEXT PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		project_number TEXT NOT NULL REFERENCES projects(project_number),
		phase_id BIGINT REFERENCES sia_phases(id),
		hours NUMERIC(6,2) NOT NULL CHECK (hours >= 0),
		entry_date DATE NOT NULL,
		activity TEXT NOT NULL,
		note TEXT,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_time_entries_user_date
		ON time_entries(user_id, entry_date);
	CREATE INDEX IF NOT EXISTS idx_time_entries_project_date
		ON time_entries(project_number, entry_date);
	CREATE INDEX IF NOT EXISTS idx_time_entries_user_activity
		ON time_entries(user_id, activity);
`
