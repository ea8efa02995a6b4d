/*
Package sqlstore implements worktime.LedgerStore on database/sql.

PURPOSE:
  One implementation of the Ledger Store shared by the SQLite and
  PostgreSQL backends. The backends open the connection and supply a
  Dialect (schema, placeholder style, unique-violation detection); every
  query here is written once with "?" placeholders and rebound for the
  target database.

KEY TABLES:
  users:              Accounts (admin/user)
  user_settings:      One contract row per user, upserted on user_id
  projects:           Project catalog, "0000" seeded as internal time
  sia_phases:         Fixed phase catalog, seeded at migration
  user_projects:      User to project membership
  project_sia_phases: Target hours per project phase (composite key)
  time_entries:       Logged hours; duplicates are legal and summed

NUMBERS:
  Hours are written with decimal's driver.Valuer and read back through its
  sql.Scanner. Sums are computed in Go over the selected rows so SQLite's
  floating point SUM never touches a balance.

SEE ALSO:
  - store/sqlite: SQLite dialect and Open
  - store/postgres: PostgreSQL dialect and Open
  - worktime/store.go: interface definitions
*/
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/timearch/engine/worktime"
)

// Dialect captures what differs between the supported databases.
type Dialect struct {
	Name string

	// Schema creates every table and index; it must be idempotent.
	Schema string

	// NumberedPlaceholders selects $1, $2, ... instead of ?.
	NumberedPlaceholders bool

	// IsUniqueViolation reports a unique or primary key conflict.
	IsUniqueViolation func(error) bool
}

// Store implements worktime.LedgerStore plus the admin catalog operations.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

var _ worktime.LedgerStore = (*Store)(nil)

// New wraps an open connection. Call Migrate before first use.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Dialect() string { return s.dialect.Name }

// Ping checks the connection, used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// =============================================================================
// MIGRATION
// =============================================================================

// DefaultPhases is the SIA phase catalog seeded at migration.
var DefaultPhases = []worktime.SiaPhase{
	{Number: 2, Name: "Vorstudien"},
	{Number: 3, Name: "Projektierung"},
	{Number: 4, Name: "Ausschreibung"},
	{Number: 5, Name: "Realisierung"},
}

// InternalProject is the project row seeded for office time.
var InternalProject = worktime.Project{
	Number:      worktime.InternalProject,
	Name:        "Büro Intern",
	Description: "Stunden für interne Büroaktivitäten",
}

// Migrate creates the schema and seeds the phase catalog and the internal
// project. Running it again changes nothing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.Schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	for _, p := range DefaultPhases {
		if _, err := s.exec(ctx, `
			INSERT INTO sia_phases (phase_number, phase_name)
			VALUES (?, ?)
			ON CONFLICT (phase_name) DO NOTHING`,
			p.Number, p.Name,
		); err != nil {
			return fmt.Errorf("seed phase %s: %w", p.Name, err)
		}
	}

	if _, err := s.exec(ctx, `
		INSERT INTO projects (project_number, project_name, description)
		VALUES (?, ?, ?)
		ON CONFLICT (project_number) DO NOTHING`,
		string(InternalProject.Number), InternalProject.Name, InternalProject.Description,
	); err != nil {
		return fmt.Errorf("seed internal project: %w", err)
	}
	return nil
}

// =============================================================================
// SETTINGS
// =============================================================================

func (s *Store) GetSettings(ctx context.Context, userID worktime.UserID) (*worktime.UserSettings, error) {
	var (
		out   worktime.UserSettings
		start worktime.Date
	)
	err := s.queryRow(ctx, `
		SELECT user_id, default_hours_per_day, employment_percentage, vacation_hours, start_date
		FROM user_settings
		WHERE user_id = ?`,
		int64(userID),
	).Scan(&out.UserID, &out.DefaultHoursPerDay, &out.EmploymentPercentage, &out.VacationHours, &start)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if !start.IsZero() {
		out.StartDate = &start
	}
	return &out, nil
}

// SaveSettings is a single atomic upsert keyed on user_id.
func (s *Store) SaveSettings(ctx context.Context, settings worktime.UserSettings) error {
	var start any
	if settings.StartDate != nil && !settings.StartDate.IsZero() {
		start = *settings.StartDate
	}
	_, err := s.exec(ctx, `
		INSERT INTO user_settings (user_id, default_hours_per_day, employment_percentage, vacation_hours, start_date)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			default_hours_per_day = excluded.default_hours_per_day,
			employment_percentage = excluded.employment_percentage,
			vacation_hours = excluded.vacation_hours,
			start_date = excluded.start_date`,
		int64(settings.UserID),
		settings.DefaultHoursPerDay,
		settings.EmploymentPercentage,
		settings.VacationHours,
		start,
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// =============================================================================
// PHASES AND TARGETS
// =============================================================================

func (s *Store) PhaseCatalog(ctx context.Context) ([]worktime.SiaPhase, error) {
	rows, err := s.query(ctx, `
		SELECT id, phase_number, phase_name
		FROM sia_phases
		ORDER BY phase_number`)
	if err != nil {
		return nil, fmt.Errorf("query phases: %w", err)
	}
	defer rows.Close()

	var phases []worktime.SiaPhase
	for rows.Next() {
		var p worktime.SiaPhase
		if err := rows.Scan(&p.ID, &p.Number, &p.Name); err != nil {
			return nil, err
		}
		phases = append(phases, p)
	}
	return phases, rows.Err()
}

func (s *Store) PhaseTargets(ctx context.Context, project worktime.ProjectNumber) ([]worktime.ProjectPhaseTarget, error) {
	rows, err := s.query(ctx, `
		SELECT project_number, phase_name, soll_stunden
		FROM project_sia_phases
		WHERE project_number = ?
		ORDER BY phase_name`,
		string(project),
	)
	if err != nil {
		return nil, fmt.Errorf("query targets: %w", err)
	}
	defer rows.Close()

	var targets []worktime.ProjectPhaseTarget
	for rows.Next() {
		var t worktime.ProjectPhaseTarget
		if err := rows.Scan(&t.ProjectNumber, &t.PhaseName, &t.TargetHours); err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// SavePhaseTarget upserts on (project_number, phase_name).
func (s *Store) SavePhaseTarget(ctx context.Context, t worktime.ProjectPhaseTarget) error {
	_, err := s.exec(ctx, `
		INSERT INTO project_sia_phases (project_number, phase_name, soll_stunden)
		VALUES (?, ?, ?)
		ON CONFLICT (project_number, phase_name) DO UPDATE SET
			soll_stunden = excluded.soll_stunden`,
		string(t.ProjectNumber), t.PhaseName, t.TargetHours,
	)
	if err != nil {
		return s.translate(fmt.Sprintf("target %s/%s", t.ProjectNumber, t.PhaseName), err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

func (s *Store) rebind(query string) string {
	if !s.dialect.NumberedPlaceholders {
		return query
	}
	return Rebind(query)
}

// Rebind rewrites ? placeholders to $1, $2, ... Question marks inside
// single-quoted literals are left alone.
func Rebind(query string) string {
	var (
		b       strings.Builder
		n       int
		inQuote bool
	)
	b.Grow(len(query) + 8)
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// translate maps driver errors onto the worktime taxonomy.
func (s *Store) translate(what string, err error) error {
	if s.dialect.IsUniqueViolation != nil && s.dialect.IsUniqueViolation(err) {
		return fmt.Errorf("%s: %w", what, worktime.ErrConflict)
	}
	if isForeignKeyViolation(err) {
		return &worktime.EntryValidationError{Field: "reference", Message: what + " refers to a missing row"}
	}
	if isCheckViolation(err) {
		return &worktime.EntryValidationError{Field: "value", Message: what + " violates a check constraint"}
	}
	return fmt.Errorf("%s: %w", what, err)
}

// isCheckViolation matches SQLite "CHECK constraint failed" and
// PostgreSQL "violates check constraint".
func isCheckViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "check constraint")
}

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "foreign key constraint")
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullPhase(id *worktime.PhaseID) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*id), Valid: true}
}

func sumRows(rows *sql.Rows) (decimal.Decimal, error) {
	defer rows.Close()
	total := decimal.Zero
	for rows.Next() {
		var h decimal.Decimal
		if err := rows.Scan(&h); err != nil {
			return decimal.Zero, err
		}
		total = total.Add(h)
	}
	return total, rows.Err()
}

func now() time.Time { return time.Now().UTC() }
