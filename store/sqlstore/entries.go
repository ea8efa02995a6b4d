package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/timearch/engine/worktime"
)

// =============================================================================
// TIME ENTRIES
// =============================================================================

const entryColumns = `id, user_id, project_number, phase_id, hours, entry_date, activity, note`

func (s *Store) ListEntries(ctx context.Context, filter worktime.EntryFilter) ([]worktime.TimeEntry, error) {
	where, args := entryWhere(filter)
	rows, err := s.query(ctx, `
		SELECT `+entryColumns+`
		FROM time_entries`+where+`
		ORDER BY entry_date, created_at`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []worktime.TimeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SumHours adds up the hours of matching entries.
func (s *Store) SumHours(ctx context.Context, filter worktime.EntryFilter) (decimal.Decimal, error) {
	where, args := entryWhere(filter)
	rows, err := s.query(ctx, `SELECT hours FROM time_entries`+where, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("query hours: %w", err)
	}
	return sumRows(rows)
}

func (s *Store) AppendEntry(ctx context.Context, e worktime.TimeEntry) error {
	return s.insertEntry(ctx, s.db, e)
}

// ReplaceDay deletes the user's entries for date and inserts the new ones
// in one transaction.
func (s *Store) ReplaceDay(ctx context.Context, userID worktime.UserID, date worktime.Date, entries []worktime.TimeEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`
		DELETE FROM time_entries
		WHERE user_id = ? AND entry_date = ?`),
		int64(userID), date,
	); err != nil {
		return fmt.Errorf("delete day: %w", err)
	}
	for _, e := range entries {
		if err := s.insertEntry(ctx, tx, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM time_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("entry %s: %w", id, worktime.ErrEntryNotFound)
	}
	return nil
}

// GetEntry returns one entry by ID.
func (s *Store) GetEntry(ctx context.Context, id string) (*worktime.TimeEntry, error) {
	rows, err := s.query(ctx, `SELECT `+entryColumns+` FROM time_entries WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("query entry: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("entry %s: %w", id, worktime.ErrEntryNotFound)
	}
	e, err := scanEntry(rows)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) insertEntry(ctx context.Context, db execer, e worktime.TimeEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := db.ExecContext(ctx, s.rebind(`
		INSERT INTO time_entries
		(id, user_id, project_number, phase_id, hours, entry_date, activity, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID,
		int64(e.UserID),
		string(e.ProjectNumber),
		nullPhase(e.PhaseID),
		e.Hours,
		e.Date,
		e.Activity,
		nullString(e.Note),
		now(),
	)
	if err != nil {
		return s.translate("entry "+e.ID, err)
	}
	return nil
}

func scanEntry(rows *sql.Rows) (worktime.TimeEntry, error) {
	var (
		e     worktime.TimeEntry
		phase sql.NullInt64
		note  sql.NullString
	)
	if err := rows.Scan(&e.ID, &e.UserID, &e.ProjectNumber, &phase, &e.Hours, &e.Date, &e.Activity, &note); err != nil {
		return e, fmt.Errorf("scan entry: %w", err)
	}
	if phase.Valid {
		id := worktime.PhaseID(phase.Int64)
		e.PhaseID = &id
	}
	e.Note = note.String
	return e, nil
}

// entryWhere pushes an EntryFilter down as a WHERE clause.
func entryWhere(f worktime.EntryFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.UserID != 0 {
		conds = append(conds, "user_id = ?")
		args = append(args, int64(f.UserID))
	}
	if f.Project != "" {
		conds = append(conds, "project_number = ?")
		args = append(args, string(f.Project))
	}
	if f.PhaseID != nil {
		conds = append(conds, "phase_id = ?")
		args = append(args, int64(*f.PhaseID))
	}
	if f.Activity != "" {
		conds = append(conds, "activity = ?")
		args = append(args, f.Activity)
	}
	if f.Period != nil {
		conds = append(conds, "entry_date >= ? AND entry_date <= ?")
		args = append(args, f.Period.Start, f.Period.End)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "\n\t\tWHERE " + strings.Join(conds, " AND "), args
}
