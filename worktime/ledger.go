/*
ledger.go - Validated writes in front of the Ledger Store

PURPOSE:
  The engine only reads. Everything that changes the data it reads goes
  through Ledger so the invariants the views rely on hold at write time:

  - hours are never negative and carry at most two decimal places,
    the precision both SQL stores keep
  - every entry has a user, project, date and activity
  - entries on the internal project "0000" carry no phase; entries on
    any other project name a phase from the catalog
  - settings and phase targets are written with one atomic upsert

DUPLICATES:
  Several entries for the same user/project/phase/date are allowed and
  summed by every view. ReplaceDay is the explicit way to overwrite a day:
  it deletes the user's entries for that date and inserts the new ones in
  one transaction.
*/
package worktime

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Ledger struct {
	Store  LedgerStore
	Logger *zap.Logger
}

func NewLedger(store LedgerStore, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{Store: store, Logger: logger}
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

// RecordEntry validates and appends one entry, assigning an ID when empty.
func (l *Ledger) RecordEntry(ctx context.Context, entry TimeEntry) (TimeEntry, error) {
	catalog, err := l.Store.PhaseCatalog(ctx)
	if err != nil {
		return entry, &DataAccessError{Op: "phase catalog", Err: err}
	}
	if err := validateEntry(catalog, entry); err != nil {
		return entry, err
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if err := l.Store.AppendEntry(ctx, entry); err != nil {
		return entry, writeFailed("record entry", err)
	}
	l.Logger.Debug("time entry recorded",
		zap.String("id", entry.ID),
		zap.Int64("user_id", int64(entry.UserID)),
		zap.String("project", string(entry.ProjectNumber)),
		zap.String("date", entry.Date.String()),
		zap.String("hours", entry.Hours.String()),
	)
	return entry, nil
}

// ReplaceDay overwrites all of a user's entries on date. The user and
// date of every replacement are forced to the given values.
func (l *Ledger) ReplaceDay(ctx context.Context, userID UserID, date Date, entries []TimeEntry) ([]TimeEntry, error) {
	catalog, err := l.Store.PhaseCatalog(ctx)
	if err != nil {
		return nil, &DataAccessError{Op: "phase catalog", Err: err}
	}

	out := make([]TimeEntry, len(entries))
	for i, entry := range entries {
		entry.UserID = userID
		entry.Date = date
		if err := validateEntry(catalog, entry); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		out[i] = entry
	}

	if err := l.Store.ReplaceDay(ctx, userID, date, out); err != nil {
		return nil, writeFailed("replace day "+date.String(), err)
	}
	return out, nil
}

func (l *Ledger) DeleteEntry(ctx context.Context, id string) error {
	if err := l.Store.DeleteEntry(ctx, id); err != nil {
		return writeFailed("delete entry "+id, err)
	}
	return nil
}

func validateEntry(catalog []SiaPhase, e TimeEntry) error {
	switch {
	case e.UserID == 0:
		return &EntryValidationError{Field: "user_id", Message: "is required"}
	case e.ProjectNumber == "":
		return &EntryValidationError{Field: "project_number", Message: "is required"}
	case e.Date.IsZero():
		return &EntryValidationError{Field: "entry_date", Message: "is required"}
	case e.Activity == "":
		return &EntryValidationError{Field: "activity", Message: "is required"}
	case e.Hours.IsNegative():
		return &EntryValidationError{Field: "hours", Message: "must not be negative"}
	case !fitsScale(e.Hours):
		return &EntryValidationError{Field: "hours", Message: "must have at most 2 decimal places"}
	}

	if e.ProjectNumber.IsInternal() {
		if e.PhaseID != nil {
			return &EntryValidationError{Field: "phase_id", Message: "must be empty for the internal project"}
		}
		return nil
	}
	if e.PhaseID == nil {
		return &EntryValidationError{Field: "phase_id", Message: "is required for project " + string(e.ProjectNumber)}
	}
	for _, p := range catalog {
		if p.ID == *e.PhaseID {
			return nil
		}
	}
	return &EntryValidationError{Field: "phase_id", Message: fmt.Sprintf("%d is not in the phase catalog", *e.PhaseID)}
}

// =============================================================================
// SETTINGS AND TARGETS
// =============================================================================

// SaveSettings upserts a user's contract.
func (l *Ledger) SaveSettings(ctx context.Context, s UserSettings) error {
	switch {
	case s.UserID == 0:
		return fmt.Errorf("%w: user_id is required", ErrInvalidSettings)
	case s.DefaultHoursPerDay.IsNegative():
		return fmt.Errorf("%w: default_hours_per_day must not be negative", ErrInvalidSettings)
	case !fitsScale(s.DefaultHoursPerDay):
		return fmt.Errorf("%w: default_hours_per_day must have at most 2 decimal places", ErrInvalidSettings)
	case s.EmploymentPercentage < 0:
		return fmt.Errorf("%w: employment_percentage must not be negative", ErrInvalidSettings)
	case s.VacationHours.IsNegative():
		return fmt.Errorf("%w: vacation_hours must not be negative", ErrInvalidSettings)
	case !fitsScale(s.VacationHours):
		return fmt.Errorf("%w: vacation_hours must have at most 2 decimal places", ErrInvalidSettings)
	}
	if err := l.Store.SaveSettings(ctx, s); err != nil {
		return writeFailed("save settings", err)
	}
	l.Logger.Info("user settings saved", zap.Int64("user_id", int64(s.UserID)))
	return nil
}

// SaveTarget upserts the target hours of one project phase.
func (l *Ledger) SaveTarget(ctx context.Context, t ProjectPhaseTarget) error {
	if t.ProjectNumber.IsInternal() {
		return fmt.Errorf("%w: project %s has no phases", ErrInvalidEntry, t.ProjectNumber)
	}
	if t.TargetHours.IsNegative() {
		return &EntryValidationError{Field: "soll_stunden", Message: "must not be negative"}
	}
	if !fitsScale(t.TargetHours) {
		return &EntryValidationError{Field: "soll_stunden", Message: "must have at most 2 decimal places"}
	}
	catalog, err := l.Store.PhaseCatalog(ctx)
	if err != nil {
		return &DataAccessError{Op: "phase catalog", Err: err}
	}
	if _, ok := findPhase(catalog, t.PhaseName); !ok {
		return fmt.Errorf("%w: %q", ErrPhaseNotFound, t.PhaseName)
	}
	if err := l.Store.SavePhaseTarget(ctx, t); err != nil {
		return writeFailed("save target", err)
	}
	return nil
}

// HourScale is the number of decimal places stored for any hour amount.
const HourScale = 2

func fitsScale(d decimal.Decimal) bool { return d.Equal(d.Round(HourScale)) }

// writeFailed reports a store write failure as a DataAccessError, the same
// way Engine.read does. Domain errors the store reports keep their category.
func writeFailed(op string, err error) error {
	if IsNotFound(err) || IsConflict(err) || IsClientError(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &DataAccessError{Op: op, Err: err}
}
