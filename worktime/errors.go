/*
errors.go - Error taxonomy of the reconciliation engine

ERROR CATEGORIES:
  1. Configuration - ErrMissingSettings, ErrDegenerateDivisor. Views never
     return these; they surface as a Status on the result so the UI can
     show "not configured" instead of "0 %".
  2. Data access - DataAccessError. The store could not be read. Always
     returned, never folded into a zero balance.
  3. Client input - ErrInvalidFilter, EntryValidationError, not-found errors.

Entries whose phase is unknown to the catalog are not an error: the
allocation view reports them in an "unassigned" row.

USAGE:
  bal, err := engine.YearBalance(ctx, userID, asOf)
  if errors.Is(err, worktime.ErrDataAccess) {
      // store unreachable, show a retry hint
  }
  if bal.Status != worktime.StatusOK {
      // not configured
  }
*/
package worktime

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingSettings means the user has no settings row yet.
	ErrMissingSettings = errors.New("user settings not configured")

	// ErrDegenerateDivisor means default_hours_per_day is zero or negative.
	ErrDegenerateDivisor = errors.New("default hours per day must be positive")

	// ErrDataAccess is matched by every DataAccessError.
	ErrDataAccess = errors.New("ledger store unavailable")

	ErrInvalidFilter   = errors.New("invalid filter")
	ErrInvalidEntry    = errors.New("invalid time entry")
	ErrInvalidSettings = errors.New("invalid user settings")
	ErrUserNotFound    = errors.New("user not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrPhaseNotFound   = errors.New("phase not found")
	ErrEntryNotFound   = errors.New("time entry not found")

	// ErrConflict means a unique key (username, entry id) is already taken.
	ErrConflict = errors.New("already exists")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// DataAccessError wraps a store failure with the operation that hit it.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrDataAccess, e.Err)
}

func (e *DataAccessError) Unwrap() error { return e.Err }

func (e *DataAccessError) Is(target error) bool { return target == ErrDataAccess }

// EntryValidationError names the offending field of a rejected write.
type EntryValidationError struct {
	Field   string
	Message string
}

func (e *EntryValidationError) Error() string {
	return fmt.Sprintf("%v: %s %s", ErrInvalidEntry, e.Field, e.Message)
}

func (e *EntryValidationError) Unwrap() error { return ErrInvalidEntry }

// =============================================================================
// STATUS - Fail-soft outcome carried by every view
// =============================================================================

type Status string

const (
	StatusOK              Status = "ok"
	StatusNotConfigured   Status = "not_configured"
	StatusInvalidSettings Status = "invalid_settings"
)

// Err maps the status back to its sentinel, nil for StatusOK.
func (s Status) Err() error {
	switch s {
	case StatusNotConfigured:
		return ErrMissingSettings
	case StatusInvalidSettings:
		return ErrDegenerateDivisor
	default:
		return nil
	}
}

func statusFor(err error) Status {
	switch {
	case errors.Is(err, ErrMissingSettings):
		return StatusNotConfigured
	case errors.Is(err, ErrDegenerateDivisor):
		return StatusInvalidSettings
	default:
		return StatusOK
	}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsUndefined reports configuration errors that make a ratio undefined.
func IsUndefined(err error) bool {
	return errors.Is(err, ErrMissingSettings) || errors.Is(err, ErrDegenerateDivisor)
}

func IsDataAccess(err error) bool { return errors.Is(err, ErrDataAccess) }

func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidFilter) ||
		errors.Is(err, ErrInvalidEntry) ||
		errors.Is(err, ErrInvalidSettings)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrProjectNotFound) ||
		errors.Is(err, ErrPhaseNotFound) ||
		errors.Is(err, ErrEntryNotFound)
}

func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
