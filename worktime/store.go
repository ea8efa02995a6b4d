/*
store.go - Persistence interface of the Ledger Store

PURPOSE:
  Defines the boundary between the reconciliation engine and the
  relational database. The engine only reads; validated writes go through
  Ledger (ledger.go).

KEY INTERFACES:
  Store:       Reads used by every view (settings, entries, catalog, targets)
  Writer:      Upserts and entry writes
  LedgerStore: Both

CONTRACT:
  - GetSettings returns (nil, nil) when the user has no settings row.
  - ListEntries/SumHours never merge duplicate entries; SumHours is the
    exact decimal sum of every matching row.
  - SaveSettings and SavePhaseTarget are single atomic upserts
    (insert-on-conflict-update), never select-then-branch.
  - ReplaceDay deletes a user's entries for one date and inserts the
    replacements in one transaction.
  - Implementations release rows and transactions on every return path.

IMPLEMENTATIONS:
  - store/sqlstore: database/sql, used by store/sqlite and store/postgres
  - worktime/store: in-memory, for tests
*/
package worktime

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE - Reads
// =============================================================================

type Store interface {
	// GetSettings returns the user's settings, or nil when none were saved.
	GetSettings(ctx context.Context, userID UserID) (*UserSettings, error)

	// ListEntries returns matching entries ordered by date.
	ListEntries(ctx context.Context, filter EntryFilter) ([]TimeEntry, error)

	// SumHours returns the total hours of matching entries, zero when none match.
	SumHours(ctx context.Context, filter EntryFilter) (decimal.Decimal, error)

	// PhaseCatalog returns every phase ordered by phase number.
	PhaseCatalog(ctx context.Context) ([]SiaPhase, error)

	// PhaseTargets returns the configured targets of one project.
	PhaseTargets(ctx context.Context, project ProjectNumber) ([]ProjectPhaseTarget, error)
}

// =============================================================================
// WRITER - Upserts and entry writes
// =============================================================================

type Writer interface {
	SaveSettings(ctx context.Context, settings UserSettings) error
	SavePhaseTarget(ctx context.Context, target ProjectPhaseTarget) error
	AppendEntry(ctx context.Context, entry TimeEntry) error
	ReplaceDay(ctx context.Context, userID UserID, date Date, entries []TimeEntry) error
	DeleteEntry(ctx context.Context, id string) error
}

type LedgerStore interface {
	Store
	Writer
}
