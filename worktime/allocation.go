/*
allocation.go - Per-phase target vs. contributed hours for one project

ALGORITHM:
  1. Start from the full phase catalog: phases without hours still appear
     with zero actual and their target (or no target, shown as "--").
  2. Read the project's entries with the year/month/user/phase filters
     applied before any grouping.
  3. Group by phase, summing hours per user and overall. Duplicate entries
     are summed, never overwritten.
  4. Order by phase number, the catalog's natural sequence.
  5. Entries whose phase is missing or not in the catalog are counted in a
     trailing "unassigned" row instead of being dropped.

SHAPES:
  The grouped result serves both callers without another query:
  - stacked by user (admin view): Rows[i].HoursByUser, Users()
  - self vs. others (user view):  SelfVsOthers(userID)

The internal project "0000" has no phases; its allocation is empty.
*/
package worktime

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// UnassignedPhase names the bucket for entries outside the phase catalog.
const UnassignedPhase = "unassigned"

// =============================================================================
// FILTER
// =============================================================================

// AllocationFilter narrows the entries that feed an allocation. Year is
// required; zero Month, UserID and empty Phase mean "all".
type AllocationFilter struct {
	Year   int
	Month  time.Month
	UserID UserID
	Phase  string
}

func (f AllocationFilter) Validate() error {
	if f.Year < 1 {
		return fmt.Errorf("%w: year is required", ErrInvalidFilter)
	}
	if f.Month < 0 || f.Month > time.December {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidFilter, f.Month)
	}
	return nil
}

func (f AllocationFilter) Period() Period {
	if f.Month != 0 {
		return MonthPeriod(f.Year, f.Month)
	}
	return YearPeriod(f.Year)
}

// =============================================================================
// RESULT
// =============================================================================

type AllocationRow struct {
	PhaseID     PhaseID
	PhaseNumber int
	PhaseName   string
	TargetHours *decimal.Decimal // nil when no target is configured
	HoursByUser map[UserID]decimal.Decimal
	TotalHours  decimal.Decimal
	Unassigned  bool
}

// TargetLabel renders the target, "--" when none is configured.
func (r AllocationRow) TargetLabel() string { return targetLabel(r.TargetHours) }

func targetLabel(target *decimal.Decimal) string {
	if target == nil {
		return "--"
	}
	return target.String()
}

func (r AllocationRow) UserHours(userID UserID) decimal.Decimal {
	if h, ok := r.HoursByUser[userID]; ok {
		return h
	}
	return decimal.Zero
}

type Allocation struct {
	Project ProjectNumber
	Filter  AllocationFilter
	Rows    []AllocationRow
}

// Users returns every contributing user in ascending ID order, the
// segment order of the stacked view.
func (a Allocation) Users() []UserID {
	seen := make(map[UserID]bool)
	var users []UserID
	for _, row := range a.Rows {
		for id := range row.HoursByUser {
			if !seen[id] {
				seen[id] = true
				users = append(users, id)
			}
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}

// SelfVsOthersRow highlights one user's hours against the rest of the team.
type SelfVsOthersRow struct {
	PhaseNumber int
	PhaseName   string
	TargetHours *decimal.Decimal
	SelfHours   decimal.Decimal
	OthersHours decimal.Decimal
	Unassigned  bool
}

func (r SelfVsOthersRow) TargetLabel() string { return targetLabel(r.TargetHours) }

// SelfVsOthers splits every row into userID's hours and everyone else's.
// It is only meaningful on an allocation not filtered by user.
func (a Allocation) SelfVsOthers(userID UserID) []SelfVsOthersRow {
	out := make([]SelfVsOthersRow, 0, len(a.Rows))
	for _, row := range a.Rows {
		self := row.UserHours(userID)
		out = append(out, SelfVsOthersRow{
			PhaseNumber: row.PhaseNumber,
			PhaseName:   row.PhaseName,
			TargetHours: row.TargetHours,
			SelfHours:   self,
			OthersHours: row.TotalHours.Sub(self),
			Unassigned:  row.Unassigned,
		})
	}
	return out
}

// =============================================================================
// AGGREGATOR
// =============================================================================

func (e *Engine) Allocation(ctx context.Context, project ProjectNumber, filter AllocationFilter) (Allocation, error) {
	if err := filter.Validate(); err != nil {
		return Allocation{}, err
	}
	out := Allocation{Project: project, Filter: filter, Rows: []AllocationRow{}}
	if project.IsInternal() {
		return out, nil
	}

	var (
		catalog []SiaPhase
		targets []ProjectPhaseTarget
		entries []TimeEntry
	)
	if err := e.read(ctx, "phase catalog", func(ctx context.Context) error {
		var err error
		catalog, err = e.Store.PhaseCatalog(ctx)
		return err
	}); err != nil {
		return out, err
	}

	var only *PhaseID
	if filter.Phase != "" {
		phase, ok := findPhase(catalog, filter.Phase)
		if !ok {
			return out, fmt.Errorf("%w: %q", ErrPhaseNotFound, filter.Phase)
		}
		only = &phase.ID
	}

	if err := e.read(ctx, "phase targets", func(ctx context.Context) error {
		var err error
		targets, err = e.Store.PhaseTargets(ctx, project)
		return err
	}); err != nil {
		return out, err
	}

	period := filter.Period()
	if err := e.read(ctx, "project entries", func(ctx context.Context) error {
		var err error
		entries, err = e.Store.ListEntries(ctx, EntryFilter{
			UserID:  filter.UserID,
			Project: project,
			PhaseID: only,
			Period:  &period,
		})
		return err
	}); err != nil {
		return out, err
	}

	out.Rows = AggregatePhases(catalog, targets, entries, only)
	if n := len(out.Rows); n > 0 && out.Rows[n-1].Unassigned {
		e.logger().Warn("entries outside phase catalog",
			zap.String("project", string(project)),
			zap.String("hours", out.Rows[n-1].TotalHours.String()),
		)
	}
	return out, nil
}

// AggregatePhases groups entries by catalog phase. When only is set, the
// result holds that phase alone. The entries must already be filtered to
// one project.
func AggregatePhases(catalog []SiaPhase, targets []ProjectPhaseTarget, entries []TimeEntry, only *PhaseID) []AllocationRow {
	phases := append([]SiaPhase(nil), catalog...)
	sort.SliceStable(phases, func(i, j int) bool { return phases[i].Number < phases[j].Number })

	targetByName := make(map[string]decimal.Decimal, len(targets))
	for _, t := range targets {
		targetByName[t.PhaseName] = t.TargetHours
	}

	rows := make([]AllocationRow, 0, len(phases)+1)
	index := make(map[PhaseID]int, len(phases))
	for _, p := range phases {
		if only != nil && p.ID != *only {
			continue
		}
		row := AllocationRow{
			PhaseID:     p.ID,
			PhaseNumber: p.Number,
			PhaseName:   p.Name,
			HoursByUser: make(map[UserID]decimal.Decimal),
			TotalHours:  decimal.Zero,
		}
		if t, ok := targetByName[p.Name]; ok {
			t := t
			row.TargetHours = &t
		}
		index[p.ID] = len(rows)
		rows = append(rows, row)
	}

	unassigned := AllocationRow{
		PhaseName:   UnassignedPhase,
		HoursByUser: make(map[UserID]decimal.Decimal),
		TotalHours:  decimal.Zero,
		Unassigned:  true,
	}
	hasUnassigned := false

	for _, entry := range entries {
		row := &unassigned
		if entry.PhaseID != nil {
			if i, ok := index[*entry.PhaseID]; ok {
				row = &rows[i]
			}
		}
		if row.Unassigned {
			hasUnassigned = true
		}
		row.HoursByUser[entry.UserID] = row.UserHours(entry.UserID).Add(entry.Hours)
		row.TotalHours = row.TotalHours.Add(entry.Hours)
	}

	if hasUnassigned {
		rows = append(rows, unassigned)
	}
	return rows
}

func findPhase(catalog []SiaPhase, name string) (SiaPhase, bool) {
	for _, p := range catalog {
		if p.Name == name {
			return p, true
		}
	}
	return SiaPhase{}, false
}
