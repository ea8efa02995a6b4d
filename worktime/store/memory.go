// Package store provides an in-memory worktime.LedgerStore.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/timearch/engine/worktime"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	settings map[worktime.UserID]worktime.UserSettings
	entries  []worktime.TimeEntry // kept ordered by date
	phases   []worktime.SiaPhase
	targets  map[targetKey]decimal.Decimal
}

type targetKey struct {
	Project worktime.ProjectNumber
	Phase   string
}

// NewMemory returns an empty store seeded with the given phase catalog.
func NewMemory(phases ...worktime.SiaPhase) *Memory {
	return &Memory{
		settings: make(map[worktime.UserID]worktime.UserSettings),
		phases:   append([]worktime.SiaPhase(nil), phases...),
		targets:  make(map[targetKey]decimal.Decimal),
	}
}

// DefaultPhases is the standard SIA catalog.
func DefaultPhases() []worktime.SiaPhase {
	return []worktime.SiaPhase{
		{ID: 1, Number: 2, Name: "Vorstudien"},
		{ID: 2, Number: 3, Name: "Projektierung"},
		{ID: 3, Number: 4, Name: "Ausschreibung"},
		{ID: 4, Number: 5, Name: "Realisierung"},
	}
}

// =============================================================================
// READS
// =============================================================================

func (m *Memory) GetSettings(_ context.Context, userID worktime.UserID) (*worktime.UserSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.settings[userID]
	if !ok {
		return nil, nil
	}
	if s.StartDate != nil {
		start := *s.StartDate
		s.StartDate = &start
	}
	return &s, nil
}

func (m *Memory) ListEntries(_ context.Context, filter worktime.EntryFilter) ([]worktime.TimeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []worktime.TimeEntry
	for _, e := range m.entries {
		if filter.Matches(e) {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *Memory) SumHours(ctx context.Context, filter worktime.EntryFilter) (decimal.Decimal, error) {
	entries, err := m.ListEntries(ctx, filter)
	if err != nil {
		return decimal.Zero, err
	}
	return worktime.SumHours(entries), nil
}

func (m *Memory) PhaseCatalog(_ context.Context) ([]worktime.SiaPhase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := append([]worktime.SiaPhase(nil), m.phases...)
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result, nil
}

func (m *Memory) PhaseTargets(_ context.Context, project worktime.ProjectNumber) ([]worktime.ProjectPhaseTarget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []worktime.ProjectPhaseTarget
	for k, v := range m.targets {
		if k.Project == project {
			result = append(result, worktime.ProjectPhaseTarget{ProjectNumber: k.Project, PhaseName: k.Phase, TargetHours: v})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PhaseName < result[j].PhaseName })
	return result, nil
}

// =============================================================================
// WRITES
// =============================================================================

func (m *Memory) SaveSettings(_ context.Context, s worktime.UserSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[s.UserID] = s
	return nil
}

func (m *Memory) SavePhaseTarget(_ context.Context, t worktime.ProjectPhaseTarget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targets[targetKey{Project: t.ProjectNumber, Phase: t.PhaseName}] = t.TargetHours
	return nil
}

func (m *Memory) AppendEntry(_ context.Context, e worktime.TimeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(e)
}

func (m *Memory) appendLocked(e worktime.TimeEntry) error {
	for _, existing := range m.entries {
		if e.ID != "" && existing.ID == e.ID {
			return fmt.Errorf("entry %s: %w", e.ID, worktime.ErrConflict)
		}
	}

	// Binary search keeps entries ordered by date; equal dates keep insertion order.
	i := sort.Search(len(m.entries), func(i int) bool {
		return m.entries[i].Date.After(e.Date)
	})
	m.entries = append(m.entries, worktime.TimeEntry{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = e
	return nil
}

// ReplaceDay swaps a user's entries for one date. On failure the previous
// entries are restored.
func (m *Memory) ReplaceDay(_ context.Context, userID worktime.UserID, date worktime.Date, entries []worktime.TimeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := append([]worktime.TimeEntry(nil), m.entries...)
	kept := m.entries[:0:0]
	for _, e := range m.entries {
		if e.UserID == userID && e.Date.Equal(date) {
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept

	for _, e := range entries {
		if err := m.appendLocked(e); err != nil {
			m.entries = snapshot
			return err
		}
	}
	return nil
}

func (m *Memory) DeleteEntry(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, e := range m.entries {
		if e.ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("entry %s: %w", id, worktime.ErrEntryNotFound)
}
