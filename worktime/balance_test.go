package worktime_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/timearch/engine/worktime"
	"github.com/timearch/engine/worktime/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	if !dec(want).Equal(got) {
		assert.Fail(t, fmt.Sprintf("want %s, got %s", want, got), msgAndArgs...)
	}
}

func settings(userID worktime.UserID, hoursPerDay string, percent int, start *worktime.Date) worktime.UserSettings {
	return worktime.UserSettings{
		UserID:               userID,
		DefaultHoursPerDay:   dec(hoursPerDay),
		EmploymentPercentage: percent,
		VacationHours:        worktime.DefaultVacationHours,
		StartDate:            start,
	}
}

func phaseID(id int64) *worktime.PhaseID {
	p := worktime.PhaseID(id)
	return &p
}

func entry(userID worktime.UserID, project worktime.ProjectNumber, phase *worktime.PhaseID, hours string, d worktime.Date) worktime.TimeEntry {
	return worktime.TimeEntry{
		UserID:        userID,
		ProjectNumber: project,
		PhaseID:       phase,
		Hours:         dec(hours),
		Date:          d,
		Activity:      "Planung",
	}
}

type fixture struct {
	store  *store.Memory
	engine *worktime.Engine
	logs   *observer.ObservedLogs
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	mem := store.NewMemory(store.DefaultPhases()...)
	return fixture{
		store:  mem,
		engine: worktime.NewEngine(mem, zap.New(core)),
		logs:   logs,
	}
}

func (f fixture) saveSettings(t *testing.T, s worktime.UserSettings) {
	t.Helper()
	require.NoError(t, f.store.SaveSettings(context.Background(), s))
}

func (f fixture) log(t *testing.T, entries ...worktime.TimeEntry) {
	t.Helper()
	for _, e := range entries {
		require.NoError(t, f.store.AppendEntry(context.Background(), e))
	}
}

// failingStore answers every read with err.
type failingStore struct {
	worktime.Store
	err error
}

func (s failingStore) GetSettings(context.Context, worktime.UserID) (*worktime.UserSettings, error) {
	return nil, s.err
}

func (s failingStore) SumHours(context.Context, worktime.EntryFilter) (decimal.Decimal, error) {
	return decimal.Zero, s.err
}

func (s failingStore) ListEntries(context.Context, worktime.EntryFilter) ([]worktime.TimeEntry, error) {
	return nil, s.err
}

func (s failingStore) PhaseCatalog(context.Context) ([]worktime.SiaPhase, error) {
	return nil, s.err
}

func (s failingStore) PhaseTargets(context.Context, worktime.ProjectNumber) ([]worktime.ProjectPhaseTarget, error) {
	return nil, s.err
}

// =============================================================================
// ACCRUAL
// =============================================================================

func TestExpectedHours_FirstWeekOfYear(t *testing.T) {
	// GIVEN: 8.5 h/day at 100%, contract starting 2024-01-01
	start := date(2024, 1, 1)
	s := settings(1, "8.5", 100, &start)

	// WHEN: Computing expected hours up to Friday 2024-01-05
	got, err := worktime.ExpectedHours(&s, start, date(2024, 1, 5))

	// THEN: 5 workdays * 8.5 = 42.5
	require.NoError(t, err)
	assertDecimal(t, "42.5", got)
}

func TestExpectedHours_PartTime(t *testing.T) {
	s := settings(1, "8", 60, nil)

	got, err := worktime.ExpectedHours(&s, date(2024, 1, 1), date(2024, 1, 12))

	require.NoError(t, err)
	assertDecimal(t, "48", got) // 10 workdays * 8 * 0.6
}

func TestExpectedHours_ZeroPercentIsZero(t *testing.T) {
	s := settings(1, "8.5", 0, nil)

	got, err := worktime.ExpectedHours(&s, date(2024, 1, 1), date(2024, 1, 31))

	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestExpectedHours_Undefined(t *testing.T) {
	zero := settings(1, "0", 100, nil)

	got, err := worktime.ExpectedHours(&zero, date(2024, 1, 1), date(2024, 1, 31))
	assert.ErrorIs(t, err, worktime.ErrDegenerateDivisor)
	assert.True(t, got.IsZero())

	got, err = worktime.ExpectedHours(nil, date(2024, 1, 1), date(2024, 1, 31))
	assert.ErrorIs(t, err, worktime.ErrMissingSettings)
	assert.True(t, got.IsZero())
}

func TestExpectedHours_StartAfterAsOfIsZero(t *testing.T) {
	s := settings(1, "8.5", 100, nil)

	got, err := worktime.ExpectedHours(&s, date(2024, 2, 1), date(2024, 1, 15))

	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

// =============================================================================
// DAILY BALANCE
// =============================================================================

func TestDailyBalance_Deficit(t *testing.T) {
	// GIVEN: 8 h target, 6 h logged across two entries on a Wednesday
	f := newFixture(t)
	f.saveSettings(t, settings(1, "8", 100, nil))
	day := date(2024, 1, 3)
	f.log(t,
		entry(1, worktime.InternalProject, nil, "4", day),
		entry(1, "1001", phaseID(1), "2", day),
		entry(2, "1001", phaseID(1), "5", day), // other user
	)

	// WHEN: Reading the daily balance
	b, err := f.engine.DailyBalance(context.Background(), 1, day)

	// THEN: -2 h, split 25% deficit / 75% neutral
	require.NoError(t, err)
	assert.Equal(t, worktime.StatusOK, b.Status)
	assert.True(t, b.Workday)
	assertDecimal(t, "6", b.ActualHours)
	assertDecimal(t, "-2", b.NetHours)
	assertDecimal(t, "0.25", b.DeficitFraction)
	assertDecimal(t, "0.75", b.NeutralFraction)
	assertDecimal(t, "0", b.SurplusFraction)
}

func TestDailyBalance_SurplusCappedAtOne(t *testing.T) {
	f := newFixture(t)
	f.saveSettings(t, settings(1, "8", 100, nil))
	day := date(2024, 1, 3)
	f.log(t, entry(1, worktime.InternalProject, nil, "20", day))

	b, err := f.engine.DailyBalance(context.Background(), 1, day)

	require.NoError(t, err)
	assertDecimal(t, "12", b.NetHours)
	assertDecimal(t, "1", b.SurplusFraction)
	assertDecimal(t, "0", b.NeutralFraction)
}

func TestDailyBalance_FractionsSumToOne(t *testing.T) {
	day := date(2024, 1, 3)

	for _, hours := range []string{"0", "3.25", "8.5", "9", "17", "40"} {
		f := newFixture(t)
		f.saveSettings(t, settings(1, "8.5", 100, nil))
		f.log(t, entry(1, worktime.InternalProject, nil, hours, day))

		b, err := f.engine.DailyBalance(context.Background(), 1, day)
		require.NoError(t, err)

		sum := b.DeficitFraction.Add(b.NeutralFraction).Add(b.SurplusFraction)
		assertDecimal(t, "1", sum, "hours=%s", hours)
		assert.False(t, b.DeficitFraction.IsPositive() && b.SurplusFraction.IsPositive(), "hours=%s", hours)
	}
}

func TestDailyBalance_SaturdayIsNotSpecialCased(t *testing.T) {
	// GIVEN: 8 h/day, nothing logged, a Saturday
	f := newFixture(t)
	f.saveSettings(t, settings(1, "8", 100, nil))
	saturday := date(2024, 1, 6)

	// WHEN: Reading the daily balance
	b, err := f.engine.DailyBalance(context.Background(), 1, saturday)

	// THEN: 0 - 8 = -8, flagged as a non-workday for callers
	require.NoError(t, err)
	assertDecimal(t, "-8", b.NetHours)
	assert.False(t, b.Workday)
}

func TestDailyBalance_MissingSettings(t *testing.T) {
	f := newFixture(t)

	b, err := f.engine.DailyBalance(context.Background(), 1, date(2024, 1, 3))

	require.NoError(t, err)
	assert.Equal(t, worktime.StatusNotConfigured, b.Status)
	assert.ErrorIs(t, b.Status.Err(), worktime.ErrMissingSettings)
	assert.True(t, b.NetHours.IsZero())
	assert.Equal(t, 1, f.logs.FilterMessage("balance view degraded").Len())
}

func TestDailyBalance_DegenerateTarget(t *testing.T) {
	f := newFixture(t)
	f.saveSettings(t, settings(1, "0", 100, nil))

	b, err := f.engine.DailyBalance(context.Background(), 1, date(2024, 1, 3))

	require.NoError(t, err)
	assert.Equal(t, worktime.StatusInvalidSettings, b.Status)
	assert.True(t, b.DeficitFraction.IsZero())
	assert.True(t, b.NeutralFraction.IsZero())
	assert.True(t, b.SurplusFraction.IsZero())
}

// =============================================================================
// YEAR BALANCE AND EMPLOYMENT
// =============================================================================

func TestYearBalance_AheadOfSchedule(t *testing.T) {
	// GIVEN: 8.5 h/day from 2024-01-01, 45 h logged in the first week
	f := newFixture(t)
	start := date(2024, 1, 1)
	f.saveSettings(t, settings(1, "8.5", 100, &start))
	for d := 1; d <= 5; d++ {
		f.log(t, entry(1, "1001", phaseID(2), "9", date(2024, 1, d)))
	}
	f.log(t, entry(1, "1001", phaseID(2), "100", date(2023, 12, 29))) // previous year

	// WHEN: Reading the year balance as of Friday
	b, err := f.engine.YearBalance(context.Background(), 1, date(2024, 1, 5))

	// THEN: 45 - 42.5 = +2.5
	require.NoError(t, err)
	assert.Equal(t, 5, b.Accrual.Workdays)
	assertDecimal(t, "45", b.ActualHours)
	assertDecimal(t, "42.5", b.ExpectedHours)
	assertDecimal(t, "2.5", b.NetHours)
}

func TestYearBalance_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.saveSettings(t, settings(1, "8", 80, nil))
	f.log(t, entry(1, "1001", phaseID(1), "30", date(2024, 3, 4)))
	ctx := context.Background()

	first, err := f.engine.YearBalance(ctx, 1, date(2024, 3, 8))
	require.NoError(t, err)
	second, err := f.engine.YearBalance(ctx, 1, date(2024, 3, 8))
	require.NoError(t, err)

	assert.True(t, first.NetHours.Equal(second.NetHours))
	assert.True(t, first.ExpectedHours.Equal(second.ExpectedHours))
}

func TestYearBalance_MissingSettingsKeepsActual(t *testing.T) {
	f := newFixture(t)
	f.log(t, entry(1, "1001", phaseID(1), "7", date(2024, 3, 4)))

	b, err := f.engine.YearBalance(context.Background(), 1, date(2024, 3, 8))

	require.NoError(t, err)
	assert.Equal(t, worktime.StatusNotConfigured, b.Status)
	assertDecimal(t, "7", b.ActualHours)
	assert.True(t, b.NetHours.IsZero())
}

func TestEmploymentEffectiveness(t *testing.T) {
	// GIVEN: 80% contract at 8 h/day, first two weeks of 2024
	f := newFixture(t)
	f.saveSettings(t, settings(1, "8", 80, nil))
	f.log(t, entry(1, "1001", phaseID(1), "48", date(2024, 1, 8)))

	// WHEN: Expected is 10 * 8 * 0.8 = 64, actual 48
	e, err := f.engine.EmploymentEffectiveness(context.Background(), 1, date(2024, 1, 12))

	// THEN: 75% effective, under the contractual 80%
	require.NoError(t, err)
	assertDecimal(t, "64", e.ExpectedHours)
	assertDecimal(t, "75", e.ActualPercentage)
	assert.Equal(t, 80, e.ContractualPercentage)
	assert.True(t, e.UnderTarget)
}

func TestEmploymentEffectiveness_ZeroExpected(t *testing.T) {
	// GIVEN: A contract that starts after the as-of date
	f := newFixture(t)
	start := date(2024, 6, 1)
	f.saveSettings(t, settings(1, "8", 100, &start))

	e, err := f.engine.EmploymentEffectiveness(context.Background(), 1, date(2024, 1, 12))

	// THEN: 0%, no division by zero
	require.NoError(t, err)
	assert.Equal(t, worktime.StatusOK, e.Status)
	assert.True(t, e.ActualPercentage.IsZero())
}

// =============================================================================
// DATA ACCESS FAILURES
// =============================================================================

func TestViews_DataAccessFailureIsNotZero(t *testing.T) {
	// GIVEN: A store whose reads fail
	boom := errors.New("connection refused")
	engine := worktime.NewEngine(failingStore{err: boom}, nil)
	ctx := context.Background()
	day := date(2024, 1, 3)

	// THEN: Every view reports the failure instead of a zero balance
	_, err := engine.DailyBalance(ctx, 1, day)
	assert.True(t, worktime.IsDataAccess(err))
	assert.ErrorIs(t, err, boom)

	_, err = engine.YearBalance(ctx, 1, day)
	assert.True(t, worktime.IsDataAccess(err))

	_, err = engine.EmploymentEffectiveness(ctx, 1, day)
	assert.True(t, worktime.IsDataAccess(err))

	_, err = engine.VacationBalance(ctx, 1)
	assert.True(t, worktime.IsDataAccess(err))

	_, err = engine.Allocation(ctx, "1001", worktime.AllocationFilter{Year: 2024})
	var dae *worktime.DataAccessError
	require.ErrorAs(t, err, &dae)
	assert.Equal(t, "phase catalog", dae.Op)
}

func TestViews_QueryTimeout(t *testing.T) {
	engine := worktime.NewEngine(slowStore{Store: store.NewMemory()}, nil)
	engine.QueryTimeout = 10 * time.Millisecond

	_, err := engine.DailyBalance(context.Background(), 1, date(2024, 1, 3))

	assert.True(t, worktime.IsDataAccess(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type slowStore struct {
	worktime.Store
}

func (s slowStore) GetSettings(ctx context.Context, _ worktime.UserID) (*worktime.UserSettings, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// =============================================================================
// OVERVIEW
// =============================================================================

func TestOverview(t *testing.T) {
	f := newFixture(t)
	start := date(2024, 1, 1)
	f.saveSettings(t, settings(1, "8.5", 100, &start))
	f.log(t, entry(1, "1001", phaseID(1), "8.5", date(2024, 1, 5)))

	o, err := f.engine.Overview(context.Background(), 1, date(2024, 1, 5))

	require.NoError(t, err)
	assertDecimal(t, "0", o.Daily.NetHours)
	assertDecimal(t, "-34", o.Year.NetHours)
	assertDecimal(t, "20", o.Employment.ActualPercentage)
	assertDecimal(t, "25", o.Vacation.AssignedDays)
}
