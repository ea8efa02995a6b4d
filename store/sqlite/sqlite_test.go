package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timearch/engine/store/sqlite"
	"github.com/timearch/engine/store/sqlstore"
	"github.com/timearch/engine/worktime"
)

func newStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	store, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(y int, m time.Month, d int) worktime.Date { return worktime.NewDate(y, m, d) }

func phaseNamed(t *testing.T, store *sqlstore.Store, name string) worktime.PhaseID {
	t.Helper()
	catalog, err := store.PhaseCatalog(context.Background())
	require.NoError(t, err)
	for _, p := range catalog {
		if p.Name == name {
			return p.ID
		}
	}
	t.Fatalf("phase %s not seeded", name)
	return 0
}

func TestMigrate_SeedsCatalogOnce(t *testing.T) {
	// GIVEN: A migrated database
	store := newStore(t)
	ctx := context.Background()

	// WHEN: Migrating a second time
	require.NoError(t, store.Migrate(ctx))

	// THEN: The catalog and internal project exist exactly once
	catalog, err := store.PhaseCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, catalog, 4)
	assert.Equal(t, 2, catalog[0].Number)
	assert.Equal(t, "Vorstudien", catalog[0].Name)
	assert.Equal(t, "Realisierung", catalog[3].Name)

	projects, err := store.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, worktime.InternalProject, projects[0].Number)
	assert.Equal(t, "Büro Intern", projects[0].Name)
}

func TestSettings_Upsert(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	user, err := store.CreateUser(ctx, "anna", worktime.RoleUser)
	require.NoError(t, err)

	got, err := store.GetSettings(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "no settings saved yet")

	s := worktime.DefaultSettings(user.ID)
	require.NoError(t, store.SaveSettings(ctx, s))

	start := date(2024, 3, 1)
	s.EmploymentPercentage = 80
	s.DefaultHoursPerDay = dec("8.25")
	s.StartDate = &start
	require.NoError(t, store.SaveSettings(ctx, s))

	got, err = store.GetSettings(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 80, got.EmploymentPercentage)
	assert.True(t, dec("8.25").Equal(got.DefaultHoursPerDay))
	assert.True(t, dec("212.5").Equal(got.VacationHours))
	require.NotNil(t, got.StartDate)
	assert.Equal(t, start, *got.StartDate)
}

func TestEntries_FilterAndSum(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	user, err := store.CreateUser(ctx, "anna", worktime.RoleUser)
	require.NoError(t, err)
	require.NoError(t, store.SaveProject(ctx, worktime.Project{Number: "1001", Name: "Schulhaus"}))
	vorstudien := phaseNamed(t, store, "Vorstudien")

	ledger := worktime.NewLedger(store, nil)
	for _, e := range []worktime.TimeEntry{
		{UserID: user.ID, ProjectNumber: "1001", PhaseID: &vorstudien, Hours: dec("0.1"), Date: date(2024, 1, 3), Activity: "Planung"},
		{UserID: user.ID, ProjectNumber: "1001", PhaseID: &vorstudien, Hours: dec("0.2"), Date: date(2024, 1, 3), Activity: "Planung"},
		{UserID: user.ID, ProjectNumber: worktime.InternalProject, Hours: dec("8.5"), Date: date(2024, 1, 4), Activity: worktime.ActivityVacation, Note: "Skiferien"},
		{UserID: user.ID, ProjectNumber: worktime.InternalProject, Hours: dec("4"), Date: date(2023, 12, 29), Activity: "Admin"},
	} {
		_, err := ledger.RecordEntry(ctx, e)
		require.NoError(t, err)
	}

	year := worktime.YearPeriod(2024)
	total, err := store.SumHours(ctx, worktime.EntryFilter{UserID: user.ID, Period: &year})
	require.NoError(t, err)
	assert.True(t, dec("8.8").Equal(total), "got %s", total)

	onPhase, err := store.ListEntries(ctx, worktime.EntryFilter{Project: "1001", PhaseID: &vorstudien})
	require.NoError(t, err)
	require.Len(t, onPhase, 2)
	assert.Equal(t, date(2024, 1, 3), onPhase[0].Date)

	vacation, err := store.ListEntries(ctx, worktime.EntryFilter{UserID: user.ID, Activity: worktime.ActivityVacation})
	require.NoError(t, err)
	require.Len(t, vacation, 1)
	assert.Nil(t, vacation[0].PhaseID)
	assert.Equal(t, "Skiferien", vacation[0].Note)

	all, err := store.ListEntries(ctx, worktime.EntryFilter{})
	require.NoError(t, err)
	assert.Equal(t, date(2023, 12, 29), all[0].Date, "ordered by date")
}

func TestEntries_ReplaceDayAndDelete(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	user, err := store.CreateUser(ctx, "anna", worktime.RoleUser)
	require.NoError(t, err)
	ledger := worktime.NewLedger(store, nil)
	day := date(2024, 2, 5)

	first, err := ledger.RecordEntry(ctx, worktime.TimeEntry{
		UserID: user.ID, ProjectNumber: worktime.InternalProject, Hours: dec("3"), Date: day, Activity: "Admin",
	})
	require.NoError(t, err)

	_, err = ledger.ReplaceDay(ctx, user.ID, day, []worktime.TimeEntry{
		{ProjectNumber: worktime.InternalProject, Hours: dec("5"), Activity: "Admin"},
		{ProjectNumber: worktime.InternalProject, Hours: dec("3.5"), Activity: "Weiterbildung"},
	})
	require.NoError(t, err)

	_, err = store.GetEntry(ctx, first.ID)
	assert.ErrorIs(t, err, worktime.ErrEntryNotFound)

	entries, err := store.ListEntries(ctx, worktime.EntryFilter{UserID: user.ID})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.NoError(t, store.DeleteEntry(ctx, entries[0].ID))
	assert.ErrorIs(t, store.DeleteEntry(ctx, entries[0].ID), worktime.ErrEntryNotFound)
}

func TestEntries_DuplicateIDConflicts(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	user, err := store.CreateUser(ctx, "anna", worktime.RoleUser)
	require.NoError(t, err)
	e := worktime.TimeEntry{
		ID: "fixed-id", UserID: user.ID, ProjectNumber: worktime.InternalProject,
		Hours: dec("1"), Date: date(2024, 2, 5), Activity: "Admin",
	}

	require.NoError(t, store.AppendEntry(ctx, e))
	err = store.AppendEntry(ctx, e)

	assert.ErrorIs(t, err, worktime.ErrConflict)
}

func TestEntries_UnknownUserRejected(t *testing.T) {
	store := newStore(t)

	err := store.AppendEntry(context.Background(), worktime.TimeEntry{
		UserID: 99, ProjectNumber: worktime.InternalProject,
		Hours: dec("1"), Date: date(2024, 2, 5), Activity: "Admin",
	})

	assert.ErrorIs(t, err, worktime.ErrInvalidEntry)
}

func TestEntries_NegativeHoursRejectedBySchema(t *testing.T) {
	// GIVEN: A write that bypasses the ledger's validation
	store := newStore(t)
	ctx := context.Background()
	user, err := store.CreateUser(ctx, "anna", worktime.RoleUser)
	require.NoError(t, err)

	err = store.AppendEntry(ctx, worktime.TimeEntry{
		UserID: user.ID, ProjectNumber: worktime.InternalProject,
		Hours: dec("-0.5"), Date: date(2024, 2, 5), Activity: "Admin",
	})

	// THEN: The table constraint refuses it, as it does on PostgreSQL
	assert.ErrorIs(t, err, worktime.ErrInvalidEntry)
	total, err := store.SumHours(ctx, worktime.EntryFilter{UserID: user.ID})
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestUsersAndAssignments(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	anna, err := store.CreateUser(ctx, "anna", worktime.RoleAdmin)
	require.NoError(t, err)
	ben, err := store.CreateUser(ctx, "ben", worktime.RoleUser)
	require.NoError(t, err)
	assert.NotEqual(t, anna.ID, ben.ID)

	_, err = store.CreateUser(ctx, "anna", worktime.RoleUser)
	assert.ErrorIs(t, err, worktime.ErrConflict)

	_, err = store.GetUser(ctx, 999)
	assert.ErrorIs(t, err, worktime.ErrUserNotFound)

	require.NoError(t, store.SaveProject(ctx, worktime.Project{Number: "1001", Name: "Schulhaus"}))
	require.NoError(t, store.AssignUser(ctx, ben.ID, "1001"))
	require.NoError(t, store.AssignUser(ctx, ben.ID, "1001"))

	projects, err := store.UserProjects(ctx, ben.ID)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, worktime.InternalProject, projects[0].Number)

	members, err := store.ProjectUsers(ctx, "1001")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "ben", members[0].Username)

	require.NoError(t, store.DeleteUser(ctx, ben.ID))
	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestEngine_OverSQLite(t *testing.T) {
	// GIVEN: Two users booking on one project, with targets
	store := newStore(t)
	ctx := context.Background()
	anna, err := store.CreateUser(ctx, "anna", worktime.RoleUser)
	require.NoError(t, err)
	ben, err := store.CreateUser(ctx, "ben", worktime.RoleUser)
	require.NoError(t, err)
	require.NoError(t, store.SaveProject(ctx, worktime.Project{Number: "1001", Name: "Schulhaus"}))

	ledger := worktime.NewLedger(store, nil)
	start := date(2024, 1, 1)
	settings := worktime.DefaultSettings(anna.ID)
	settings.StartDate = &start
	require.NoError(t, ledger.SaveSettings(ctx, settings))
	require.NoError(t, ledger.SaveTarget(ctx, worktime.ProjectPhaseTarget{
		ProjectNumber: "1001", PhaseName: "Projektierung", TargetHours: dec("100"),
	}))

	projektierung := phaseNamed(t, store, "Projektierung")
	for _, e := range []worktime.TimeEntry{
		{UserID: anna.ID, ProjectNumber: "1001", PhaseID: &projektierung, Hours: dec("30"), Date: date(2024, 1, 2), Activity: "Planung"},
		{UserID: anna.ID, ProjectNumber: "1001", PhaseID: &projektierung, Hours: dec("12.5"), Date: date(2024, 1, 5), Activity: "Planung"},
		{UserID: ben.ID, ProjectNumber: "1001", PhaseID: &projektierung, Hours: dec("20"), Date: date(2024, 1, 3), Activity: "Planung"},
	} {
		_, err := ledger.RecordEntry(ctx, e)
		require.NoError(t, err)
	}

	engine := worktime.NewEngine(store, nil)

	// THEN: Anna is exactly on schedule after the first week
	year, err := engine.YearBalance(ctx, anna.ID, date(2024, 1, 5))
	require.NoError(t, err)
	assert.True(t, dec("42.5").Equal(year.ExpectedHours))
	assert.True(t, year.NetHours.IsZero(), "got %s", year.NetHours)

	// AND: The allocation shows both users against the target
	alloc, err := engine.Allocation(ctx, "1001", worktime.AllocationFilter{Year: 2024})
	require.NoError(t, err)
	require.Len(t, alloc.Rows, 4)
	row := alloc.Rows[1]
	assert.Equal(t, "Projektierung", row.PhaseName)
	assert.Equal(t, "100", row.TargetLabel())
	assert.True(t, dec("62.5").Equal(row.TotalHours))
	assert.True(t, dec("42.5").Equal(row.UserHours(anna.ID)))
	assert.Equal(t, "--", alloc.Rows[0].TargetLabel())

	// AND: Ben has no settings, so his views degrade
	daily, err := engine.DailyBalance(ctx, ben.ID, date(2024, 1, 3))
	require.NoError(t, err)
	assert.Equal(t, worktime.StatusNotConfigured, daily.Status)
}

func TestReset_KeepsCatalog(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	_, err := store.CreateUser(ctx, "anna", worktime.RoleUser)
	require.NoError(t, err)
	require.NoError(t, store.SaveProject(ctx, worktime.Project{Number: "1001", Name: "Schulhaus"}))

	require.NoError(t, store.Reset(ctx))

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
	projects, err := store.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 1)
	catalog, err := store.PhaseCatalog(ctx)
	require.NoError(t, err)
	assert.Len(t, catalog, 4)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, ":memory:?_foreign_keys=on&_busy_timeout=5000", sqlite.DSN(":memory:"))
	assert.Equal(t, "data.db?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", sqlite.DSN("data.db"))
	assert.Equal(t, "data.db?cache=shared&_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", sqlite.DSN("data.db?cache=shared"))
}
