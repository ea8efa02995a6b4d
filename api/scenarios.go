/*
scenarios.go - Demo scenarios for the reconciliation engine

PURPOSE:
  Loads predefined demo data so the balance and allocation views can be
  explored without typing in a year of time entries. Each scenario resets
  the database (keeping the phase catalog and project 0000) and then goes
  through the same Ledger writes the API uses, so demo data is validated
  like real data.

SCENARIOS:
  first-week       Full-time user, first week of 2024, 2.5 h ahead
  part-time        60 % contract starting mid-year
  vacation-overdue 20 vacation days assigned, 25 taken
  project-team     Three users booking phases of a school building

USAGE:
  POST /api/scenarios/load {"scenario_id": "project-team"}
  timearch demo project-team

SEE ALSO:
  - handlers.go: Handler
  - cmd/timearch/main.go: demo command
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/timearch/engine/store/sqlstore"
	"github.com/timearch/engine/worktime"
)

var ErrUnknownScenario = errors.New("unknown scenario")

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "first-week",
		Name:        "First Week",
		Description: "Full-time user, 45 h logged in the first five workdays of 2024 (2.5 h ahead)",
	},
	{
		ID:          "part-time",
		Name:        "Part-Time Contract",
		Description: "60 % contract starting 2024-07-01, three days a week",
	},
	{
		ID:          "vacation-overdue",
		Name:        "Vacation Overdrawn",
		Description: "170 h (20 days) vacation assigned, 25 days taken",
	},
	{
		ID:          "project-team",
		Name:        "Project Team",
		Description: "Three users on project 2301 with SIA phase targets",
	},
}

// Scenarios lists the demo scenarios.
func Scenarios() []ScenarioDTO {
	out := make([]ScenarioDTO, len(scenarios))
	copy(out, scenarios)
	return out
}

type scenarioLoader func(context.Context, *seeder) error

var loaders = map[string]scenarioLoader{
	"first-week":       loadFirstWeek,
	"part-time":        loadPartTime,
	"vacation-overdue": loadVacationOverdue,
	"project-team":     loadProjectTeam,
}

// Seed resets the store and loads scenario id. A loader that fails halfway
// is followed by a second reset, so the database is left empty rather than
// partially seeded.
func Seed(ctx context.Context, store *sqlstore.Store, ledger *worktime.Ledger, id string) error {
	load, ok := loaders[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownScenario, id)
	}

	if err := store.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	s := &seeder{store: store, ledger: ledger}
	if err := load(ctx, s); err != nil {
		if resetErr := store.Reset(ctx); resetErr != nil {
			return fmt.Errorf("scenario %s: %w (cleanup failed: %v)", id, err, resetErr)
		}
		return fmt.Errorf("scenario %s: %w", id, err)
	}
	return nil
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Scenarios())
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decode(w, r, &req) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.currentScenario = ""
	if err := Seed(r.Context(), h.Store, h.Ledger, req.ScenarioID); err != nil {
		if errors.Is(err, ErrUnknownScenario) {
			writeError(w, http.StatusBadRequest, "Unknown scenario", err)
			return
		}
		h.fail(w, "Failed to load scenario", err)
		return
	}
	h.currentScenario = req.ScenarioID
	h.logger().Info("scenario loaded", zap.String("scenario", req.ScenarioID))

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data except the phase catalog and project 0000.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		h.fail(w, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadFirstWeek(ctx context.Context, s *seeder) error {
	anna, err := s.user(ctx, "anna", worktime.RoleUser, contract("8.5", 100, "212.5", date(2024, time.January, 1)))
	if err != nil {
		return err
	}
	// 8.5 h Monday to Thursday, 11 h on Friday.
	for day := 1; day <= 4; day++ {
		if err := s.internal(ctx, anna, date(2024, time.January, day), "8.5", "Admin"); err != nil {
			return err
		}
	}
	return s.internal(ctx, anna, date(2024, time.January, 5), "11", "Admin")
}

func loadPartTime(ctx context.Context, s *seeder) error {
	ben, err := s.user(ctx, "ben", worktime.RoleUser, contract("8.4", 60, "100.8", date(2024, time.July, 1)))
	if err != nil {
		return err
	}
	// Three full days a week through July.
	for d := date(2024, time.July, 1); !d.After(date(2024, time.July, 31)); d = d.AddDays(1) {
		switch d.Weekday() {
		case time.Monday, time.Tuesday, time.Wednesday:
			if err := s.internal(ctx, ben, d, "8.4", "Büro"); err != nil {
				return err
			}
		}
	}
	return nil
}

func loadVacationOverdue(ctx context.Context, s *seeder) error {
	clara, err := s.user(ctx, "clara", worktime.RoleUser, contract("8.5", 100, "170", date(2024, time.January, 1)))
	if err != nil {
		return err
	}
	// Five weeks of vacation: 25 workdays from 2024-07-01.
	taken := 0
	for d := date(2024, time.July, 1); taken < 25; d = d.AddDays(1) {
		if d.IsWeekend() {
			continue
		}
		if err := s.internal(ctx, clara, d, "8.5", worktime.ActivityVacation); err != nil {
			return err
		}
		taken++
	}
	return nil
}

func loadProjectTeam(ctx context.Context, s *seeder) error {
	const number worktime.ProjectNumber = "2301"
	if err := s.store.SaveProject(ctx, worktime.Project{
		Number:      number,
		Name:        "Neubau Schulhaus",
		Description: "Primarschule mit Turnhalle",
	}); err != nil {
		return err
	}
	for phase, hours := range map[string]string{"Vorstudien": "40", "Projektierung": "120.5"} {
		if err := s.ledger.SaveTarget(ctx, worktime.ProjectPhaseTarget{
			ProjectNumber: number,
			PhaseName:     phase,
			TargetHours:   decimal.RequireFromString(hours),
		}); err != nil {
			return err
		}
	}

	catalog, err := s.store.PhaseCatalog(ctx)
	if err != nil {
		return err
	}
	phases := make(map[string]worktime.PhaseID, len(catalog))
	for _, p := range catalog {
		phases[p.Name] = p.ID
	}

	team := []struct {
		name  string
		role  worktime.Role
		phase string
		hours string
	}{
		{"dora", worktime.RoleAdmin, "Vorstudien", "6"},
		{"emil", worktime.RoleUser, "Projektierung", "7.5"},
		{"fritz", worktime.RoleUser, "Projektierung", "4.25"},
	}
	for i, m := range team {
		id, err := s.user(ctx, m.name, m.role, contract("8.5", 100, "212.5", date(2024, time.January, 1)))
		if err != nil {
			return err
		}
		if err := s.store.AssignUser(ctx, id, number); err != nil {
			return err
		}
		phase := phases[m.phase]
		// Two weeks of bookings in March, staggered by user.
		for day := 4 + i; day < 18+i; day++ {
			d := date(2024, time.March, day)
			if d.IsWeekend() {
				continue
			}
			if _, err := s.ledger.RecordEntry(ctx, worktime.TimeEntry{
				UserID:        id,
				ProjectNumber: number,
				PhaseID:       &phase,
				Hours:         decimal.RequireFromString(m.hours),
				Date:          d,
				Activity:      "Planung",
			}); err != nil {
				return err
			}
		}
	}

	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

type seeder struct {
	store  *sqlstore.Store
	ledger *worktime.Ledger
}

func (s *seeder) user(ctx context.Context, name string, role worktime.Role, settings worktime.UserSettings) (worktime.UserID, error) {
	u, err := s.store.CreateUser(ctx, name, role)
	if err != nil {
		return 0, err
	}
	settings.UserID = u.ID
	if err := s.ledger.SaveSettings(ctx, settings); err != nil {
		return 0, err
	}
	return u.ID, nil
}

func (s *seeder) internal(ctx context.Context, userID worktime.UserID, d worktime.Date, hours, activity string) error {
	_, err := s.ledger.RecordEntry(ctx, worktime.TimeEntry{
		UserID:        userID,
		ProjectNumber: worktime.InternalProject,
		Hours:         decimal.RequireFromString(hours),
		Date:          d,
		Activity:      activity,
	})
	return err
}

func contract(hoursPerDay string, percent int, vacationHours string, start worktime.Date) worktime.UserSettings {
	return worktime.UserSettings{
		DefaultHoursPerDay:   decimal.RequireFromString(hoursPerDay),
		EmploymentPercentage: percent,
		VacationHours:        decimal.RequireFromString(vacationHours),
		StartDate:            &start,
	}
}

func date(y int, m time.Month, d int) worktime.Date { return worktime.NewDate(y, m, d) }
