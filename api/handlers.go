/*
handlers.go - HTTP API handlers for the work-hours reconciliation engine

PURPOSE:
  Exposes the worktime engine and ledger via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Users:
    GET    /api/users                          List users
    POST   /api/users                          Create user
    GET    /api/users/{id}                     Get user
    DELETE /api/users/{id}                     Delete user and their data
    GET    /api/users/{id}/settings            Get contract settings
    PUT    /api/users/{id}/settings            Upsert contract settings
    GET    /api/users/{id}/projects            Bookable projects (always incl. 0000)

  Entries:
    GET    /api/users/{id}/entries             List entries (?from&to&project&phase&activity&format=csv)
    POST   /api/users/{id}/entries             Record one entry
    PUT    /api/users/{id}/days/{date}         Replace all entries of one day
    GET    /api/entries/{entryID}              Get entry
    DELETE /api/entries/{entryID}              Delete entry

  Balances (?as_of=YYYY-MM-DD, default today):
    GET    /api/users/{id}/balance/daily       Daily net and bar fractions (?date)
    GET    /api/users/{id}/balance/year        Year-to-date net
    GET    /api/users/{id}/balance/employment  Effective employment percentage
    GET    /api/users/{id}/balance/vacation    Vacation days
    GET    /api/users/{id}/overview            All of the above (?format=csv)

  Projects:
    GET    /api/phases                         SIA phase catalog
    GET    /api/projects                       List projects
    POST   /api/projects                       Upsert project
    GET    /api/projects/{number}              Get project
    GET    /api/projects/{number}/entries      All entries of a project
                                               (?from&to&user&phase&activity&format=csv)
    GET    /api/projects/{number}/targets      Phase targets
    PUT    /api/projects/{number}/targets      Upsert one phase target
    PUT    /api/projects/{number}/users/{id}   Assign user
    DELETE /api/projects/{number}/users/{id}   Unassign user
    GET    /api/projects/{number}/allocation   Hours per phase and user
                                               (?year&month&user&phase&format=csv)
                                               ?self={id} splits it into one user vs. the rest

  Scenarios:
    GET    /api/scenarios                      List demo scenarios
    POST   /api/scenarios/load                 Load a demo scenario

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store:  Ledger store plus admin CRUD (users, projects, assignments)
  - Engine: Read-only balance and allocation views
  - Ledger: Validated writes

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input or filter
  - 404: User, project, phase or entry not found
  - 409: Conflict (duplicate username or entry id)
  - 503: Ledger store unavailable or timed out
  - 500: Internal errors
  Missing or degenerate settings are NOT errors on balance views: the
  view is returned with status "not_configured" or "invalid_settings".

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/timearch/engine/export"
	"github.com/timearch/engine/store/sqlstore"
	"github.com/timearch/engine/worktime"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlstore.Store
	Engine *worktime.Engine
	Ledger *worktime.Ledger
	Logger *zap.Logger

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler whose engine and ledger share store.
func NewHandler(store *sqlstore.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:  store,
		Engine: worktime.NewEngine(store, logger.Named("engine")),
		Ledger: worktime.NewLedger(store, logger.Named("ledger")),
		Logger: logger,
	}
}

func (h *Handler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

// Health pings the store.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Ledger store unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "driver": h.Store.Dialect()})
}

// =============================================================================
// USER HANDLERS
// =============================================================================

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		h.fail(w, "Failed to list users", err)
		return
	}
	dtos := make([]UserDTO, 0, len(users))
	for _, u := range users {
		dtos = append(dtos, toUserDTO(u))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Role == "" {
		req.Role = string(worktime.RoleUser)
	}

	user, err := h.Store.CreateUser(r.Context(), req.Username, worktime.Role(req.Role))
	if err != nil {
		h.fail(w, "Failed to create user", err)
		return
	}
	h.logger().Info("user created", zap.Int64("user_id", int64(user.ID)), zap.String("username", user.Username))
	writeJSON(w, http.StatusCreated, toUserDTO(user))
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(*user))
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		h.fail(w, "Invalid user", err)
		return
	}
	if err := h.Store.DeleteUser(r.Context(), userID); err != nil {
		h.fail(w, "Failed to delete user", err)
		return
	}
	h.logger().Info("user deleted", zap.Int64("user_id", int64(userID)))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	settings, err := h.Store.GetSettings(r.Context(), user.ID)
	if err != nil {
		h.fail(w, "Failed to load settings", err)
		return
	}
	if settings == nil {
		writeError(w, http.StatusNotFound, "Settings not configured", worktime.ErrMissingSettings)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(*settings))
}

func (h *Handler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	var req SaveSettingsRequest
	if !decode(w, r, &req) {
		return
	}

	settings := req.toSettings(user.ID)
	if err := h.Ledger.SaveSettings(r.Context(), settings); err != nil {
		h.fail(w, "Failed to save settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(settings))
}

func (h *Handler) ListUserProjects(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	projects, err := h.Store.UserProjects(r.Context(), user.ID)
	if err != nil {
		h.fail(w, "Failed to list projects", err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTOs(projects))
}

// =============================================================================
// ENTRY HANDLERS
// =============================================================================

func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		h.fail(w, "Invalid user", err)
		return
	}
	h.listEntries(w, r, worktime.EntryFilter{UserID: userID}, fmt.Sprintf("entries-%d.csv", userID))
}

// ListProjectEntries lists every entry booked on a project. The user,
// phase, activity and from/to query parameters narrow it.
func (h *Handler) ListProjectEntries(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadProject(w, r)
	if !ok {
		return
	}
	user, err := intQuery(r, "user")
	if err != nil {
		h.fail(w, "Invalid filter", err)
		return
	}
	base := worktime.EntryFilter{Project: p.Number, UserID: worktime.UserID(user)}
	h.listEntries(w, r, base, fmt.Sprintf("entries-%s.csv", p.Number))
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request, base worktime.EntryFilter, filename string) {
	ctx := r.Context()
	catalog, err := h.Store.PhaseCatalog(ctx)
	if err != nil {
		h.fail(w, "Failed to load phases", &worktime.DataAccessError{Op: "phase catalog", Err: err})
		return
	}
	filter, err := entryFilterQuery(r, base, catalog)
	if err != nil {
		h.fail(w, "Invalid filter", err)
		return
	}

	entries, err := h.Store.ListEntries(ctx, filter)
	if err != nil {
		h.fail(w, "Failed to list entries", &worktime.DataAccessError{Op: "list entries", Err: err})
		return
	}

	if wantsCSV(r) {
		names, err := h.userNames(ctx)
		if err != nil {
			h.fail(w, "Failed to load users", err)
			return
		}
		h.writeCSV(w, filename, func(out io.Writer) error {
			return export.EntriesCSV(out, entries, catalog, names)
		})
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTOs(entries))
}

func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	var req CreateEntryRequest
	if !decode(w, r, &req) {
		return
	}

	entry, err := h.Ledger.RecordEntry(r.Context(), req.toEntry(user.ID))
	if err != nil {
		h.fail(w, "Failed to record entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(entry))
}

func (h *Handler) ReplaceDay(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	date, err := worktime.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	var req ReplaceDayRequest
	if !decode(w, r, &req) {
		return
	}

	entries := make([]worktime.TimeEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, e.toEntry(user.ID))
	}
	saved, err := h.Ledger.ReplaceDay(r.Context(), user.ID, date, entries)
	if err != nil {
		h.fail(w, "Failed to replace day", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTOs(saved))
}

func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Store.GetEntry(r.Context(), chi.URLParam(r, "entryID"))
	if err != nil {
		h.fail(w, "Failed to load entry", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(*entry))
}

func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.Ledger.DeleteEntry(r.Context(), chi.URLParam(r, "entryID")); err != nil {
		h.fail(w, "Failed to delete entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

func (h *Handler) GetDailyBalance(w http.ResponseWriter, r *http.Request) {
	userID, date, ok := h.userAndDate(w, r, "date")
	if !ok {
		return
	}
	b, err := h.Engine.DailyBalance(r.Context(), userID, date)
	if err != nil {
		h.fail(w, "Failed to compute daily balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toDailyDTO(b))
}

func (h *Handler) GetYearBalance(w http.ResponseWriter, r *http.Request) {
	userID, asOf, ok := h.userAndDate(w, r, "as_of")
	if !ok {
		return
	}
	b, err := h.Engine.YearBalance(r.Context(), userID, asOf)
	if err != nil {
		h.fail(w, "Failed to compute year balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toYearDTO(b))
}

func (h *Handler) GetEmployment(w http.ResponseWriter, r *http.Request) {
	userID, asOf, ok := h.userAndDate(w, r, "as_of")
	if !ok {
		return
	}
	e, err := h.Engine.EmploymentEffectiveness(r.Context(), userID, asOf)
	if err != nil {
		h.fail(w, "Failed to compute employment effectiveness", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmploymentDTO(e))
}

func (h *Handler) GetVacation(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		h.fail(w, "Invalid user", err)
		return
	}
	v, err := h.Engine.VacationBalance(r.Context(), userID)
	if err != nil {
		h.fail(w, "Failed to compute vacation balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toVacationDTO(v))
}

func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	userID, asOf, ok := h.userAndDate(w, r, "as_of")
	if !ok {
		return
	}
	o, err := h.Engine.Overview(r.Context(), userID, asOf)
	if err != nil {
		h.fail(w, "Failed to compute overview", err)
		return
	}
	if wantsCSV(r) {
		h.writeCSV(w, fmt.Sprintf("overview-%d-%s.csv", userID, asOf), func(out io.Writer) error {
			return export.OverviewCSV(out, o)
		})
		return
	}
	writeJSON(w, http.StatusOK, toOverviewDTO(o))
}

// =============================================================================
// PROJECT HANDLERS
// =============================================================================

func (h *Handler) ListPhases(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.Store.PhaseCatalog(r.Context())
	if err != nil {
		h.fail(w, "Failed to list phases", err)
		return
	}
	dtos := make([]PhaseDTO, 0, len(catalog))
	for _, p := range catalog {
		dtos = append(dtos, PhaseDTO{ID: int64(p.ID), Number: p.Number, Name: p.Name})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Store.ListProjects(r.Context())
	if err != nil {
		h.fail(w, "Failed to list projects", err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTOs(projects))
}

func (h *Handler) SaveProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectDTO
	if !decode(w, r, &req) {
		return
	}
	p := worktime.Project{
		Number:      worktime.ProjectNumber(req.Number),
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.Store.SaveProject(r.Context(), p); err != nil {
		h.fail(w, "Failed to save project", err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTO(p))
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadProject(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTO(*p))
}

func (h *Handler) ListProjectUsers(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadProject(w, r)
	if !ok {
		return
	}
	users, err := h.Store.ProjectUsers(r.Context(), p.Number)
	if err != nil {
		h.fail(w, "Failed to list project users", err)
		return
	}
	dtos := make([]UserDTO, 0, len(users))
	for _, u := range users {
		dtos = append(dtos, toUserDTO(u))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) AssignUser(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadProject(w, r)
	if !ok {
		return
	}
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	if err := h.Store.AssignUser(r.Context(), user.ID, p.Number); err != nil {
		h.fail(w, "Failed to assign user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UnassignUser(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		h.fail(w, "Invalid user", err)
		return
	}
	number := worktime.ProjectNumber(chi.URLParam(r, "number"))
	if err := h.Store.UnassignUser(r.Context(), userID, number); err != nil {
		h.fail(w, "Failed to unassign user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListTargets(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadProject(w, r)
	if !ok {
		return
	}
	targets, err := h.Store.PhaseTargets(r.Context(), p.Number)
	if err != nil {
		h.fail(w, "Failed to list targets", err)
		return
	}
	dtos := make([]TargetDTO, 0, len(targets))
	for _, t := range targets {
		dtos = append(dtos, TargetDTO{
			ProjectNumber: string(t.ProjectNumber),
			PhaseName:     t.PhaseName,
			TargetHours:   t.TargetHours,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) SaveTarget(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadProject(w, r)
	if !ok {
		return
	}
	var req SaveTargetRequest
	if !decode(w, r, &req) {
		return
	}
	t := worktime.ProjectPhaseTarget{
		ProjectNumber: p.Number,
		PhaseName:     req.PhaseName,
		TargetHours:   req.TargetHours,
	}
	if err := h.Ledger.SaveTarget(r.Context(), t); err != nil {
		h.fail(w, "Failed to save target", err)
		return
	}
	writeJSON(w, http.StatusOK, TargetDTO{
		ProjectNumber: string(t.ProjectNumber),
		PhaseName:     t.PhaseName,
		TargetHours:   t.TargetHours,
	})
}

// GetAllocation returns the phase allocation of a project. Year is
// required; month, user and phase narrow it further. With self set, each
// phase is split into that user's hours and the rest of the team's.
func (h *Handler) GetAllocation(w http.ResponseWriter, r *http.Request) {
	filter, err := allocationFilterQuery(r)
	if err != nil {
		h.fail(w, "Invalid filter", err)
		return
	}
	self, err := intQuery(r, "self")
	if err != nil {
		h.fail(w, "Invalid filter", err)
		return
	}
	if self != 0 && filter.UserID != 0 {
		h.fail(w, "Invalid filter", fmt.Errorf("%w: self and user cannot be combined", worktime.ErrInvalidFilter))
		return
	}
	number := worktime.ProjectNumber(chi.URLParam(r, "number"))

	ctx := r.Context()
	a, err := h.Engine.Allocation(ctx, number, filter)
	if err != nil {
		h.fail(w, "Failed to compute allocation", err)
		return
	}

	if self != 0 {
		h.writeSelfVsOthers(w, r, a, worktime.UserID(self))
		return
	}

	if wantsCSV(r) {
		names, err := h.userNames(ctx)
		if err != nil {
			h.fail(w, "Failed to load users", err)
			return
		}
		h.writeCSV(w, fmt.Sprintf("allocation-%s-%d.csv", number, filter.Year), func(out io.Writer) error {
			return export.AllocationCSV(out, a, names)
		})
		return
	}
	writeJSON(w, http.StatusOK, toAllocationDTO(a))
}

func (h *Handler) writeSelfVsOthers(w http.ResponseWriter, r *http.Request, a worktime.Allocation, self worktime.UserID) {
	user, err := h.Store.GetUser(r.Context(), self)
	if err != nil {
		h.fail(w, "Failed to load user", err)
		return
	}
	if wantsCSV(r) {
		filename := fmt.Sprintf("allocation-%s-%d-%s.csv", a.Project, a.Filter.Year, user.Username)
		h.writeCSV(w, filename, func(out io.Writer) error {
			return export.SelfVsOthersCSV(out, a.Project, a.SelfVsOthers(self), user.Username)
		})
		return
	}
	writeJSON(w, http.StatusOK, toSelfVsOthersDTO(a, self))
}

// =============================================================================
// REQUEST PARSING
// =============================================================================

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func userIDParam(r *http.Request) (worktime.UserID, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid user id %q", worktime.ErrInvalidFilter, raw)
	}
	return worktime.UserID(id), nil
}

// dateQuery parses key as YYYY-MM-DD, returning fallback when absent.
func dateQuery(r *http.Request, key string, fallback worktime.Date) (worktime.Date, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := worktime.ParseDate(raw)
	if err != nil {
		return fallback, fmt.Errorf("%w: %s: %v", worktime.ErrInvalidFilter, key, err)
	}
	return d, nil
}

func intQuery(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number, got %q", worktime.ErrInvalidFilter, key, raw)
	}
	return n, nil
}

// entryFilterQuery adds the project, phase, activity and from/to query
// parameters to base. Project is ignored when base already names one; a
// phase is given by name and resolved through catalog.
func entryFilterQuery(r *http.Request, base worktime.EntryFilter, catalog []worktime.SiaPhase) (worktime.EntryFilter, error) {
	q := r.URL.Query()
	filter := base
	if filter.Project == "" {
		filter.Project = worktime.ProjectNumber(q.Get("project"))
	}
	filter.Activity = q.Get("activity")

	if name := q.Get("phase"); name != "" {
		phase, ok := phaseNamed(catalog, name)
		if !ok {
			return filter, fmt.Errorf("%w: %q", worktime.ErrPhaseNotFound, name)
		}
		filter.PhaseID = &phase.ID
	}

	from, err := dateQuery(r, "from", worktime.Date{})
	if err != nil {
		return filter, err
	}
	to, err := dateQuery(r, "to", worktime.Date{})
	if err != nil {
		return filter, err
	}
	switch {
	case from.IsZero() && to.IsZero():
	case from.IsZero() || to.IsZero():
		return filter, fmt.Errorf("%w: from and to must be given together", worktime.ErrInvalidFilter)
	default:
		period := worktime.Period{Start: from, End: to}
		filter.Period = &period
	}
	return filter, nil
}

func phaseNamed(catalog []worktime.SiaPhase, name string) (worktime.SiaPhase, bool) {
	for _, p := range catalog {
		if p.Name == name {
			return p, true
		}
	}
	return worktime.SiaPhase{}, false
}

func allocationFilterQuery(r *http.Request) (worktime.AllocationFilter, error) {
	var filter worktime.AllocationFilter
	year, err := intQuery(r, "year")
	if err != nil {
		return filter, err
	}
	month, err := intQuery(r, "month")
	if err != nil {
		return filter, err
	}
	user, err := intQuery(r, "user")
	if err != nil {
		return filter, err
	}
	filter.Year = year
	filter.Month = time.Month(month)
	filter.UserID = worktime.UserID(user)
	filter.Phase = r.URL.Query().Get("phase")
	return filter, filter.Validate()
}

func wantsCSV(r *http.Request) bool {
	return r.URL.Query().Get("format") == "csv"
}

// userAndDate reads the user path parameter and a date query parameter
// that defaults to the engine's today.
func (h *Handler) userAndDate(w http.ResponseWriter, r *http.Request, key string) (worktime.UserID, worktime.Date, bool) {
	userID, err := userIDParam(r)
	if err != nil {
		h.fail(w, "Invalid user", err)
		return 0, worktime.Date{}, false
	}
	d, err := dateQuery(r, key, h.Engine.Today())
	if err != nil {
		h.fail(w, "Invalid date", err)
		return 0, worktime.Date{}, false
	}
	return userID, d, true
}

func (h *Handler) loadUser(w http.ResponseWriter, r *http.Request) (*worktime.User, bool) {
	userID, err := userIDParam(r)
	if err != nil {
		h.fail(w, "Invalid user", err)
		return nil, false
	}
	user, err := h.Store.GetUser(r.Context(), userID)
	if err != nil {
		h.fail(w, "Failed to load user", err)
		return nil, false
	}
	return user, true
}

func (h *Handler) loadProject(w http.ResponseWriter, r *http.Request) (*worktime.Project, bool) {
	p, err := h.Store.GetProject(r.Context(), worktime.ProjectNumber(chi.URLParam(r, "number")))
	if err != nil {
		h.fail(w, "Failed to load project", err)
		return nil, false
	}
	return p, true
}

func (h *Handler) userNames(ctx context.Context) (export.UserNames, error) {
	users, err := h.Store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	names := make(export.UserNames, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}
	return names, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// statusFor maps an error onto its HTTP status.
func statusFor(err error) int {
	switch {
	case worktime.IsClientError(err):
		return http.StatusBadRequest
	case worktime.IsNotFound(err):
		return http.StatusNotFound
	case worktime.IsConflict(err):
		return http.StatusConflict
	case worktime.IsDataAccess(err), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger().Error(message, zap.Int("status", status), zap.Error(err))
	}
	writeError(w, status, message, err)
}

func (h *Handler) writeCSV(w http.ResponseWriter, filename string, write func(io.Writer) error) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := write(w); err != nil {
		// Headers are already sent.
		h.logger().Error("csv export failed", zap.String("file", filename), zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
