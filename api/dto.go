/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the worktime domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

HOURS AND DAYS:
  Decimal quantities are encoded as JSON strings ("42.5") so that no
  client ever sees a float rounding artifact. Dates are "YYYY-MM-DD".

VALIDATION:
  Validation is done in handlers and the worktime.Ledger, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/timearch/engine/worktime"
)

// =============================================================================
// USERS AND SETTINGS
// =============================================================================

type UserDTO struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type CreateUserRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type SettingsDTO struct {
	UserID               int64           `json:"user_id"`
	DefaultHoursPerDay   decimal.Decimal `json:"default_hours_per_day"`
	EmploymentPercentage int             `json:"employment_percentage"`
	VacationHours        decimal.Decimal `json:"vacation_hours"`
	StartDate            *worktime.Date  `json:"start_date,omitempty"`
}

// SaveSettingsRequest replaces a user's contract. Omitted fields fall back
// to the defaults (8.5 h/day, 100 %, 212.5 h vacation).
type SaveSettingsRequest struct {
	DefaultHoursPerDay   *decimal.Decimal `json:"default_hours_per_day"`
	EmploymentPercentage *int             `json:"employment_percentage"`
	VacationHours        *decimal.Decimal `json:"vacation_hours"`
	StartDate            *worktime.Date   `json:"start_date"`
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

type EntryDTO struct {
	ID            string          `json:"id"`
	UserID        int64           `json:"user_id"`
	ProjectNumber string          `json:"project_number"`
	PhaseID       *int64          `json:"phase_id"`
	Hours         decimal.Decimal `json:"hours"`
	Date          worktime.Date   `json:"entry_date"`
	Activity      string          `json:"activity"`
	Note          string          `json:"note,omitempty"`
}

type CreateEntryRequest struct {
	ID            string          `json:"id,omitempty"`
	ProjectNumber string          `json:"project_number"`
	PhaseID       *int64          `json:"phase_id"`
	Hours         decimal.Decimal `json:"hours"`
	Date          worktime.Date   `json:"entry_date"`
	Activity      string          `json:"activity"`
	Note          string          `json:"note"`
}

// ReplaceDayRequest is the full set of entries a user keeps for one day.
type ReplaceDayRequest struct {
	Entries []CreateEntryRequest `json:"entries"`
}

// =============================================================================
// PROJECTS AND PHASES
// =============================================================================

type ProjectDTO struct {
	Number      string `json:"project_number"`
	Name        string `json:"project_name"`
	Description string `json:"description,omitempty"`
}

type PhaseDTO struct {
	ID     int64  `json:"id"`
	Number int    `json:"phase_number"`
	Name   string `json:"phase_name"`
}

type TargetDTO struct {
	ProjectNumber string          `json:"project_number"`
	PhaseName     string          `json:"phase_name"`
	TargetHours   decimal.Decimal `json:"soll_stunden"`
}

type SaveTargetRequest struct {
	PhaseName   string          `json:"phase_name"`
	TargetHours decimal.Decimal `json:"soll_stunden"`
}

// =============================================================================
// BALANCE VIEWS
// =============================================================================

type DailyBalanceDTO struct {
	UserID          int64           `json:"user_id"`
	Date            worktime.Date   `json:"date"`
	Workday         bool            `json:"workday"`
	ActualHours     decimal.Decimal `json:"actual_hours"`
	TargetHours     decimal.Decimal `json:"target_hours"`
	NetHours        decimal.Decimal `json:"net_hours"`
	DeficitFraction decimal.Decimal `json:"deficit_fraction"`
	NeutralFraction decimal.Decimal `json:"neutral_fraction"`
	SurplusFraction decimal.Decimal `json:"surplus_fraction"`
	Status          string          `json:"status"`
}

type YearBalanceDTO struct {
	UserID        int64           `json:"user_id"`
	AsOf          worktime.Date   `json:"as_of"`
	AccrualStart  worktime.Date   `json:"accrual_start"`
	Workdays      int             `json:"workdays"`
	ActualHours   decimal.Decimal `json:"actual_hours"`
	ExpectedHours decimal.Decimal `json:"expected_hours"`
	NetHours      decimal.Decimal `json:"net_hours"`
	Status        string          `json:"status"`
}

type EmploymentDTO struct {
	UserID                int64           `json:"user_id"`
	AsOf                  worktime.Date   `json:"as_of"`
	ActualHours           decimal.Decimal `json:"actual_hours"`
	ExpectedHours         decimal.Decimal `json:"expected_hours"`
	ActualPercentage      decimal.Decimal `json:"actual_percentage"`
	ContractualPercentage int             `json:"contractual_percentage"`
	UnderTarget           bool            `json:"under_target"`
	Status                string          `json:"status"`
}

type VacationDTO struct {
	UserID        int64           `json:"user_id"`
	VacationHours decimal.Decimal `json:"vacation_hours"`
	UsedHours     decimal.Decimal `json:"used_hours"`
	AssignedDays  decimal.Decimal `json:"assigned_days"`
	UsedDays      decimal.Decimal `json:"used_days"`
	OverusedDays  decimal.Decimal `json:"overused_days"`
	RemainingDays decimal.Decimal `json:"remaining_days"`
	NetDays       decimal.Decimal `json:"net_days"`
	Status        string          `json:"status"`
}

type OverviewDTO struct {
	Daily      DailyBalanceDTO `json:"daily"`
	Year       YearBalanceDTO  `json:"year"`
	Employment EmploymentDTO   `json:"employment"`
	Vacation   VacationDTO     `json:"vacation"`
}

// =============================================================================
// ALLOCATION
// =============================================================================

type UserHoursDTO struct {
	UserID int64           `json:"user_id"`
	Hours  decimal.Decimal `json:"hours"`
}

type AllocationRowDTO struct {
	PhaseID     int64            `json:"phase_id,omitempty"`
	PhaseNumber int              `json:"phase_number,omitempty"`
	PhaseName   string           `json:"phase_name"`
	TargetHours *decimal.Decimal `json:"soll_stunden"`
	TargetLabel string           `json:"soll_label"`
	Users       []UserHoursDTO   `json:"users"`
	TotalHours  decimal.Decimal  `json:"total_hours"`
	Unassigned  bool             `json:"unassigned,omitempty"`
}

type AllocationDTO struct {
	ProjectNumber string             `json:"project_number"`
	Year          int                `json:"year"`
	Month         int                `json:"month,omitempty"`
	UserID        int64              `json:"user_id,omitempty"`
	Phase         string             `json:"phase,omitempty"`
	Users         []int64            `json:"users"`
	Rows          []AllocationRowDTO `json:"rows"`
}

// SelfVsOthersDTO is the allocation seen from one team member.
type SelfVsOthersDTO struct {
	ProjectNumber string               `json:"project_number"`
	Year          int                  `json:"year"`
	Month         int                  `json:"month,omitempty"`
	Phase         string               `json:"phase,omitempty"`
	SelfUserID    int64                `json:"self_user_id"`
	Rows          []SelfVsOthersRowDTO `json:"rows"`
}

type SelfVsOthersRowDTO struct {
	PhaseNumber int              `json:"phase_number,omitempty"`
	PhaseName   string           `json:"phase_name"`
	TargetHours *decimal.Decimal `json:"soll_stunden"`
	TargetLabel string           `json:"soll_label"`
	SelfHours   decimal.Decimal  `json:"self_hours"`
	OthersHours decimal.Decimal  `json:"others_hours"`
	Unassigned  bool             `json:"unassigned,omitempty"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toUserDTO(u worktime.User) UserDTO {
	return UserDTO{ID: int64(u.ID), Username: u.Username, Role: string(u.Role)}
}

func toSettingsDTO(s worktime.UserSettings) SettingsDTO {
	return SettingsDTO{
		UserID:               int64(s.UserID),
		DefaultHoursPerDay:   s.DefaultHoursPerDay,
		EmploymentPercentage: s.EmploymentPercentage,
		VacationHours:        s.VacationHours,
		StartDate:            s.StartDate,
	}
}

func (r SaveSettingsRequest) toSettings(userID worktime.UserID) worktime.UserSettings {
	s := worktime.DefaultSettings(userID)
	if r.DefaultHoursPerDay != nil {
		s.DefaultHoursPerDay = *r.DefaultHoursPerDay
	}
	if r.EmploymentPercentage != nil {
		s.EmploymentPercentage = *r.EmploymentPercentage
	}
	if r.VacationHours != nil {
		s.VacationHours = *r.VacationHours
	}
	if r.StartDate != nil && !r.StartDate.IsZero() {
		start := *r.StartDate
		s.StartDate = &start
	}
	return s
}

func toEntryDTO(e worktime.TimeEntry) EntryDTO {
	dto := EntryDTO{
		ID:            e.ID,
		UserID:        int64(e.UserID),
		ProjectNumber: string(e.ProjectNumber),
		Hours:         e.Hours,
		Date:          e.Date,
		Activity:      e.Activity,
		Note:          e.Note,
	}
	if e.PhaseID != nil {
		id := int64(*e.PhaseID)
		dto.PhaseID = &id
	}
	return dto
}

func toEntryDTOs(entries []worktime.TimeEntry) []EntryDTO {
	out := make([]EntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryDTO(e))
	}
	return out
}

func (r CreateEntryRequest) toEntry(userID worktime.UserID) worktime.TimeEntry {
	e := worktime.TimeEntry{
		ID:            r.ID,
		UserID:        userID,
		ProjectNumber: worktime.ProjectNumber(r.ProjectNumber),
		Hours:         r.Hours,
		Date:          r.Date,
		Activity:      r.Activity,
		Note:          r.Note,
	}
	if r.PhaseID != nil {
		id := worktime.PhaseID(*r.PhaseID)
		e.PhaseID = &id
	}
	return e
}

func toProjectDTO(p worktime.Project) ProjectDTO {
	return ProjectDTO{Number: string(p.Number), Name: p.Name, Description: p.Description}
}

func toProjectDTOs(projects []worktime.Project) []ProjectDTO {
	out := make([]ProjectDTO, 0, len(projects))
	for _, p := range projects {
		out = append(out, toProjectDTO(p))
	}
	return out
}

func toDailyDTO(b worktime.DailyBalance) DailyBalanceDTO {
	return DailyBalanceDTO{
		UserID:          int64(b.UserID),
		Date:            b.Date,
		Workday:         b.Workday,
		ActualHours:     b.ActualHours,
		TargetHours:     b.TargetHours,
		NetHours:        b.NetHours,
		DeficitFraction: b.DeficitFraction,
		NeutralFraction: b.NeutralFraction,
		SurplusFraction: b.SurplusFraction,
		Status:          string(b.Status),
	}
}

func toYearDTO(b worktime.YearBalance) YearBalanceDTO {
	return YearBalanceDTO{
		UserID:        int64(b.UserID),
		AsOf:          b.AsOf,
		AccrualStart:  b.Accrual.Period.Start,
		Workdays:      b.Accrual.Workdays,
		ActualHours:   b.ActualHours,
		ExpectedHours: b.ExpectedHours,
		NetHours:      b.NetHours,
		Status:        string(b.Status),
	}
}

func toEmploymentDTO(e worktime.EmploymentEffectiveness) EmploymentDTO {
	return EmploymentDTO{
		UserID:                int64(e.UserID),
		AsOf:                  e.AsOf,
		ActualHours:           e.ActualHours,
		ExpectedHours:         e.ExpectedHours,
		ActualPercentage:      e.ActualPercentage,
		ContractualPercentage: e.ContractualPercentage,
		UnderTarget:           e.UnderTarget,
		Status:                string(e.Status),
	}
}

func toVacationDTO(v worktime.VacationBalance) VacationDTO {
	return VacationDTO{
		UserID:        int64(v.UserID),
		VacationHours: v.VacationHours,
		UsedHours:     v.UsedHours,
		AssignedDays:  v.AssignedDays,
		UsedDays:      v.UsedDays,
		OverusedDays:  v.OverusedDays,
		RemainingDays: v.RemainingDays,
		NetDays:       v.NetDays,
		Status:        string(v.Status),
	}
}

func toOverviewDTO(o worktime.Overview) OverviewDTO {
	return OverviewDTO{
		Daily:      toDailyDTO(o.Daily),
		Year:       toYearDTO(o.Year),
		Employment: toEmploymentDTO(o.Employment),
		Vacation:   toVacationDTO(o.Vacation),
	}
}

func toAllocationDTO(a worktime.Allocation) AllocationDTO {
	users := a.Users()
	dto := AllocationDTO{
		ProjectNumber: string(a.Project),
		Year:          a.Filter.Year,
		Month:         int(a.Filter.Month),
		UserID:        int64(a.Filter.UserID),
		Phase:         a.Filter.Phase,
		Users:         make([]int64, 0, len(users)),
		Rows:          make([]AllocationRowDTO, 0, len(a.Rows)),
	}
	for _, id := range users {
		dto.Users = append(dto.Users, int64(id))
	}
	for _, row := range a.Rows {
		r := AllocationRowDTO{
			PhaseID:     int64(row.PhaseID),
			PhaseNumber: row.PhaseNumber,
			PhaseName:   row.PhaseName,
			TargetHours: row.TargetHours,
			TargetLabel: row.TargetLabel(),
			Users:       make([]UserHoursDTO, 0, len(users)),
			TotalHours:  row.TotalHours,
			Unassigned:  row.Unassigned,
		}
		for _, id := range users {
			r.Users = append(r.Users, UserHoursDTO{UserID: int64(id), Hours: row.UserHours(id)})
		}
		dto.Rows = append(dto.Rows, r)
	}
	return dto
}

func toSelfVsOthersDTO(a worktime.Allocation, self worktime.UserID) SelfVsOthersDTO {
	rows := a.SelfVsOthers(self)
	dto := SelfVsOthersDTO{
		ProjectNumber: string(a.Project),
		Year:          a.Filter.Year,
		Month:         int(a.Filter.Month),
		Phase:         a.Filter.Phase,
		SelfUserID:    int64(self),
		Rows:          make([]SelfVsOthersRowDTO, 0, len(rows)),
	}
	for _, row := range rows {
		dto.Rows = append(dto.Rows, SelfVsOthersRowDTO{
			PhaseNumber: row.PhaseNumber,
			PhaseName:   row.PhaseName,
			TargetHours: row.TargetHours,
			TargetLabel: row.TargetLabel(),
			SelfHours:   row.SelfHours,
			OthersHours: row.OthersHours,
			Unassigned:  row.Unassigned,
		})
	}
	return dto
}
