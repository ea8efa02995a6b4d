/*
Package worktime provides the work-hours reconciliation engine.

PURPOSE:
  Converts a user's employment contract (daily target, employment
  percentage, vacation allotment, start date) and the time entries they
  logged into target-vs-actual balances: a single day, year to date,
  employment effectiveness, the vacation bank and per-phase project
  allocation.

KEY CONCEPTS IN THIS FILE (types.go):
  - User / UserSettings: who logs time and under which contract
  - Project / SiaPhase / ProjectPhaseTarget: where time is booked
  - TimeEntry: the append-mostly event log every view aggregates over

DESIGN PRINCIPLES:
  1. Precision: hours are decimal.Decimal, never float64
  2. Fresh reads: every view re-reads settings and entries from the Store
  3. Fail soft: missing or degenerate settings produce a flagged result,
     only data access failures are returned as errors

SEE ALSO:
  - calendar.go: WorkdaysBetween, the single workday counter
  - accrual.go: expected ("Soll") hours
  - balance.go: daily, year and employment views
  - vacation.go: vacation bank
  - allocation.go: per-phase project allocation
*/
package worktime

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// USERS
// =============================================================================

type UserID int64

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleUser }

type User struct {
	ID       UserID
	Username string
	Role     Role
}

// =============================================================================
// USER SETTINGS - The employment contract
// =============================================================================

var (
	DefaultHoursPerDay          = decimal.RequireFromString("8.5")
	DefaultEmploymentPercentage = 100
	DefaultVacationHours        = decimal.RequireFromString("212.5")
)

// UserSettings is the single current contract row of a user.
// StartDate is optional; when nil, accrual starts on January 1 of the
// year being evaluated. That default is resolved at read time and never
// persisted.
type UserSettings struct {
	UserID               UserID
	DefaultHoursPerDay   decimal.Decimal
	EmploymentPercentage int
	VacationHours        decimal.Decimal
	StartDate            *Date
}

// DefaultSettings returns the contract a new user gets when an admin
// saves settings without overriding anything.
func DefaultSettings(userID UserID) UserSettings {
	return UserSettings{
		UserID:               userID,
		DefaultHoursPerDay:   DefaultHoursPerDay,
		EmploymentPercentage: DefaultEmploymentPercentage,
		VacationHours:        DefaultVacationHours,
	}
}

// EffectiveStart returns StartDate, or January 1 of asOf's year.
func (s UserSettings) EffectiveStart(asOf Date) Date {
	if s.StartDate == nil || s.StartDate.IsZero() {
		return StartOfYear(asOf.Year())
	}
	return *s.StartDate
}

// HasUsableDailyTarget reports whether ratios over the daily target can
// be computed.
func (s UserSettings) HasUsableDailyTarget() bool {
	return s.DefaultHoursPerDay.IsPositive()
}

// EmploymentFactor returns employment_percentage / 100.
func (s UserSettings) EmploymentFactor() decimal.Decimal {
	if s.EmploymentPercentage <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(s.EmploymentPercentage)).Div(hundred)
}

// VacationDays converts the vacation allotment into days.
// Callers must check HasUsableDailyTarget first.
func (s UserSettings) VacationDays() decimal.Decimal {
	return s.VacationHours.Div(s.DefaultHoursPerDay)
}

var hundred = decimal.NewFromInt(100)

// =============================================================================
// PROJECTS AND PHASES
// =============================================================================

type ProjectNumber string

// InternalProject books office time. It has no phases and no targets and
// never takes part in phase reconciliation.
const InternalProject ProjectNumber = "0000"

func (p ProjectNumber) IsInternal() bool { return p == InternalProject }

type Project struct {
	Number      ProjectNumber
	Name        string
	Description string
}

type PhaseID int64

// SiaPhase is one entry of the fixed phase catalog.
type SiaPhase struct {
	ID     PhaseID
	Number int
	Name   string
}

// ProjectPhaseTarget is the target ("Soll") hours for one phase of a project.
type ProjectPhaseTarget struct {
	ProjectNumber ProjectNumber
	PhaseName     string
	TargetHours   decimal.Decimal
}

// =============================================================================
// TIME ENTRY - Append-mostly event log
// =============================================================================

// ActivityVacation marks an entry as vacation time.
const ActivityVacation = "Ferien"

// TimeEntry is one booking of hours. Several entries for the same user,
// project, phase and date are legal and are always summed.
type TimeEntry struct {
	ID            string
	UserID        UserID
	ProjectNumber ProjectNumber
	PhaseID       *PhaseID // nil only for InternalProject
	Hours         decimal.Decimal
	Date          Date
	Activity      string
	Note          string
}

func (e TimeEntry) IsVacation() bool { return e.Activity == ActivityVacation }

// EntryFilter narrows entry reads. Zero values mean "any".
type EntryFilter struct {
	UserID   UserID
	Project  ProjectNumber
	PhaseID  *PhaseID
	Activity string
	Period   *Period
}

// Matches applies the filter to a single entry. Stores that cannot push a
// predicate down use it to filter in process.
func (f EntryFilter) Matches(e TimeEntry) bool {
	if f.UserID != 0 && e.UserID != f.UserID {
		return false
	}
	if f.Project != "" && e.ProjectNumber != f.Project {
		return false
	}
	if f.PhaseID != nil && (e.PhaseID == nil || *e.PhaseID != *f.PhaseID) {
		return false
	}
	if f.Activity != "" && e.Activity != f.Activity {
		return false
	}
	if f.Period != nil && !f.Period.Contains(e.Date) {
		return false
	}
	return true
}

// SumHours adds up entry hours.
func SumHours(entries []TimeEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Hours)
	}
	return total
}
