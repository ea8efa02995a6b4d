/*
balance.go - Daily, year-to-date and employment-percentage views

VIEWS:
  DailyBalance:            actual(date) - hours_per_day, with a three-way
                           deficit / neutral / surplus split for indicators
  YearBalance:             actual(year) - expected(year to date)
  EmploymentEffectiveness: actual(year) / expected * 100

ACCRUAL WINDOW:
  Expected hours for a year view run from the later of the contract start
  and January 1 up to the as-of date. A contract starting after the as-of
  date has zero workdays, so expected is zero rather than negative.

FAILURE SEMANTICS:
  Missing settings or a non-positive daily target give a zero result with
  Status set and a Warn log line. Store failures are returned as
  DataAccessError so "no hours logged" is never confused with "could not
  read the database".

SEE ALSO:
  - vacation.go: vacation bank view
  - accrual.go: ExpectedHours / Accrue
*/
package worktime

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DAILY BALANCE
// =============================================================================

// DailyBalance is the single-day indicator. The three fractions are each
// in [0, 1] and add up to 1 when Status is StatusOK.
//
// The daily view does not special-case weekends: a Saturday without
// entries reads -TargetHours. Workday lets callers that want day-type
// awareness treat the target as zero.
type DailyBalance struct {
	UserID          UserID
	Date            Date
	Workday         bool
	ActualHours     decimal.Decimal
	TargetHours     decimal.Decimal
	NetHours        decimal.Decimal
	DeficitFraction decimal.Decimal
	NeutralFraction decimal.Decimal
	SurplusFraction decimal.Decimal
	Status          Status
}

func (e *Engine) DailyBalance(ctx context.Context, userID UserID, date Date) (DailyBalance, error) {
	out := DailyBalance{
		UserID:          userID,
		Date:            date,
		Workday:         date.IsWorkday(),
		ActualHours:     decimal.Zero,
		TargetHours:     decimal.Zero,
		NetHours:        decimal.Zero,
		DeficitFraction: decimal.Zero,
		NeutralFraction: decimal.Zero,
		SurplusFraction: decimal.Zero,
		Status:          StatusOK,
	}

	settings, err := e.loadSettings(ctx, userID)
	if err != nil {
		return out, err
	}
	day := Period{Start: date, End: date}
	actual, err := e.sumHours(ctx, "daily hours", EntryFilter{UserID: userID, Period: &day})
	if err != nil {
		return out, err
	}
	out.ActualHours = actual

	if cerr := checkSettings(settings); cerr != nil {
		out.Status = e.degrade("daily", userID, cerr)
		return out, nil
	}

	out.TargetHours = settings.DefaultHoursPerDay
	out.NetHours = actual.Sub(settings.DefaultHoursPerDay)
	out.DeficitFraction, out.NeutralFraction, out.SurplusFraction = splitDay(out.NetHours, out.TargetHours)
	return out, nil
}

// splitDay maps a net balance onto deficit/neutral/surplus slices.
// target must be positive.
func splitDay(net, target decimal.Decimal) (deficit, neutral, surplus decimal.Decimal) {
	one := decimal.NewFromInt(1)
	ratio := decimal.Min(one, net.Abs().Div(target))
	switch net.Sign() {
	case -1:
		return ratio, one.Sub(ratio), decimal.Zero
	case 1:
		return decimal.Zero, one.Sub(ratio), ratio
	default:
		return decimal.Zero, one, decimal.Zero
	}
}

// =============================================================================
// YEAR BALANCE
// =============================================================================

// YearBalance compares hours logged in the as-of year with the hours the
// contract expected up to the as-of date. Positive is ahead of schedule.
type YearBalance struct {
	UserID        UserID
	AsOf          Date
	Accrual       Accrual
	ActualHours   decimal.Decimal
	ExpectedHours decimal.Decimal
	NetHours      decimal.Decimal
	Status        Status
}

func (e *Engine) YearBalance(ctx context.Context, userID UserID, asOf Date) (YearBalance, error) {
	ytd, err := e.yearToDate(ctx, userID, asOf)
	out := YearBalance{
		UserID:        userID,
		AsOf:          asOf,
		Accrual:       ytd.accrual,
		ActualHours:   ytd.actual,
		ExpectedHours: decimal.Zero,
		NetHours:      decimal.Zero,
		Status:        StatusOK,
	}
	if err != nil {
		return out, err
	}
	if ytd.cause != nil {
		out.Status = e.degrade("year", userID, ytd.cause)
		return out, nil
	}
	out.ExpectedHours = ytd.accrual.Hours
	out.NetHours = ytd.actual.Sub(ytd.accrual.Hours)
	return out, nil
}

// =============================================================================
// EMPLOYMENT EFFECTIVENESS
// =============================================================================

// EmploymentEffectiveness is the percentage of expected hours actually
// worked, next to the contractual percentage.
type EmploymentEffectiveness struct {
	UserID                UserID
	AsOf                  Date
	ActualHours           decimal.Decimal
	ExpectedHours         decimal.Decimal
	ActualPercentage      decimal.Decimal
	ContractualPercentage int
	UnderTarget           bool
	Status                Status
}

func (e *Engine) EmploymentEffectiveness(ctx context.Context, userID UserID, asOf Date) (EmploymentEffectiveness, error) {
	ytd, err := e.yearToDate(ctx, userID, asOf)
	out := EmploymentEffectiveness{
		UserID:           userID,
		AsOf:             asOf,
		ActualHours:      ytd.actual,
		ExpectedHours:    decimal.Zero,
		ActualPercentage: decimal.Zero,
		Status:           StatusOK,
	}
	if err != nil {
		return out, err
	}
	if ytd.settings != nil {
		out.ContractualPercentage = ytd.settings.EmploymentPercentage
	}
	if ytd.cause != nil {
		out.Status = e.degrade("employment", userID, ytd.cause)
		return out, nil
	}

	out.ExpectedHours = ytd.accrual.Hours
	if ytd.accrual.Hours.IsPositive() {
		out.ActualPercentage = ytd.actual.Mul(hundred).Div(ytd.accrual.Hours)
	}
	out.UnderTarget = out.ActualPercentage.LessThan(decimal.NewFromInt(int64(out.ContractualPercentage)))
	return out, nil
}

// =============================================================================
// SHARED YEAR-TO-DATE READ
// =============================================================================

type yearToDate struct {
	settings *UserSettings
	actual   decimal.Decimal
	accrual  Accrual
	cause    error // configuration problem, nil when the accrual is defined
}

func (e *Engine) yearToDate(ctx context.Context, userID UserID, asOf Date) (yearToDate, error) {
	out := yearToDate{actual: decimal.Zero, accrual: Accrual{Hours: decimal.Zero}}

	settings, err := e.loadSettings(ctx, userID)
	if err != nil {
		return out, err
	}
	out.settings = settings

	year := YearPeriod(asOf.Year())
	out.actual, err = e.sumHours(ctx, "year hours", EntryFilter{UserID: userID, Period: &year})
	if err != nil {
		return out, err
	}

	if settings == nil {
		out.cause = ErrMissingSettings
		return out, nil
	}
	out.accrual, out.cause = Accrue(settings, YearToDate(settings.EffectiveStart(asOf), asOf))
	return out, nil
}

// =============================================================================
// OVERVIEW
// =============================================================================

// Overview bundles every per-user view for dashboards and reports.
type Overview struct {
	Daily      DailyBalance
	Year       YearBalance
	Employment EmploymentEffectiveness
	Vacation   VacationBalance
}

func (e *Engine) Overview(ctx context.Context, userID UserID, asOf Date) (Overview, error) {
	var (
		out Overview
		err error
	)
	if out.Daily, err = e.DailyBalance(ctx, userID, asOf); err != nil {
		return out, err
	}
	if out.Year, err = e.YearBalance(ctx, userID, asOf); err != nil {
		return out, err
	}
	if out.Employment, err = e.EmploymentEffectiveness(ctx, userID, asOf); err != nil {
		return out, err
	}
	if out.Vacation, err = e.VacationBalance(ctx, userID); err != nil {
		return out, err
	}
	return out, nil
}
