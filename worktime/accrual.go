package worktime

import "github.com/shopspring/decimal"

// =============================================================================
// ACCRUAL - Expected ("Soll") hours for a date range
// =============================================================================

// Accrual is the expected-hours breakdown for one window.
type Accrual struct {
	Period   Period
	Workdays int
	Hours    decimal.Decimal
}

// ExpectedHours returns hours_per_day * employment/100 * workdays in
// [start, asOf].
//
// A nil settings value returns ErrMissingSettings and a daily target of
// zero or less returns ErrDegenerateDivisor, both with a zero amount so a
// caller can tell "undefined" from a legitimate zero. An employment
// percentage of zero is legitimate and yields zero.
func ExpectedHours(settings *UserSettings, start, asOf Date) (decimal.Decimal, error) {
	a, err := Accrue(settings, Period{Start: start, End: asOf})
	return a.Hours, err
}

// Accrue computes the accrual for a period.
func Accrue(settings *UserSettings, p Period) (Accrual, error) {
	a := Accrual{Period: p, Hours: decimal.Zero}
	if settings == nil {
		return a, ErrMissingSettings
	}
	if !settings.HasUsableDailyTarget() {
		return a, ErrDegenerateDivisor
	}
	a.Workdays = p.Workdays()
	a.Hours = settings.DefaultHoursPerDay.
		Mul(settings.EmploymentFactor()).
		Mul(decimal.NewFromInt(int64(a.Workdays)))
	return a, nil
}
