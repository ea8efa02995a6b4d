package worktime

import "time"

// =============================================================================
// PERIOD - Inclusive date range used by filters and accruals
// =============================================================================

// Period is the closed range [Start, End].
type Period struct {
	Start Date
	End   Date
}

func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Empty reports a range whose end lies before its start.
func (p Period) Empty() bool { return p.End.Before(p.Start) }

// Workdays counts Monday-Friday days in the period.
func (p Period) Workdays() int { return WorkdaysBetween(p.Start, p.End) }

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

func YearPeriod(year int) Period {
	return Period{Start: StartOfYear(year), End: EndOfYear(year)}
}

func MonthPeriod(year int, month time.Month) Period {
	return Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}

// YearToDate returns the accrual window for asOf: from the later of the
// contract start and January 1, up to asOf. A start after asOf gives an
// empty period with zero workdays.
func YearToDate(start, asOf Date) Period {
	return Period{Start: MaxDate(start, StartOfYear(asOf.Year())), End: asOf}
}
