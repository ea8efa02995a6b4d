package worktime

import (
	"context"

	"github.com/shopspring/decimal"
)

// VacationBalance is the vacation bank in days.
//
// NetDays keeps the sign convention of the original reports: used minus
// assigned, so a positive value means the bank is overdrawn and a
// negative value means days remain. OverusedDays and RemainingDays carry
// the same information without a sign; at most one of them is non-zero.
type VacationBalance struct {
	UserID        UserID
	VacationHours decimal.Decimal
	UsedHours     decimal.Decimal
	AssignedDays  decimal.Decimal
	UsedDays      decimal.Decimal
	OverusedDays  decimal.Decimal
	RemainingDays decimal.Decimal
	NetDays       decimal.Decimal
	Status        Status
}

func (e *Engine) VacationBalance(ctx context.Context, userID UserID) (VacationBalance, error) {
	out := VacationBalance{
		UserID:        userID,
		VacationHours: decimal.Zero,
		UsedHours:     decimal.Zero,
		AssignedDays:  decimal.Zero,
		UsedDays:      decimal.Zero,
		OverusedDays:  decimal.Zero,
		RemainingDays: decimal.Zero,
		NetDays:       decimal.Zero,
		Status:        StatusOK,
	}

	settings, err := e.loadSettings(ctx, userID)
	if err != nil {
		return out, err
	}
	used, err := e.sumHours(ctx, "vacation hours", EntryFilter{UserID: userID, Activity: ActivityVacation})
	if err != nil {
		return out, err
	}
	out.UsedHours = used

	if cerr := checkSettings(settings); cerr != nil {
		out.Status = e.degrade("vacation", userID, cerr)
		return out, nil
	}

	out.VacationHours = settings.VacationHours
	out.AssignedDays = settings.VacationDays()
	out.UsedDays = used.Div(settings.DefaultHoursPerDay)
	out.NetDays = out.UsedDays.Sub(out.AssignedDays)
	out.OverusedDays = decimal.Max(decimal.Zero, out.NetDays)
	out.RemainingDays = decimal.Max(decimal.Zero, out.NetDays.Neg())
	return out, nil
}
