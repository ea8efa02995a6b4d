package worktime_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timearch/engine/worktime"
)

func vacation(userID worktime.UserID, hours string, d worktime.Date) worktime.TimeEntry {
	e := entry(userID, worktime.InternalProject, nil, hours, d)
	e.Activity = worktime.ActivityVacation
	return e
}

func TestVacationBalance_Overdrawn(t *testing.T) {
	// GIVEN: 170 vacation hours at 8.5 h/day (20 days), 25 days of Ferien logged
	f := newFixture(t)
	s := settings(1, "8.5", 100, nil)
	s.VacationHours = dec("170")
	f.saveSettings(t, s)
	d := date(2024, 7, 1)
	for i := 0; i < 25; i++ {
		f.log(t, vacation(1, "8.5", d.AddDays(i)))
	}
	f.log(t, entry(1, worktime.InternalProject, nil, "8.5", d)) // regular work

	// WHEN: Reading the vacation bank
	v, err := f.engine.VacationBalance(context.Background(), 1)

	// THEN: used 25, assigned 20, overused 5, remaining 0, net +5
	require.NoError(t, err)
	assertDecimal(t, "212.5", v.UsedHours)
	assertDecimal(t, "20", v.AssignedDays)
	assertDecimal(t, "25", v.UsedDays)
	assertDecimal(t, "5", v.OverusedDays)
	assertDecimal(t, "0", v.RemainingDays)
	assertDecimal(t, "5", v.NetDays)
}

func TestVacationBalance_DaysRemaining(t *testing.T) {
	f := newFixture(t)
	f.saveSettings(t, settings(1, "8.5", 100, nil)) // 212.5 h = 25 days
	f.log(t,
		vacation(1, "8.5", date(2024, 2, 5)),
		vacation(1, "4.25", date(2024, 2, 6)),
	)

	v, err := f.engine.VacationBalance(context.Background(), 1)

	require.NoError(t, err)
	assertDecimal(t, "1.5", v.UsedDays)
	assertDecimal(t, "23.5", v.RemainingDays)
	assertDecimal(t, "0", v.OverusedDays)
	assertDecimal(t, "-23.5", v.NetDays)
}

func TestVacationBalance_OverusedAndRemainingAreExclusive(t *testing.T) {
	for _, days := range []int{0, 10, 25, 30} {
		f := newFixture(t)
		f.saveSettings(t, settings(1, "8.5", 100, nil))
		for i := 0; i < days; i++ {
			f.log(t, vacation(1, "8.5", date(2024, 1, 1).AddDays(i)))
		}

		v, err := f.engine.VacationBalance(context.Background(), 1)
		require.NoError(t, err)

		assert.False(t, v.OverusedDays.IsPositive() && v.RemainingDays.IsPositive(), "days=%d", days)
		assert.False(t, v.OverusedDays.IsNegative() || v.RemainingDays.IsNegative(), "days=%d", days)
	}
}

func TestVacationBalance_DegenerateTarget(t *testing.T) {
	f := newFixture(t)
	f.saveSettings(t, settings(1, "0", 100, nil))
	f.log(t, vacation(1, "8", date(2024, 2, 5)))

	v, err := f.engine.VacationBalance(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, worktime.StatusInvalidSettings, v.Status)
	assertDecimal(t, "8", v.UsedHours)
	assert.True(t, v.UsedDays.IsZero())
}
