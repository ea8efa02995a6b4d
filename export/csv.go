// Package export writes engine results as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/timearch/engine/worktime"
)

// UserNames labels user columns; IDs without a name are written as "user <id>".
type UserNames map[worktime.UserID]string

func (n UserNames) label(id worktime.UserID) string {
	if name, ok := n[id]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("user %d", id)
}

// AllocationCSV writes one row per phase: target, one column per user in
// Allocation.Users() order, then the total.
func AllocationCSV(w io.Writer, a worktime.Allocation, names UserNames) error {
	cw := csv.NewWriter(w)
	users := a.Users()

	header := []string{"Project", "Phase Number", "Phase", "Target (h)"}
	for _, id := range users {
		header = append(header, names.label(id))
	}
	header = append(header, "Total (h)")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range a.Rows {
		number := ""
		if !row.Unassigned {
			number = strconv.Itoa(row.PhaseNumber)
		}
		record := []string{string(a.Project), number, row.PhaseName, row.TargetLabel()}
		for _, id := range users {
			record = append(record, hours(row.UserHours(id)))
		}
		record = append(record, hours(row.TotalHours))
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// SelfVsOthersCSV writes one row per phase with the highlighted user's
// hours next to the rest of the team's.
func SelfVsOthersCSV(w io.Writer, project worktime.ProjectNumber, rows []worktime.SelfVsOthersRow, self string) error {
	cw := csv.NewWriter(w)
	header := []string{"Project", "Phase Number", "Phase", "Target (h)", self + " (h)", "Others (h)"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		number := ""
		if !row.Unassigned {
			number = strconv.Itoa(row.PhaseNumber)
		}
		record := []string{
			string(project),
			number,
			row.PhaseName,
			row.TargetLabel(),
			hours(row.SelfHours),
			hours(row.OthersHours),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// EntriesCSV writes time entries, resolving phase IDs through the catalog.
func EntriesCSV(w io.Writer, entries []worktime.TimeEntry, catalog []worktime.SiaPhase, names UserNames) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ID", "User", "Date", "Project", "Phase", "Activity", "Hours", "Note"}); err != nil {
		return err
	}

	phaseNames := make(map[worktime.PhaseID]string, len(catalog))
	for _, p := range catalog {
		phaseNames[p.ID] = p.Name
	}

	for _, e := range entries {
		phase := ""
		if e.PhaseID != nil {
			phase = phaseNames[*e.PhaseID]
			if phase == "" {
				phase = worktime.UnassignedPhase
			}
		}
		record := []string{
			e.ID,
			names.label(e.UserID),
			e.Date.String(),
			string(e.ProjectNumber),
			phase,
			e.Activity,
			hours(e.Hours),
			e.Note,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// OverviewCSV writes the per-user balance summary as key/value rows. Each
// view carries its own status, matching the JSON overview.
func OverviewCSV(w io.Writer, o worktime.Overview) error {
	cw := csv.NewWriter(w)
	rows := [][]string{
		{"Metric", "Value"},
		{"As of", o.Year.AsOf.String()},
		{"Daily actual (h)", hours(o.Daily.ActualHours)},
		{"Daily target (h)", hours(o.Daily.TargetHours)},
		{"Daily net (h)", hours(o.Daily.NetHours)},
		{"Daily status", string(o.Daily.Status)},
		{"Year actual (h)", hours(o.Year.ActualHours)},
		{"Year expected (h)", hours(o.Year.ExpectedHours)},
		{"Year net (h)", hours(o.Year.NetHours)},
		{"Year status", string(o.Year.Status)},
		{"Employment actual (%)", hours(o.Employment.ActualPercentage)},
		{"Employment contractual (%)", strconv.Itoa(o.Employment.ContractualPercentage)},
		{"Employment under target", strconv.FormatBool(o.Employment.UnderTarget)},
		{"Employment status", string(o.Employment.Status)},
		{"Vacation assigned (d)", hours(o.Vacation.AssignedDays)},
		{"Vacation used (d)", hours(o.Vacation.UsedDays)},
		{"Vacation remaining (d)", hours(o.Vacation.RemainingDays)},
		{"Vacation overused (d)", hours(o.Vacation.OverusedDays)},
		{"Vacation net (d)", hours(o.Vacation.NetDays)},
		{"Vacation status", string(o.Vacation.Status)},
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func hours(d decimal.Decimal) string {
	return d.StringFixed(2)
}
