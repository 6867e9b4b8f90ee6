package sheetsync

import (
	"slices"
	"strings"

	"voterlookup/internal/voter"
)

// Plan is the work of a sync run, decided from one read of the sheet.
type Plan struct {
	// Work keeps the rows' own RowIndex, in ascending order.
	Work           []voter.SheetRow
	SkippedEmpty   int
	SkippedAlready int
	// Considered is the number of rows visited before the limit was hit.
	Considered int
}

// BuildPlan walks the rows in ascending order, skipping blank names and
// rows that already have a result. With rowLimit > 0 the walk stops as
// soon as that many work items are collected, rows after that point are
// neither processed nor counted.
func BuildPlan(rows []voter.SheetRow, rowLimit int) Plan {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b voter.SheetRow) int {
		return a.RowIndex - b.RowIndex
	})

	var plan Plan
	for _, row := range sorted {
		if rowLimit > 0 && len(plan.Work) == rowLimit {
			break
		}
		plan.Considered++
		switch {
		case strings.TrimSpace(row.Name) == "":
			plan.SkippedEmpty++
		case row.AlreadyHasResult:
			plan.SkippedAlready++
		default:
			plan.Work = append(plan.Work, row)
		}
	}
	return plan
}

// Metrics seeds the run's metrics with the planning counts.
func (p Plan) Metrics() voter.SyncMetrics {
	return voter.SyncMetrics{
		SkippedEmpty:    p.SkippedEmpty,
		SkippedAlready:  p.SkippedAlready,
		TotalConsidered: p.Considered,
	}
}
