package sheetsync

import (
	"testing"

	"voterlookup/internal/voter"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// rows 2-7 of the sheet most tests here use
func sampleRows() []voter.SheetRow {
	return []voter.SheetRow{
		{RowIndex: 2, Name: "John Doe", AlreadyHasResult: true},
		{RowIndex: 3, Name: ""},
		{RowIndex: 4, Name: "Jane Smith"},
		{RowIndex: 5, Name: "   "},
		{RowIndex: 6, Name: "Bob Johnson", AlreadyHasResult: true},
		{RowIndex: 7, Name: "Alice Cooper"},
	}
}

func TestBuildPlanUnlimited(t *testing.T) {
	plan := BuildPlan(sampleRows(), 0)

	expected := Plan{
		Work: []voter.SheetRow{
			{RowIndex: 4, Name: "Jane Smith"},
			{RowIndex: 7, Name: "Alice Cooper"},
		},
		SkippedEmpty:   2,
		SkippedAlready: 2,
		Considered:     6,
	}
	if diff := cmp.Diff(expected, plan); diff != "" {
		t.Fatal(diff)
	}
}

func TestBuildPlanLimit(t *testing.T) {
	plan := BuildPlan(sampleRows(), 1)
	require.Equal(t, []voter.SheetRow{{RowIndex: 4, Name: "Jane Smith"}}, plan.Work)
	require.Equal(t, voter.SyncMetrics{
		SkippedAlready:  1,
		SkippedEmpty:    1,
		TotalConsidered: 3,
	}, plan.Metrics())

	// a limit above the available work behaves like no limit
	require.Equal(t, BuildPlan(sampleRows(), 0), BuildPlan(sampleRows(), 10))
}

func TestBuildPlanKeepsRowIndex(t *testing.T) {
	rows := []voter.SheetRow{
		{RowIndex: 40, Name: "C"},
		{RowIndex: 12, Name: "A"},
		{RowIndex: 13, Name: ""},
		{RowIndex: 25, Name: "B", AlreadyHasResult: true},
		{RowIndex: 31, Name: "D"},
	}
	plan := BuildPlan(rows, 0)

	var indexes []int
	for _, w := range plan.Work {
		indexes = append(indexes, w.RowIndex)
	}
	require.Equal(t, []int{12, 31, 40}, indexes)
	require.Equal(t, "C", plan.Work[2].Name)

	// the input is not reordered
	require.Equal(t, 40, rows[0].RowIndex)
}

func TestBuildPlanIdempotent(t *testing.T) {
	rows := sampleRows()
	first := BuildPlan(rows, 0)

	// mark the planned rows as written, the way a finished run leaves them
	for i := range rows {
		for _, w := range first.Work {
			if rows[i].RowIndex == w.RowIndex {
				rows[i].AlreadyHasResult = true
			}
		}
	}
	second := BuildPlan(rows, 0)
	require.Empty(t, second.Work)
	require.Equal(t, 4, second.SkippedAlready)
	require.Equal(t, 2, second.SkippedEmpty)
	require.Equal(t, 6, second.Considered)
}
