package commands

import (
	"fmt"
	"io"

	"voterlookup/internal/sheetsync"
	"voterlookup/internal/voter"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

func renderResults(w io.Writer, results []voter.NamedResults, extended bool) {
	for _, named := range results {
		t := newTable(w)
		t.SetTitle(fmt.Sprintf("%s (%d results)", named.Name, len(named.Results)))

		header := table.Row{"#", "Name"}
		for _, label := range voter.HeaderLabels(extended) {
			header = append(header, label)
		}
		t.AppendHeader(header)

		for i, r := range named.Results {
			row := table.Row{i + 1, voter.Deref(r.Name)}
			for _, v := range voter.RowValues(r, extended) {
				row = append(row, v)
			}
			t.AppendRow(row)
		}
		if named.Err != nil {
			t.AppendFooter(table.Row{"", fmt.Sprintf("search failed: %v", named.Err)})
		}
		t.Render()
	}
}

func renderMetrics(w io.Writer, m voter.SyncMetrics, state sheetsync.State) {
	t := newTable(w)
	t.SetTitle(fmt.Sprintf("Sync %s", state))
	t.AppendRows([]table.Row{
		{"Updated", m.Updated},
		{"Skipped (already had data)", m.SkippedAlready},
		{"Skipped (empty name)", m.SkippedEmpty},
		{"No results", m.NoResults},
		{"Filled by someone else mid-run", m.Rechecked},
		{"Total considered", m.TotalConsidered},
	})
	t.Render()
}
