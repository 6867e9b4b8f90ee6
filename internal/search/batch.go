package search

import (
	"context"
	"fmt"

	"voterlookup/internal/components/telemetry"
	"voterlookup/internal/portal"
	"voterlookup/internal/voter"
)

const report_batch_run = "batch.run"

// Batch looks up a list of names one after the other with the same
// filters.
type Batch struct {
	Executor       *Executor
	Filters        voter.Filters
	ExtractDetails bool
	Tel            telemetry.API
}

// Run returns one entry per name in input order. A name whose search
// failed is kept with no results and its error. The run stops before the
// next name when ctx is cancelled, the names done so far are returned with
// the error.
func (b Batch) Run(ctx context.Context, session portal.Session, names []string) ([]voter.NamedResults, error) {
	out := make([]voter.NamedResults, 0, len(names))
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		b.Tel.ReportDebug(report_batch_run, fmt.Sprintf("%d/%d", i+1, len(names)), name)
		results, err := b.Executor.Execute(ctx, session, b.Filters.Query(name), b.ExtractDetails)
		if err != nil && !voter.IsRecoverable(err) {
			return out, err
		}
		if results == nil {
			results = []voter.SearchResult{}
		}
		if len(results) == 0 {
			b.Tel.ReportWarning(report_batch_run, fmt.Sprintf("0 results for %s", name), err)
		}
		out = append(out, voter.NamedResults{Name: name, Results: results, Err: err})
	}
	return out, nil
}
