package sheetsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"voterlookup/internal/components/assert"
	"voterlookup/internal/components/telemetry"
	"voterlookup/internal/config"
	"voterlookup/internal/journal"
	"voterlookup/internal/portal"
	"voterlookup/internal/search"
	"voterlookup/internal/sheets"
	"voterlookup/internal/voter"
	"voterlookup/lib/textutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("voterlookup/sheetsync")
var meter = otel.Meter("voterlookup/sheetsync")

var (
	updatedCounter, _   = meter.Int64Counter("voterlookup.rows.updated")
	skippedCounter, _   = meter.Int64Counter("voterlookup.rows.skipped")
	noResultsCounter, _ = meter.Int64Counter("voterlookup.rows.no_results")
)

const (
	report_engine_plan      = "engine.plan"
	report_engine_header    = "engine.header"
	report_engine_auth      = "engine.authenticate"
	report_engine_row       = "engine.row"
	report_engine_ambiguous = "engine.ambiguous"
	report_engine_journal   = "engine.journal"
	report_engine_marker    = "engine.marker"
)

type State int

const (
	Idle State = iota
	Planning
	Processing
	Done
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Planning:
		return "planning"
	case Processing:
		return "processing"
	case Done:
		return "done"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Journal records the outcome of every row a run touches.
type Journal interface {
	StartRun(ctx context.Context, run journal.Run) (int64, error)
	Record(ctx context.Context, runID int64, entry journal.Entry) error
	FinishRun(ctx context.Context, runID int64, state string, m voter.SyncMetrics) error
}

// Engine fills the result columns of a sheet, one name row at a time. Rows
// that already have a result are left alone, so an interrupted run can
// simply be started again.
type Engine struct {
	sheet  sheets.Sheet
	driver portal.Driver
	creds  portal.Credentials
	tel    telemetry.API

	// Journal is optional.
	Journal Journal
	// ResolveCredentials replaces the credentials given to NewEngine when
	// set. It is only called once the plan has work, a sheet with nothing
	// to do never asks for a login.
	ResolveCredentials func() (portal.Credentials, error)

	mu    sync.Mutex
	state State
}

func NewEngine(sheet sheets.Sheet, driver portal.Driver, creds portal.Credentials, tel telemetry.API) *Engine {
	assert.NotNil(sheet)
	assert.NotNil(driver)
	assert.NotNil(tel)

	return &Engine{
		sheet:  sheet,
		driver: driver,
		creds:  creds,
		tel:    telemetry.NewScopedAPI("sheetsync", tel),
	}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = s
}

// wrap makes sure err carries sentinel.
func wrap(sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// run is the state of one Run call.
type run struct {
	*Engine
	cfg       config.RunConfig
	resultCol string
	metrics   voter.SyncMetrics
	journal   Journal
	runID     int64
}

// Run plans the sheet and processes every work item in row order. The
// metrics of the work done so far are returned even when it fails.
func (e *Engine) Run(ctx context.Context, cfg config.RunConfig) (voter.SyncMetrics, error) {
	if cfg.Sheets == nil {
		return voter.SyncMetrics{}, fmt.Errorf("%w: sync needs a sheets configuration", voter.ErrValidation)
	}
	if e.State() != Idle {
		return voter.SyncMetrics{}, fmt.Errorf("engine already ran, state %s", e.State())
	}

	ctx, span := tracer.Start(ctx, "engine:Run")
	defer span.End()

	r := &run{Engine: e, cfg: cfg, resultCol: cfg.Sheets.ResultsStartColumn, journal: e.Journal}
	err := r.run(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		e.setState(Aborted)
	} else {
		e.setState(Done)
	}
	r.finishJournal(ctx)

	span.SetAttributes(
		attribute.Int("sync.updated", r.metrics.Updated),
		attribute.Int("sync.skipped_already", r.metrics.SkippedAlready),
		attribute.Int("sync.skipped_empty", r.metrics.SkippedEmpty),
		attribute.Int("sync.total_considered", r.metrics.TotalConsidered),
	)
	return r.metrics, err
}

func (r *run) run(ctx context.Context) error {
	s := r.cfg.Sheets

	r.setState(Planning)
	rows, err := r.sheet.ReadRows(ctx, s.NameColumn, r.resultCol, s.StartRow)
	if err != nil {
		r.tel.ReportBroken(report_engine_plan, err)
		return wrap(voter.ErrSheetRead, err)
	}
	plan := BuildPlan(rows, s.RowLimit)
	r.metrics = plan.Metrics()
	skippedCounter.Add(ctx, int64(plan.SkippedAlready), metric.WithAttributes(attribute.String("reason", "already")))
	skippedCounter.Add(ctx, int64(plan.SkippedEmpty), metric.WithAttributes(attribute.String("reason", "empty")))
	r.tel.ReportDebug(report_engine_plan, "work", len(plan.Work), "considered", plan.Considered)

	if s.StartRow >= 2 {
		if err := r.ensureHeader(ctx); err != nil {
			return err
		}
	}
	r.startJournal(ctx)

	if len(plan.Work) == 0 {
		return nil
	}

	creds := r.creds
	if r.ResolveCredentials != nil {
		creds, err = r.ResolveCredentials()
		if err != nil {
			r.tel.ReportBroken(report_engine_auth, err)
			return fmt.Errorf("portal credentials: %w", err)
		}
	}
	session, err := r.driver.Authenticate(ctx, creds)
	if err != nil {
		r.tel.ReportBroken(report_engine_auth, err)
		return wrap(voter.ErrAuth, err)
	}
	defer session.Close()

	executor := search.NewExecutor(r.driver, r.cfg.Pause, r.tel)

	r.setState(Processing)
	for _, item := range plan.Work {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.process(ctx, executor, session, item); err != nil {
			return err
		}
	}
	return nil
}

// ensureHeader writes the column labels into row 1 unless the first result
// header cell already has something in it.
func (r *run) ensureHeader(ctx context.Context) error {
	labels := voter.HeaderLabels(r.cfg.ExtractDetails)
	header, err := r.sheet.ReadHeader(ctx, r.resultCol, len(labels))
	if err != nil {
		r.tel.ReportBroken(report_engine_header, err)
		return wrap(voter.ErrSheetRead, err)
	}
	if len(header) > 0 && strings.TrimSpace(header[0]) != "" {
		return nil
	}
	err = r.sheet.WriteHeader(ctx, r.resultCol, labels)
	if err != nil {
		r.tel.ReportBroken(report_engine_header, err)
		return wrap(voter.ErrSheetWrite, err)
	}
	return nil
}

func (r *run) process(ctx context.Context, executor *search.Executor, session portal.Session, item voter.SheetRow) error {
	ctx, span := tracer.Start(ctx, "engine:process")
	defer span.End()
	span.SetAttributes(attribute.Int("row.index", item.RowIndex))

	// the sheet may have changed since it was planned
	current, err := r.sheet.ReadCell(ctx, r.resultCol, item.RowIndex)
	if err != nil {
		r.tel.ReportBroken(report_engine_row, err, item.RowIndex)
		return wrap(voter.ErrSheetRead, err)
	}
	if strings.TrimSpace(current) != "" {
		r.metrics.SkippedAlready++
		r.metrics.Rechecked++
		skippedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "rechecked")))
		r.record(ctx, item, journal.OutcomeRechecked, 0)
		return nil
	}

	results, err := executor.Execute(ctx, session, r.cfg.Filters.Query(item.Name), r.cfg.ExtractDetails)
	if err != nil && !voter.IsRecoverable(err) {
		r.record(ctx, item, journal.OutcomeFailed, 0)
		return err
	}
	if len(results) == 0 {
		r.metrics.NoResults++
		noResultsCounter.Add(ctx, 1)
		r.tel.ReportWarning(report_engine_row, fmt.Sprintf("0 results for %s", item.Name), item.RowIndex, err)
		r.record(ctx, item, journal.OutcomeNoResults, 0)
		return nil
	}

	chosen := results[0]
	if len(results) > 1 {
		r.tel.ReportWarning(
			report_engine_ambiguous,
			fmt.Sprintf("%d results for %s, writing the first", len(results), item.Name),
			item.RowIndex,
			voter.Deref(chosen.Name),
			fmt.Sprintf("similarity %.2f", textutil.NameSimilarity(item.Name, voter.Deref(chosen.Name))),
		)
	}

	values := voter.RowValues(chosen, r.cfg.ExtractDetails)
	if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
		// the row still looks unprocessed to the next run's plan
		r.tel.ReportWarning(
			report_engine_marker,
			fmt.Sprintf("result for %s has no %s, the row will be searched again next run", item.Name, voter.HeaderLabels(false)[0]),
			item.RowIndex,
		)
	}
	err = r.sheet.WriteRow(ctx, r.resultCol, item.RowIndex, values)
	if err != nil {
		r.tel.ReportBroken(report_engine_row, err, item.RowIndex)
		r.record(ctx, item, journal.OutcomeFailed, len(results))
		return wrap(voter.ErrSheetWrite, err)
	}

	r.metrics.Updated++
	updatedCounter.Add(ctx, 1)
	r.record(ctx, item, journal.OutcomeUpdated, len(results))
	return nil
}

func (r *run) startJournal(ctx context.Context) {
	if r.journal == nil {
		return
	}
	id, err := r.journal.StartRun(ctx, journal.Run{
		SpreadsheetID: r.cfg.Sheets.SpreadsheetID,
		SheetName:     r.cfg.Sheets.SheetName,
	})
	if err != nil {
		r.tel.ReportWarning(report_engine_journal, err)
		r.journal = nil
		return
	}
	r.runID = id
}

func (r *run) record(ctx context.Context, item voter.SheetRow, outcome journal.Outcome, results int) {
	if r.journal == nil {
		return
	}
	err := r.journal.Record(ctx, r.runID, journal.Entry{
		RowIndex: item.RowIndex,
		Name:     item.Name,
		Outcome:  outcome,
		Results:  results,
	})
	if err != nil {
		r.tel.ReportWarning(report_engine_journal, err)
	}
}

func (r *run) finishJournal(ctx context.Context) {
	if r.journal == nil || r.runID == 0 {
		return
	}
	// the run's ctx may be the reason it stopped
	err := r.journal.FinishRun(context.WithoutCancel(ctx), r.runID, r.State().String(), r.metrics)
	if err != nil {
		r.tel.ReportWarning(report_engine_journal, err)
	}
}
