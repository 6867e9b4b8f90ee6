// Package journal keeps a local sqlite record of sync runs, what each row
// ended up as and when.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"voterlookup/internal/components/assert"
	"voterlookup/internal/components/chrono"
	"voterlookup/internal/voter"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

type Outcome string

const (
	OutcomeUpdated   Outcome = "updated"
	OutcomeNoResults Outcome = "no_results"
	OutcomeRechecked Outcome = "rechecked"
	OutcomeFailed    Outcome = "failed"
)

type Run struct {
	SpreadsheetID string
	SheetName     string
}

type Entry struct {
	RowIndex int
	Name     string
	Outcome  Outcome
	Results  int
}

// RunSummary is a finished or interrupted run as stored.
type RunSummary struct {
	ID         int64
	Run        Run
	StartedAt  time.Time
	FinishedAt *time.Time
	State      string
	Metrics    voter.SyncMetrics
}

type Journal struct {
	db    *sql.DB
	clock chrono.TimeAPI
}

// Open opens (and creates) the journal at path, ":memory:" keeps it in
// memory.
func Open(path string, clock chrono.TimeAPI) (*Journal, error) {
	assert.NotNil(clock)

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// a single connection, an in-memory database only exists on it
	db.SetMaxOpenConns(1)

	_, err = db.Exec(schema)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	return &Journal{db: db, clock: clock}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func (j *Journal) StartRun(ctx context.Context, run Run) (int64, error) {
	res, err := j.db.ExecContext(ctx,
		`insert into run(spreadsheet_id, sheet_name, started_at) values (?, ?, ?)`,
		run.SpreadsheetID, run.SheetName, j.clock.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("start run: %w", err)
	}
	return res.LastInsertId()
}

func (j *Journal) Record(ctx context.Context, runID int64, entry Entry) error {
	_, err := j.db.ExecContext(ctx,
		`insert into row_event(run_id, row_index, name, outcome, results, at) values (?, ?, ?, ?, ?, ?)`,
		runID, entry.RowIndex, entry.Name, string(entry.Outcome), entry.Results, j.clock.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("record row %d: %w", entry.RowIndex, err)
	}
	return nil
}

func (j *Journal) FinishRun(ctx context.Context, runID int64, state string, m voter.SyncMetrics) error {
	_, err := j.db.ExecContext(ctx,
		`update run set
			finished_at = ?, state = ?,
			updated = ?, skipped_already = ?, skipped_empty = ?,
			total_considered = ?, no_results = ?, rechecked = ?
		where id = ?`,
		j.clock.Now().Unix(), state,
		m.Updated, m.SkippedAlready, m.SkippedEmpty,
		m.TotalConsidered, m.NoResults, m.Rechecked,
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run %d: %w", runID, err)
	}
	return nil
}

// Runs returns the most recent runs first.
func (j *Journal) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := j.db.QueryContext(ctx,
		`select id, spreadsheet_id, sheet_name, started_at, finished_at, state,
			updated, skipped_already, skipped_empty, total_considered, no_results, rechecked
		from run order by id desc limit ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			s        RunSummary
			started  int64
			finished sql.NullInt64
		)
		err := rows.Scan(
			&s.ID, &s.Run.SpreadsheetID, &s.Run.SheetName, &started, &finished, &s.State,
			&s.Metrics.Updated, &s.Metrics.SkippedAlready, &s.Metrics.SkippedEmpty,
			&s.Metrics.TotalConsidered, &s.Metrics.NoResults, &s.Metrics.Rechecked,
		)
		if err != nil {
			return nil, err
		}
		s.StartedAt = time.Unix(started, 0)
		if finished.Valid {
			at := time.Unix(finished.Int64, 0)
			s.FinishedAt = &at
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Entries returns the row events of a run in the order they happened.
func (j *Journal) Entries(ctx context.Context, runID int64) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`select row_index, name, outcome, results from row_event where run_id = ? order by rowid`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			outcome string
		)
		if err := rows.Scan(&e.RowIndex, &e.Name, &outcome, &e.Results); err != nil {
			return nil, err
		}
		e.Outcome = Outcome(outcome)
		out = append(out, e)
	}
	return out, rows.Err()
}
