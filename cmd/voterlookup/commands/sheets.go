package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"voterlookup/internal/components/chrono"
	"voterlookup/internal/components/telemetry"
	"voterlookup/internal/config"
	"voterlookup/internal/journal"
	"voterlookup/internal/portal"
	"voterlookup/internal/sheets"
	"voterlookup/internal/sheetsync"
	"voterlookup/internal/voter"
	"voterlookup/lib/serviceutil"

	"github.com/spf13/cobra"
)

var sheetsFlags struct {
	spreadsheetID      string
	sheetName          string
	nameColumn         string
	startRow           int
	resultsStartColumn string
	rowLimit           int
	dryRun             bool
	credentialsFile    string
}

func init() {
	flags := sheetsCmd.Flags()
	flags.StringVar(&sheetsFlags.spreadsheetID, "spreadsheet-id", "", "The spreadsheet to fill, the id in its url.")
	flags.StringVar(&sheetsFlags.sheetName, "sheet-name", "", "The tab to read, the first one by default.")
	flags.StringVar(&sheetsFlags.nameColumn, "name-column", "A", "The column holding the names to look up.")
	flags.IntVar(&sheetsFlags.startRow, "start-row", 2, "The first row with a name, row 1 gets the column headers when this is 2 or more.")
	flags.StringVar(&sheetsFlags.resultsStartColumn, "results-start-column", "", "The first column results are written to.")
	flags.IntVar(&sheetsFlags.rowLimit, "row-limit", 0, "Process at most this many rows, 0 means all of them.")
	flags.BoolVar(&sheetsFlags.dryRun, "dry-run", false, "Read the sheet and search, but only print what would be written.")
	flags.StringVar(&sheetsFlags.credentialsFile, "credentials-file", "", "A Google service account key, application default credentials are used otherwise.")

	historyCmd.Flags().Int64Var(&historyRun, "run", 0, "Show the rows of this run.")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "The number of runs to list.")
	sheetsCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(sheetsCmd)
}

func applySheetsFlags(cmd *cobra.Command, s *config.SheetsConfig) {
	flags := cmd.Flags()
	if flags.Changed("spreadsheet-id") {
		s.SpreadsheetID = sheetsFlags.spreadsheetID
	}
	if flags.Changed("sheet-name") {
		s.SheetName = sheetsFlags.sheetName
	}
	if flags.Changed("name-column") {
		s.NameColumn = sheetsFlags.nameColumn
	}
	if flags.Changed("start-row") {
		s.StartRow = sheetsFlags.startRow
	}
	if flags.Changed("results-start-column") {
		s.ResultsStartColumn = sheetsFlags.resultsStartColumn
	}
	if flags.Changed("row-limit") {
		s.RowLimit = sheetsFlags.rowLimit
	}
	if flags.Changed("credentials-file") {
		s.CredentialsFile = sheetsFlags.credentialsFile
	}
	s.DryRun = sheetsFlags.dryRun
}

var sheetsCmd = &cobra.Command{
	Use:   "sheets --spreadsheet-id <id> --results-start-column <col> [--name-column <col>] [--start-row <n>] [--row-limit <n>] [--dry-run]",
	Short: "Looks up every name in a spreadsheet column and writes the first match next to it.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadRunConfig(cmd, nil, func(cfg *config.RunConfig, file config.File) {
			cfg.Sheets = config.NewSheets(file)
			applySheetsFlags(cmd, cfg.Sheets)
		})
		if err != nil {
			serviceutil.Fatal("invalid configuration", err)
		}

		err = runSheets(cmd.Context(), cfg)
		if err != nil {
			serviceutil.Fatal("sync failed", err)
		}
	},
}

func openSheet(ctx context.Context, s *config.SheetsConfig, tel telemetry.API) (sheets.Sheet, error) {
	if s.DryRun && s.SpreadsheetID == "" {
		return sheets.NewDryRun(sheets.NewMemory()), nil
	}
	google, err := sheets.NewGoogle(ctx, sheets.GoogleOptions{
		SpreadsheetID:   s.SpreadsheetID,
		SheetName:       s.SheetName,
		CredentialsFile: s.CredentialsFile,
	}, tel)
	if err != nil {
		return nil, err
	}
	if s.DryRun {
		return sheets.NewDryRun(google), nil
	}
	return google, nil
}

func openJournal(stateDir string) (*journal.Journal, error) {
	err := os.MkdirAll(stateDir, 0755)
	if err != nil {
		return nil, err
	}
	return journal.Open(filepath.Join(stateDir, "journal.db"), chrono.NewStandardTime())
}

func runSheets(ctx context.Context, cfg config.RunConfig) error {
	tel := telemetry.SlogAPI{}

	lock, err := lockStateDir(cfg.StateDir)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	sheet, err := openSheet(ctx, cfg.Sheets, tel)
	if err != nil {
		return err
	}
	driver, err := newDriver(cfg, tel)
	if err != nil {
		return err
	}
	engine := sheetsync.NewEngine(sheet, driver, portal.Credentials{}, tel)
	engine.ResolveCredentials = func() (portal.Credentials, error) {
		return resolveCredentials(tel)
	}
	if !cfg.Sheets.DryRun {
		j, err := openJournal(cfg.StateDir)
		if err != nil {
			slog.Warn("running without a journal", "err", err)
		} else {
			defer j.Close()
			engine.Journal = j
		}
	}

	metrics, err := engine.Run(ctx, cfg)
	if dry, ok := sheet.(*sheets.DryRun); ok {
		renderDryRun(os.Stdout, dry, cfg)
	}
	renderMetrics(os.Stdout, metrics, engine.State())
	return withAuthHint(err)
}

// renderDryRun prints the rows a real run would have written.
func renderDryRun(w io.Writer, dry *sheets.DryRun, cfg config.RunConfig) {
	labels := voter.HeaderLabels(cfg.ExtractDetails)
	t := newTable(w)
	t.SetTitle("Dry run, nothing was written")

	header := []any{"Row"}
	for _, l := range labels {
		header = append(header, l)
	}
	t.AppendHeader(header)
	for _, row := range dry.Written.RowIndexes() {
		line := []any{row}
		for _, v := range dry.Written.Row(cfg.Sheets.ResultsStartColumn, row, len(labels)) {
			line = append(line, v)
		}
		t.AppendRow(line)
	}
	t.Render()
}

var (
	historyRun   int64
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history [--run <id>] [--limit <n>]",
	Short: "Lists past sheet runs, or the rows of one run.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		dir, err := stateDir(cmd)
		if err != nil {
			serviceutil.Fatal("invalid configuration", err)
		}
		j, err := openJournal(dir)
		if err != nil {
			serviceutil.Fatal("failed to open journal", err)
		}
		defer j.Close()

		if historyRun > 0 {
			err = renderEntries(cmd.Context(), os.Stdout, j, historyRun)
		} else {
			err = renderRuns(cmd.Context(), os.Stdout, j, historyLimit)
		}
		if err != nil {
			serviceutil.Fatal("failed to read journal", err)
		}
	},
}

func renderRuns(ctx context.Context, w io.Writer, j *journal.Journal, limit int) error {
	runs, err := j.Runs(ctx, limit)
	if err != nil {
		return err
	}
	t := newTable(w)
	t.AppendHeader([]any{"Run", "Started", "State", "Spreadsheet", "Updated", "No results", "Considered"})
	for _, r := range runs {
		sheet := r.Run.SpreadsheetID
		if r.Run.SheetName != "" {
			sheet = fmt.Sprintf("%s (%s)", sheet, r.Run.SheetName)
		}
		t.AppendRow([]any{
			r.ID,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.State,
			sheet,
			r.Metrics.Updated,
			r.Metrics.NoResults,
			r.Metrics.TotalConsidered,
		})
	}
	t.Render()
	return nil
}

func renderEntries(ctx context.Context, w io.Writer, j *journal.Journal, runID int64) error {
	entries, err := j.Entries(ctx, runID)
	if err != nil {
		return err
	}
	t := newTable(w)
	t.SetTitle(fmt.Sprintf("Run %d", runID))
	t.AppendHeader([]any{"Row", "Name", "Outcome", "Results"})
	for _, e := range entries {
		t.AppendRow([]any{e.RowIndex, e.Name, e.Outcome, e.Results})
	}
	t.Render()
	return nil
}
