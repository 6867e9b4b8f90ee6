package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voterlookup/internal/sheets"
	"voterlookup/internal/voter"
	"voterlookup/lib/configutil"
)

const (
	FileName         = "voterlookup.json5"
	DefaultPortalURL = "https://www.gopdatacenter.com/rnc/RecordLookup/RecordLookup.aspx"
)

type Backend string

const (
	BackendWebforms Backend = "webforms"
	BackendBrowser  Backend = "browser"
)

type ExportFormat string

const (
	ExportNone ExportFormat = ""
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
)

// File is the on-disk configuration, every field can be overridden by a
// command line flag.
type File struct {
	PortalURL         string  `json:"portal_url"`
	Backend           string  `json:"backend"`
	StateDir          string  `json:"state_dir"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	// PauseMillis is the pause between two consecutive searches.
	PauseMillis int        `json:"pause_ms"`
	Sheets      FileSheets `json:"sheets"`
}

type FileSheets struct {
	SpreadsheetID      string `json:"spreadsheet_id"`
	SheetName          string `json:"sheet_name"`
	NameColumn         string `json:"name_column"`
	ResultsStartColumn string `json:"results_start_column"`
	StartRow           int    `json:"start_row"`
	RowLimit           int    `json:"row_limit"`
	CredentialsFile    string `json:"credentials_file"`
}

// Load reads the configuration file at path, or searches for FileName
// from the working directory upwards when path is empty. A missing file is
// not an error.
func Load(path string) (File, error) {
	var (
		file File
		err  error
	)
	if path == "" {
		file, err = configutil.ReadRecursively[File](FileName)
	} else {
		file, err = configutil.ReadConfig[File](path)
	}
	if errors.Is(err, os.ErrNotExist) {
		return File{}, nil
	}
	if err != nil {
		return File{}, fmt.Errorf("%w: %w", voter.ErrValidation, err)
	}
	return file, nil
}

// SheetsConfig is only set in sheets mode.
type SheetsConfig struct {
	SpreadsheetID      string
	SheetName          string
	NameColumn         string
	StartRow           int
	ResultsStartColumn string
	// RowLimit caps the number of work items, 0 means unlimited. A work
	// item whose result cell is found filled when its turn comes still
	// counts toward the limit, so a run can update fewer rows than that.
	RowLimit        int
	DryRun          bool
	CredentialsFile string
}

// RunConfig is everything one invocation needs, it is passed explicitly to
// every layer.
type RunConfig struct {
	// Names are the lookups of a plain search run, sheets mode reads them
	// from the spreadsheet instead.
	Names          []string
	Filters        voter.Filters
	ExtractDetails bool
	Debug          bool
	Backend        Backend

	Export ExportFormat
	Output string

	Sheets *SheetsConfig

	PortalURL         string
	StateDir          string
	RequestsPerSecond float64
	Pause             time.Duration
}

// New starts a run from the file values, command line flags are applied
// on top by the caller.
func New(f File) RunConfig {
	c := RunConfig{
		PortalURL:         f.PortalURL,
		Backend:           Backend(f.Backend),
		StateDir:          f.StateDir,
		RequestsPerSecond: f.RequestsPerSecond,
	}
	if f.PauseMillis > 0 {
		c.Pause = time.Duration(f.PauseMillis) * time.Millisecond
	}
	return c
}

// NewSheets is New for the sheets section, a start row of 2 keeps row 1
// free for the header.
func NewSheets(f File) *SheetsConfig {
	s := &SheetsConfig{
		SpreadsheetID:      f.Sheets.SpreadsheetID,
		SheetName:          f.Sheets.SheetName,
		NameColumn:         f.Sheets.NameColumn,
		ResultsStartColumn: f.Sheets.ResultsStartColumn,
		StartRow:           f.Sheets.StartRow,
		RowLimit:           f.Sheets.RowLimit,
		CredentialsFile:    f.Sheets.CredentialsFile,
	}
	if s.NameColumn == "" {
		s.NameColumn = "A"
	}
	if s.StartRow == 0 {
		s.StartRow = 2
	}
	return s
}

// DefaultStateDir is voterlookup under the user cache dir.
func DefaultStateDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "voterlookup")
	}
	return filepath.Join(dir, "voterlookup")
}

// Validate fills defaults and checks the run. Every failure wraps
// voter.ErrValidation and happens before any portal or sheet work.
func (c *RunConfig) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", voter.ErrValidation, fmt.Sprintf(format, args...))
	}

	if c.PortalURL == "" {
		c.PortalURL = DefaultPortalURL
	}
	if c.Backend == "" {
		c.Backend = BackendWebforms
	}
	switch c.Backend {
	case BackendWebforms, BackendBrowser:
	default:
		return invalid("unknown backend %q", c.Backend)
	}
	switch c.Export {
	case ExportNone, ExportJSON, ExportCSV:
	default:
		return invalid("unknown export format %q", c.Export)
	}
	if c.StateDir == "" {
		c.StateDir = DefaultStateDir()
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 2
	}
	if c.Pause <= 0 {
		c.Pause = time.Second
	}

	if c.Sheets == nil {
		names := c.Names[:0]
		for _, n := range c.Names {
			n = strings.TrimSpace(n)
			if n != "" {
				names = append(names, n)
			}
		}
		c.Names = names
		if len(c.Names) == 0 {
			return invalid("at least one name is required")
		}
		return nil
	}

	s := c.Sheets
	if s.SpreadsheetID == "" && !s.DryRun {
		return invalid("a spreadsheet id is required")
	}
	if s.ResultsStartColumn == "" {
		return invalid("a results start column is required in sheets mode")
	}
	if s.NameColumn == "" {
		s.NameColumn = "A"
	}
	var err error
	s.NameColumn, err = sheets.NormalizeColumn(s.NameColumn)
	if err != nil {
		return err
	}
	s.ResultsStartColumn, err = sheets.NormalizeColumn(s.ResultsStartColumn)
	if err != nil {
		return err
	}
	if s.StartRow < 1 {
		return invalid("start row must be at least 1, got %d", s.StartRow)
	}
	if s.RowLimit < 0 {
		return invalid("row limit cannot be negative, got %d", s.RowLimit)
	}
	return nil
}
