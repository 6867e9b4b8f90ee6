package sheets

import (
	"context"
	"fmt"
	"strings"

	"voterlookup/internal/components/assert"
	"voterlookup/internal/components/telemetry"
	"voterlookup/internal/voter"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

const (
	report_google_read_rows = "google.read-rows"
	report_google_write_row = "google.write-row"
)

type GoogleOptions struct {
	SpreadsheetID string
	SheetName     string
	// CredentialsFile is a service account key. Application default
	// credentials are used when it is empty.
	CredentialsFile string
}

// Google is a Sheet backed by the Google Sheets v4 API.
type Google struct {
	svc           *gsheets.Service
	spreadsheetID string
	sheetName     string
	tel           telemetry.API
}

func NewGoogle(ctx context.Context, opts GoogleOptions, tel telemetry.API) (*Google, error) {
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.SpreadsheetID)

	clientOpts := []option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope)}
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	} else {
		creds, err := google.FindDefaultCredentials(ctx, gsheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf(
				"google credentials not found, run `gcloud auth application-default login --scopes=%s` or pass a service account file: %w",
				gsheets.SpreadsheetsScope, err,
			)
		}
		clientOpts = append(clientOpts, option.WithCredentials(creds))
	}

	svc, err := gsheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Google{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		sheetName:     opts.SheetName,
		tel:           telemetry.NewScopedAPI("sheets", tel),
	}, nil
}

// a1 builds an A1 range on the configured sheet, end may be empty.
func (g *Google) a1(start, end string) string {
	rng := start
	if end != "" {
		rng += ":" + end
	}
	if g.sheetName == "" {
		return rng
	}
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(g.sheetName, "'", "''"), rng)
}

func flatten(vr *gsheets.ValueRange) []string {
	if vr == nil {
		return nil
	}
	out := make([]string, len(vr.Values))
	for i, row := range vr.Values {
		if len(row) == 0 {
			continue
		}
		out[i] = fmt.Sprint(row[0])
	}
	return out
}

func (g *Google) ReadRows(ctx context.Context, nameCol, resultCol string, startRow int) ([]voter.SheetRow, error) {
	nameCol, err := NormalizeColumn(nameCol)
	if err != nil {
		return nil, err
	}
	resultCol, err = NormalizeColumn(resultCol)
	if err != nil {
		return nil, err
	}

	res, err := g.svc.Spreadsheets.Values.BatchGet(g.spreadsheetID).
		Ranges(
			g.a1(fmt.Sprintf("%s%d", nameCol, startRow), nameCol),
			g.a1(fmt.Sprintf("%s%d", resultCol, startRow), resultCol),
		).
		MajorDimension("ROWS").
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		g.tel.ReportBroken(report_google_read_rows, err, g.spreadsheetID)
		return nil, fmt.Errorf("%w: %w", voter.ErrSheetRead, err)
	}
	if len(res.ValueRanges) != 2 {
		err := fmt.Errorf("expected 2 value ranges, got %d", len(res.ValueRanges))
		g.tel.ReportBroken(report_google_read_rows, err, g.spreadsheetID)
		return nil, fmt.Errorf("%w: %w", voter.ErrSheetRead, err)
	}

	names := flatten(res.ValueRanges[0])
	results := flatten(res.ValueRanges[1])
	return rowsFromColumns(names, results, startRow), nil
}

func (g *Google) ReadCell(ctx context.Context, col string, row int) (string, error) {
	col, err := NormalizeColumn(col)
	if err != nil {
		return "", err
	}
	res, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, g.a1(fmt.Sprintf("%s%d", col, row), "")).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("%w: %w", voter.ErrSheetRead, err)
	}
	if len(res.Values) == 0 || len(res.Values[0]) == 0 {
		return "", nil
	}
	return fmt.Sprint(res.Values[0][0]), nil
}

func (g *Google) WriteRow(ctx context.Context, startCol string, row int, values []string) error {
	startCol, err := NormalizeColumn(startCol)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	endCol, err := Offset(startCol, len(values)-1)
	if err != nil {
		return err
	}

	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	rng := g.a1(fmt.Sprintf("%s%d", startCol, row), fmt.Sprintf("%s%d", endCol, row))

	_, err = g.svc.Spreadsheets.Values.Update(g.spreadsheetID, rng, &gsheets.ValueRange{
		MajorDimension: "ROWS",
		Values:         [][]any{cells},
	}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		g.tel.ReportBroken(report_google_write_row, err, rng)
		return fmt.Errorf("%w: %s: %w", voter.ErrSheetWrite, rng, err)
	}
	return nil
}

func (g *Google) ReadHeader(ctx context.Context, startCol string, width int) ([]string, error) {
	startCol, err := NormalizeColumn(startCol)
	if err != nil {
		return nil, err
	}
	endCol, err := Offset(startCol, width-1)
	if err != nil {
		return nil, err
	}
	res, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, g.a1(startCol+"1", endCol+"1")).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", voter.ErrSheetRead, err)
	}

	out := make([]string, width)
	if len(res.Values) > 0 {
		for i, v := range res.Values[0] {
			if i < width {
				out[i] = fmt.Sprint(v)
			}
		}
	}
	return out, nil
}

func (g *Google) WriteHeader(ctx context.Context, startCol string, labels []string) error {
	return g.WriteRow(ctx, startCol, 1, labels)
}
