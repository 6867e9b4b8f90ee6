package sheets

import (
	"context"
	"strings"

	"voterlookup/internal/voter"
)

// DryRun reads from a real sheet and keeps writes in memory, so a run can
// be previewed without touching the spreadsheet.
type DryRun struct {
	base    Sheet
	Written *Memory
}

func NewDryRun(base Sheet) *DryRun {
	return &DryRun{base: base, Written: NewMemory()}
}

func (d *DryRun) ReadRows(ctx context.Context, nameCol, resultCol string, startRow int) ([]voter.SheetRow, error) {
	rows, err := d.base.ReadRows(ctx, nameCol, resultCol, startRow)
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if d.Written.Get(resultCol, row.RowIndex) != "" {
			rows[i].AlreadyHasResult = true
		}
	}
	return rows, nil
}

func (d *DryRun) ReadCell(ctx context.Context, col string, row int) (string, error) {
	if v, _ := d.Written.ReadCell(ctx, col, row); v != "" {
		return v, nil
	}
	return d.base.ReadCell(ctx, col, row)
}

func (d *DryRun) WriteRow(ctx context.Context, startCol string, row int, values []string) error {
	return d.Written.WriteRow(ctx, startCol, row, values)
}

func (d *DryRun) ReadHeader(ctx context.Context, startCol string, width int) ([]string, error) {
	written := d.Written.Row(startCol, 1, width)
	if strings.Join(written, "") != "" {
		return written, nil
	}
	return d.base.ReadHeader(ctx, startCol, width)
}

func (d *DryRun) WriteHeader(ctx context.Context, startCol string, labels []string) error {
	return d.Written.WriteHeader(ctx, startCol, labels)
}
