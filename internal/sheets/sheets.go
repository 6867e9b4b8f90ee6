package sheets

import (
	"context"
	"fmt"
	"strings"

	"voterlookup/internal/voter"
)

// Sheet is the spreadsheet a sync run reads names from and writes results
// to. Columns are letters ("A", "AB"), rows are 1-based.
type Sheet interface {
	// ReadRows reads every row from startRow down to the last row that has
	// a name. AlreadyHasResult is true when the resultCol cell is non-blank.
	ReadRows(ctx context.Context, nameCol, resultCol string, startRow int) ([]voter.SheetRow, error)
	ReadCell(ctx context.Context, col string, row int) (string, error)
	// WriteRow writes values into consecutive cells starting at startCol.
	WriteRow(ctx context.Context, startCol string, row int, values []string) error

	ReadHeader(ctx context.Context, startCol string, width int) ([]string, error)
	WriteHeader(ctx context.Context, startCol string, labels []string) error
}

// ColumnIndex converts a column letter to its 1-based index, "A" is 1 and
// "AA" is 27.
func ColumnIndex(col string) (int, error) {
	col = strings.ToUpper(strings.TrimSpace(col))
	if col == "" {
		return 0, fmt.Errorf("%w: empty column letter", voter.ErrValidation)
	}
	idx := 0
	for _, r := range col {
		if r < 'A' || r > 'Z' {
			return 0, fmt.Errorf("%w: invalid column letter %q", voter.ErrValidation, col)
		}
		idx = idx*26 + int(r-'A'+1)
	}
	return idx, nil
}

// ColumnLetter is the inverse of ColumnIndex.
func ColumnLetter(idx int) string {
	if idx < 1 {
		return ""
	}
	var out []byte
	for idx > 0 {
		idx--
		out = append([]byte{byte('A' + idx%26)}, out...)
		idx /= 26
	}
	return string(out)
}

// Offset returns the column n columns to the right of col.
func Offset(col string, n int) (string, error) {
	idx, err := ColumnIndex(col)
	if err != nil {
		return "", err
	}
	return ColumnLetter(idx + n), nil
}

// NormalizeColumn validates a column letter and returns it uppercased.
func NormalizeColumn(col string) (string, error) {
	idx, err := ColumnIndex(col)
	if err != nil {
		return "", err
	}
	return ColumnLetter(idx), nil
}

func rowsFromColumns(names, results []string, startRow int) []voter.SheetRow {
	rows := make([]voter.SheetRow, 0, len(names))
	for i, name := range names {
		result := ""
		if i < len(results) {
			result = results[i]
		}
		rows = append(rows, voter.SheetRow{
			RowIndex:         startRow + i,
			Name:             strings.TrimSpace(name),
			AlreadyHasResult: strings.TrimSpace(result) != "",
		})
	}
	return rows
}
