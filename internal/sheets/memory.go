package sheets

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"voterlookup/internal/voter"
)

// Memory is a Sheet held in memory. It backs tests and dry runs.
type Memory struct {
	mu    sync.Mutex
	cells map[int]map[int]string

	// FailWrite, when set, is consulted before every write and a non-nil
	// error fails it.
	FailWrite func(row int) error
}

func NewMemory() *Memory {
	return &Memory{cells: map[int]map[int]string{}}
}

// Set writes a single cell, it panics on an invalid column letter.
func (m *Memory) Set(col string, row int, value string) {
	idx, err := ColumnIndex(col)
	if err != nil {
		panic(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(idx, row, value)
}

func (m *Memory) set(col, row int, value string) {
	cols, ok := m.cells[row]
	if !ok {
		cols = map[int]string{}
		m.cells[row] = cols
	}
	cols[col] = value
}

func (m *Memory) get(col, row int) string {
	return m.cells[row][col]
}

// Get reads a single cell, it panics on an invalid column letter.
func (m *Memory) Get(col string, row int) string {
	idx, err := ColumnIndex(col)
	if err != nil {
		panic(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(idx, row)
}

// Row returns width cells of a row starting at startCol.
func (m *Memory) Row(startCol string, row, width int) []string {
	idx, err := ColumnIndex(startCol)
	if err != nil {
		panic(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, width)
	for i := range out {
		out[i] = m.get(idx+i, row)
	}
	return out
}

// RowIndexes lists the rows holding at least one value, ascending.
func (m *Memory) RowIndexes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []int
	for row, cols := range m.cells {
		for _, v := range cols {
			if v != "" {
				rows = append(rows, row)
				break
			}
		}
	}
	slices.Sort(rows)
	return rows
}

func (m *Memory) lastRow(col int) int {
	last := 0
	for row, cols := range m.cells {
		if cols[col] != "" && row > last {
			last = row
		}
	}
	return last
}

func (m *Memory) ReadRows(ctx context.Context, nameCol, resultCol string, startRow int) ([]voter.SheetRow, error) {
	nameIdx, err := ColumnIndex(nameCol)
	if err != nil {
		return nil, err
	}
	resultIdx, err := ColumnIndex(resultCol)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", voter.ErrSheetRead, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var names, results []string
	for row := startRow; row <= m.lastRow(nameIdx); row++ {
		names = append(names, m.get(nameIdx, row))
		results = append(results, m.get(resultIdx, row))
	}
	return rowsFromColumns(names, results, startRow), nil
}

func (m *Memory) ReadCell(ctx context.Context, col string, row int) (string, error) {
	idx, err := ColumnIndex(col)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(idx, row), nil
}

func (m *Memory) WriteRow(ctx context.Context, startCol string, row int, values []string) error {
	idx, err := ColumnIndex(startCol)
	if err != nil {
		return err
	}
	if m.FailWrite != nil {
		if err := m.FailWrite(row); err != nil {
			return fmt.Errorf("%w: %w", voter.ErrSheetWrite, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, v := range values {
		m.set(idx+i, row, v)
	}
	return nil
}

func (m *Memory) ReadHeader(ctx context.Context, startCol string, width int) ([]string, error) {
	if _, err := ColumnIndex(startCol); err != nil {
		return nil, err
	}
	return m.Row(startCol, 1, width), nil
}

func (m *Memory) WriteHeader(ctx context.Context, startCol string, labels []string) error {
	return m.WriteRow(ctx, startCol, 1, labels)
}
