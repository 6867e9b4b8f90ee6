package sheets

import (
	"context"
	"errors"
	"testing"

	"voterlookup/internal/voter"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestColumnLetters(t *testing.T) {
	cases := []struct {
		letter string
		index  int
	}{
		{"A", 1},
		{"Z", 26},
		{"AA", 27},
		{"AZ", 52},
		{"BA", 53},
		{"ZZ", 702},
		{"AAA", 703},
	}
	for _, c := range cases {
		idx, err := ColumnIndex(c.letter)
		require.NoError(t, err)
		require.Equal(t, c.index, idx, c.letter)
		require.Equal(t, c.letter, ColumnLetter(c.index))
	}

	idx, err := ColumnIndex(" d ")
	require.NoError(t, err)
	require.Equal(t, 4, idx)

	for _, bad := range []string{"", "A1", "-", "Ä"} {
		_, err := ColumnIndex(bad)
		require.ErrorIs(t, err, voter.ErrValidation, bad)
	}

	col, err := Offset("Y", 3)
	require.NoError(t, err)
	require.Equal(t, "AB", col)
}

func TestMemoryReadRows(t *testing.T) {
	sheet := NewMemory()
	sheet.Set("A", 1, "Name")
	sheet.Set("A", 2, "John Doe")
	sheet.Set("A", 4, "Jane Roe")
	sheet.Set("D", 4, "(713) 555-0100")
	sheet.Set("A", 5, "  ")

	rows, err := sheet.ReadRows(context.Background(), "A", "D", 2)
	require.NoError(t, err)

	expected := []voter.SheetRow{
		{RowIndex: 2, Name: "John Doe"},
		{RowIndex: 3, Name: ""},
		{RowIndex: 4, Name: "Jane Roe", AlreadyHasResult: true},
		{RowIndex: 5, Name: ""},
	}
	if diff := cmp.Diff(expected, rows); diff != "" {
		t.Fatal(diff)
	}
}

func TestMemoryWriteRow(t *testing.T) {
	sheet := NewMemory()
	ctx := context.Background()

	require.NoError(t, sheet.WriteRow(ctx, "C", 7, []string{"a", "", "c"}))
	require.Equal(t, []string{"a", "", "c"}, sheet.Row("C", 7, 3))

	cell, err := sheet.ReadCell(ctx, "E", 7)
	require.NoError(t, err)
	require.Equal(t, "c", cell)

	sheet.FailWrite = func(row int) error { return errors.New("quota exceeded") }
	err = sheet.WriteRow(ctx, "C", 8, []string{"x"})
	require.ErrorIs(t, err, voter.ErrSheetWrite)
	require.Equal(t, "", sheet.Get("C", 8))
}

func TestDryRunLeavesBaseUntouched(t *testing.T) {
	base := NewMemory()
	base.Set("A", 2, "John Doe")
	base.Set("A", 3, "Jane Roe")
	ctx := context.Background()

	dry := NewDryRun(base)
	require.NoError(t, dry.WriteHeader(ctx, "B", []string{"Phone", "Address"}))
	require.NoError(t, dry.WriteRow(ctx, "B", 2, []string{"555", "MAIN"}))

	require.Equal(t, "", base.Get("B", 2))
	require.Equal(t, "", base.Get("B", 1))

	header, err := dry.ReadHeader(ctx, "B", 2)
	require.NoError(t, err)
	require.Equal(t, []string{"Phone", "Address"}, header)

	rows, err := dry.ReadRows(ctx, "A", "B", 2)
	require.NoError(t, err)
	require.True(t, rows[0].AlreadyHasResult)
	require.False(t, rows[1].AlreadyHasResult)

	cell, err := dry.ReadCell(ctx, "B", 2)
	require.NoError(t, err)
	require.Equal(t, "555", cell)
}

func TestMemoryRowIndexes(t *testing.T) {
	sheet := NewMemory()
	require.Empty(t, sheet.RowIndexes())

	sheet.Set("B", 9, "x")
	sheet.Set("A", 3, "y")
	sheet.Set("C", 5, "")
	require.Equal(t, []int{3, 9}, sheet.RowIndexes())
}
