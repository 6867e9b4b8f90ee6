package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{input: "John Doe", expected: "john doe"},
		{input: "  JOHN   Doe\t", expected: "john doe"},
		{input: "\n", expected: ""},
	}
	for _, row := range table {
		require.Equal(t, row.expected, NormalizeName(row.input))
	}
}

func TestNameSimilarity(t *testing.T) {
	require.Equal(t, 1.0, NameSimilarity("John Doe", " JOHN  DOE "))
	require.Less(t, NameSimilarity("John Doe", "Alice Cooper"), 0.7)
	require.Equal(t, 0.0, NameSimilarity("", "John Doe"))
}

func TestIsBlank(t *testing.T) {
	require.True(t, IsBlank(" \t"))
	require.False(t, IsBlank(" a "))
}
