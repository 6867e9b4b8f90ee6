package commands

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"voterlookup/internal/sheetsync"
	"voterlookup/internal/voter"

	"github.com/stretchr/testify/require"
)

func TestRenderMetrics(t *testing.T) {
	var buf bytes.Buffer
	renderMetrics(&buf, voter.SyncMetrics{
		Updated:         2,
		SkippedAlready:  2,
		SkippedEmpty:    2,
		TotalConsidered: 6,
	}, sheetsync.Done)

	out := strings.ToLower(buf.String())
	require.Contains(t, out, "sync done")
	require.Contains(t, out, "total considered")
	require.Contains(t, out, "6")
}

func TestRenderResults(t *testing.T) {
	var buf bytes.Buffer
	renderResults(&buf, []voter.NamedResults{
		{
			Name: "Jane Smith",
			Results: []voter.SearchResult{{
				Name:    voter.Str("smith, jane"),
				Address: voter.Str("4 elm st"),
			}},
		},
		{Name: "Nobody", Results: []voter.SearchResult{}, Err: errors.New("timeout")},
	}, false)

	out := strings.ToLower(buf.String())
	require.Contains(t, out, "jane smith (1 results)")
	require.Contains(t, out, "smith, jane")
	require.Contains(t, out, "4 elm st")
	require.Contains(t, out, "nobody (0 results)")
	require.Contains(t, out, "search failed: timeout")
}
