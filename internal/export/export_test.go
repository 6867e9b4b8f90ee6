package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voterlookup/internal/components/chrono"
	"voterlookup/internal/voter"

	"github.com/stretchr/testify/require"
)

func sample() []voter.NamedResults {
	return []voter.NamedResults{
		{
			Name: "Zed Last",
			Results: []voter.SearchResult{{
				Name:    voter.Str("LAST, ZED"),
				Address: voter.Str("1 MAIN ST"),
				City:    voter.Str("HOUSTON"),
			}},
		},
		{Name: "Nobody"},
		{
			Name: "Jane Smith",
			Results: []voter.SearchResult{
				{
					Name:  voter.Str("SMITH, JANE"),
					Phone: voter.Str("(512) 555-0104"),
					Detail: &voter.DetailInfo{
						Personal: voter.PersonalInfo{FirstName: voter.Str("JANE")},
						Voter:    voter.RegistrationInfo{VoterID: voter.Str("TX123")},
					},
				},
				{Name: voter.Str("SMITH, JANET")},
			},
		},
	}
}

func TestDefaultFilename(t *testing.T) {
	clock := chrono.FixedTime{At: time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)}
	require.Equal(t, "voter_results_20240309_140507.json", DefaultFilename(JSON, clock))
	require.Equal(t, "voter_results_20240309_140507.csv", DefaultFilename(CSV, clock))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("csv")
	require.NoError(t, err)
	require.Equal(t, CSV, f)

	_, err = ParseFormat("xml")
	require.ErrorIs(t, err, voter.ErrValidation)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sample()))

	var decoded map[string][]map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 3)
	require.Empty(t, decoded["Nobody"])
	require.NotNil(t, decoded["Nobody"])

	zed := decoded["Zed Last"][0]
	require.Equal(t, "1 MAIN ST", zed["address"])
	// missing values stay as nulls
	require.Contains(t, zed, "phone")
	require.Nil(t, zed["phone"])
	require.Nil(t, zed["detail"])

	jane := decoded["Jane Smith"][0]
	detail := jane["detail"].(map[string]any)
	require.Equal(t, "JANE", detail["personal"].(map[string]any)["first_name"])

	// keys keep the search order
	out := buf.String()
	require.Less(t, strings.Index(out, `"Zed Last"`), strings.Index(out, `"Nobody"`))
	require.Less(t, strings.Index(out, `"Nobody"`), strings.Index(out, `"Jane Smith"`))
	require.True(t, strings.HasPrefix(out, "{\n  \"Zed Last\": [\n    {\n      \""))
}

func TestWriteJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	require.Equal(t, "{}\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, []voter.NamedResults{{Name: "Nobody"}}))
	require.Equal(t, "{\n  \"Nobody\": []\n}\n", buf.String())
}

func TestWriteJSONRepeatedName(t *testing.T) {
	results := []voter.NamedResults{
		{Name: "A", Results: []voter.SearchResult{{Name: voter.Str("first")}}},
		{Name: "B"},
		{Name: "A", Results: []voter.SearchResult{{Name: voter.Str("second")}}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, results))
	require.Equal(t, 1, strings.Count(buf.String(), `"A"`))
	require.Contains(t, buf.String(), "second")
	require.NotContains(t, buf.String(), "first")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	header := records[0]
	require.Equal(t, "search_name", header[0])
	require.IsNonDecreasing(t, header[1:])
	require.Contains(t, header, "detail_first_name")
	require.Contains(t, header, "detail_voter_id")
	require.Contains(t, header, "detail_url")
	require.NotContains(t, header, "detail")

	column := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		t.Fatalf("no column %s", name)
		return -1
	}

	require.Equal(t, "Zed Last", records[1][0])
	require.Equal(t, "1 MAIN ST", records[1][column("address")])
	require.Equal(t, "", records[1][column("detail_first_name")])

	require.Equal(t, "Jane Smith", records[2][0])
	require.Equal(t, "JANE", records[2][column("detail_first_name")])
	require.Equal(t, "TX123", records[2][column("detail_voter_id")])
	require.Equal(t, "(512) 555-0104", records[2][column("phone")])

	require.Equal(t, "SMITH, JANET", records[3][column("name")])
}

func TestWriteCSVBasicColumns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample()[:1]))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Equal(t, []string{
		"search_name", "address", "calculated_party", "city", "date_of_birth",
		"detail_url", "name", "phone", "state", "zip_code",
	}, records[0])
}

func TestWriteCSVNoResults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []voter.NamedResults{{Name: "Nobody"}}))
	require.Empty(t, buf.String())
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	written, err := WriteFile(path, JSON, sample(), chrono.NewStandardTime())
	require.NoError(t, err)
	require.Equal(t, path, written)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, json.Valid(data))
}
