package voter

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestColumnOrder(t *testing.T) {
	keys := func(cols []Column) []string {
		out := make([]string, len(cols))
		for i, c := range cols {
			out[i] = c.Key
		}
		return out
	}

	require.Equal(t, []string{
		"phone", "address", "city", "state", "zip",
		"date_of_birth", "calculated_party", "detail_url",
	}, keys(Columns(false)))

	require.Equal(t, []string{
		"phone", "address", "city", "state", "zip",
		"date_of_birth", "calculated_party", "detail_url",
		"first_name", "middle_name", "last_name", "email",
		"home_phone", "work_phone", "cell_phone", "voter_id",
		"party_affiliation", "precinct", "registration_date",
		"gender", "employer", "occupation",
	}, keys(Columns(true)))

	require.Len(t, HeaderLabels(true), 22)
	require.Equal(t, "Phone", HeaderLabels(false)[0])
}

func TestColumnRoundTrip(t *testing.T) {
	basic := SearchResult{
		Phone:           ptr("(713) 555-0100"),
		Address:         ptr("123 MAIN ST"),
		City:            ptr("HOUSTON"),
		State:           ptr("TX"),
		ZipCode:         ptr("77001"),
		DateOfBirth:     ptr("01/02/1960"),
		CalculatedParty: nil,
		DetailURL:       ptr("https://example.test/RecordMaintenance.aspx?id=7"),
	}

	values := RowValues(basic, false)
	require.Equal(t, "", values[6])
	if diff := cmp.Diff(basic, FromRowValues(values, false)); diff != "" {
		t.Fatal(diff)
	}

	extended := basic
	extended.Detail = &DetailInfo{
		Personal:   PersonalInfo{FirstName: ptr("JOHN"), LastName: ptr("DOE"), Gender: ptr("M")},
		Contact:    ContactInfo{Email: ptr("j@example.test"), CellPhone: ptr("(713) 555-0199")},
		Voter:      RegistrationInfo{VoterID: ptr("123456"), PartyAffiliation: ptr("REP"), Precinct: ptr("0042"), RegistrationDate: ptr("2001-03-04")},
		Employment: EmploymentInfo{Employer: ptr("ACME"), Occupation: ptr("WELDER")},
	}

	values = RowValues(extended, true)
	require.Len(t, values, 22)
	require.Equal(t, "JOHN", values[8])
	require.Equal(t, "WELDER", values[21])
	if diff := cmp.Diff(extended, FromRowValues(values, true)); diff != "" {
		t.Fatal(diff)
	}
}

func TestResultJSONKeepsNulls(t *testing.T) {
	encoded, err := json.Marshal(SearchResult{Name: ptr("JOHN DOE")})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	for _, key := range []string{"address", "city", "state", "zip_code", "phone", "date_of_birth", "calculated_party", "detail_url", "detail"} {
		value, ok := decoded[key]
		require.True(t, ok, key)
		require.Nil(t, value, key)
	}
}

func TestStr(t *testing.T) {
	require.Nil(t, Str("  "))
	require.Nil(t, Str("No Data Provided"))
	require.Nil(t, Str("N/A"))
	require.Equal(t, "TX", *Str(" TX "))
}
