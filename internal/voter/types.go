package voter

import (
	"fmt"
	"strings"
)

// SearchQuery is one portal lookup. Optional filters are blank when unset
// and are matched exactly by the portal, the name is a closest-match search.
type SearchQuery struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Phone   string `json:"phone,omitempty"`
	VoterID string `json:"voter_id,omitempty"`
}

func (q SearchQuery) Validate() error {
	if strings.TrimSpace(q.Name) == "" {
		return fmt.Errorf("%w: search name is blank", ErrValidation)
	}
	return nil
}

// Filters is the query without the name, it is shared by every name of a run.
type Filters struct {
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Phone   string `json:"phone,omitempty"`
	VoterID string `json:"voter_id,omitempty"`
}

func (f Filters) Query(name string) SearchQuery {
	return SearchQuery{
		Name:    name,
		Address: f.Address,
		City:    f.City,
		Zip:     f.Zip,
		Phone:   f.Phone,
		VoterID: f.VoterID,
	}
}

// SearchResult is one row of the portal's result table. Fields the page did
// not have are nil and encode as JSON null.
type SearchResult struct {
	Name            *string     `json:"name"`
	Address         *string     `json:"address"`
	City            *string     `json:"city"`
	State           *string     `json:"state"`
	ZipCode         *string     `json:"zip_code"`
	Phone           *string     `json:"phone"`
	DateOfBirth     *string     `json:"date_of_birth"`
	CalculatedParty *string     `json:"calculated_party"`
	DetailURL       *string     `json:"detail_url"`
	Detail          *DetailInfo `json:"detail"`
}

type PersonalInfo struct {
	FirstName  *string `json:"first_name"`
	MiddleName *string `json:"middle_name"`
	LastName   *string `json:"last_name"`
	Gender     *string `json:"gender"`
	Birthday   *string `json:"birthday"`
	Age        *string `json:"age"`
}

type ContactInfo struct {
	Email     *string `json:"email"`
	HomePhone *string `json:"home_phone"`
	WorkPhone *string `json:"work_phone"`
	CellPhone *string `json:"cell_phone"`
}

type RegistrationInfo struct {
	VoterID          *string `json:"voter_id"`
	RegistrationDate *string `json:"registration_date"`
	PartyAffiliation *string `json:"party_affiliation"`
	Status           *string `json:"status"`
	Precinct         *string `json:"precinct"`
}

type DistrictInfo struct {
	Congress    *string `json:"congress"`
	StateHouse  *string `json:"state_house"`
	StateSenate *string `json:"state_senate"`
}

type EmploymentInfo struct {
	Employer   *string `json:"employer"`
	Occupation *string `json:"occupation"`
}

// DetailInfo is what a record's own page adds on top of the result row.
type DetailInfo struct {
	Personal   PersonalInfo     `json:"personal"`
	Contact    ContactInfo      `json:"contact"`
	Voter      RegistrationInfo `json:"voter"`
	Districts  DistrictInfo     `json:"districts"`
	Employment EmploymentInfo   `json:"employment"`
}

// SheetRow is one spreadsheet row as read at plan time. RowIndex is the
// absolute 1-based sheet row and is never reassigned.
type SheetRow struct {
	RowIndex         int    `json:"row_index"`
	Name             string `json:"name"`
	AlreadyHasResult bool   `json:"already_has_result"`
}

// SyncMetrics is accumulated monotonically during a sync run.
type SyncMetrics struct {
	Updated         int `json:"updated"`
	SkippedAlready  int `json:"skipped_already"`
	SkippedEmpty    int `json:"skipped_empty"`
	TotalConsidered int `json:"total_considered"`

	// NoResults counts work items that wrote nothing because the search
	// came back empty or failed.
	NoResults int `json:"no_results"`
	// Rechecked counts work items skipped because their result cell was
	// filled between planning and processing. They are included in
	// SkippedAlready.
	Rechecked int `json:"rechecked"`
}

// NamedResults keeps the results of one input name, in input order.
type NamedResults struct {
	Name    string         `json:"name"`
	Results []SearchResult `json:"results"`
	Err     error          `json:"-"`
}

// Str returns a trimmed copy of s, or nil when s is blank or one of the
// portal's placeholders for a missing value.
func Str(s string) *string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "no data provided", "n/a", "none", "null", "-":
		return nil
	}
	return &s
}

// Deref returns the value of s or "" when it is nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
