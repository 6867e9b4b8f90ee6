package voter

// Column is one spreadsheet output column of the fixed column contract.
type Column struct {
	Key   string
	Label string
	get   func(SearchResult) *string
	set   func(*SearchResult, *string)
}

func detail(r *SearchResult) *DetailInfo {
	if r.Detail == nil {
		r.Detail = &DetailInfo{}
	}
	return r.Detail
}

func fromDetail(get func(*DetailInfo) *string) func(SearchResult) *string {
	return func(r SearchResult) *string {
		if r.Detail == nil {
			return nil
		}
		return get(r.Detail)
	}
}

// BasicColumns are always written, in this order.
var BasicColumns = []Column{
	{"phone", "Phone",
		func(r SearchResult) *string { return r.Phone },
		func(r *SearchResult, v *string) { r.Phone = v }},
	{"address", "Address",
		func(r SearchResult) *string { return r.Address },
		func(r *SearchResult, v *string) { r.Address = v }},
	{"city", "City",
		func(r SearchResult) *string { return r.City },
		func(r *SearchResult, v *string) { r.City = v }},
	{"state", "State",
		func(r SearchResult) *string { return r.State },
		func(r *SearchResult, v *string) { r.State = v }},
	{"zip", "Zip",
		func(r SearchResult) *string { return r.ZipCode },
		func(r *SearchResult, v *string) { r.ZipCode = v }},
	{"date_of_birth", "Date of Birth",
		func(r SearchResult) *string { return r.DateOfBirth },
		func(r *SearchResult, v *string) { r.DateOfBirth = v }},
	{"calculated_party", "Calculated Party",
		func(r SearchResult) *string { return r.CalculatedParty },
		func(r *SearchResult, v *string) { r.CalculatedParty = v }},
	{"detail_url", "Detail URL",
		func(r SearchResult) *string { return r.DetailURL },
		func(r *SearchResult, v *string) { r.DetailURL = v }},
}

// ExtendedColumns follow BasicColumns when details are extracted.
var ExtendedColumns = []Column{
	{"first_name", "First Name",
		fromDetail(func(d *DetailInfo) *string { return d.Personal.FirstName }),
		func(r *SearchResult, v *string) { detail(r).Personal.FirstName = v }},
	{"middle_name", "Middle Name",
		fromDetail(func(d *DetailInfo) *string { return d.Personal.MiddleName }),
		func(r *SearchResult, v *string) { detail(r).Personal.MiddleName = v }},
	{"last_name", "Last Name",
		fromDetail(func(d *DetailInfo) *string { return d.Personal.LastName }),
		func(r *SearchResult, v *string) { detail(r).Personal.LastName = v }},
	{"email", "Email",
		fromDetail(func(d *DetailInfo) *string { return d.Contact.Email }),
		func(r *SearchResult, v *string) { detail(r).Contact.Email = v }},
	{"home_phone", "Home Phone",
		fromDetail(func(d *DetailInfo) *string { return d.Contact.HomePhone }),
		func(r *SearchResult, v *string) { detail(r).Contact.HomePhone = v }},
	{"work_phone", "Work Phone",
		fromDetail(func(d *DetailInfo) *string { return d.Contact.WorkPhone }),
		func(r *SearchResult, v *string) { detail(r).Contact.WorkPhone = v }},
	{"cell_phone", "Cell Phone",
		fromDetail(func(d *DetailInfo) *string { return d.Contact.CellPhone }),
		func(r *SearchResult, v *string) { detail(r).Contact.CellPhone = v }},
	{"voter_id", "Voter ID",
		fromDetail(func(d *DetailInfo) *string { return d.Voter.VoterID }),
		func(r *SearchResult, v *string) { detail(r).Voter.VoterID = v }},
	{"party_affiliation", "Party Affiliation",
		fromDetail(func(d *DetailInfo) *string { return d.Voter.PartyAffiliation }),
		func(r *SearchResult, v *string) { detail(r).Voter.PartyAffiliation = v }},
	{"precinct", "Precinct",
		fromDetail(func(d *DetailInfo) *string { return d.Voter.Precinct }),
		func(r *SearchResult, v *string) { detail(r).Voter.Precinct = v }},
	{"registration_date", "Registration Date",
		fromDetail(func(d *DetailInfo) *string { return d.Voter.RegistrationDate }),
		func(r *SearchResult, v *string) { detail(r).Voter.RegistrationDate = v }},
	{"gender", "Gender",
		fromDetail(func(d *DetailInfo) *string { return d.Personal.Gender }),
		func(r *SearchResult, v *string) { detail(r).Personal.Gender = v }},
	{"employer", "Employer",
		fromDetail(func(d *DetailInfo) *string { return d.Employment.Employer }),
		func(r *SearchResult, v *string) { detail(r).Employment.Employer = v }},
	{"occupation", "Occupation",
		fromDetail(func(d *DetailInfo) *string { return d.Employment.Occupation }),
		func(r *SearchResult, v *string) { detail(r).Employment.Occupation = v }},
}

// Columns returns the output columns of a run in contract order.
func Columns(extended bool) []Column {
	if !extended {
		return BasicColumns
	}
	out := make([]Column, 0, len(BasicColumns)+len(ExtendedColumns))
	out = append(out, BasicColumns...)
	return append(out, ExtendedColumns...)
}

func HeaderLabels(extended bool) []string {
	cols := Columns(extended)
	labels := make([]string, len(cols))
	for i, c := range cols {
		labels[i] = c.Label
	}
	return labels
}

// RowValues renders a result as the cells of one sheet row, nil fields
// become empty cells.
func RowValues(r SearchResult, extended bool) []string {
	cols := Columns(extended)
	values := make([]string, len(cols))
	for i, c := range cols {
		values[i] = Deref(c.get(r))
	}
	return values
}

// FromRowValues is the inverse of RowValues. Missing trailing cells and
// empty cells become nil fields.
func FromRowValues(values []string, extended bool) SearchResult {
	var r SearchResult
	for i, c := range Columns(extended) {
		if i >= len(values) {
			break
		}
		c.set(&r, Str(values[i]))
	}
	return r
}
