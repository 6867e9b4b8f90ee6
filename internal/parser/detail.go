package parser

import (
	"fmt"
	"strings"

	"voterlookup/internal/portal"
	"voterlookup/internal/voter"
	"voterlookup/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// field points at one value of a DetailInfo.
type field func(d *voter.DetailInfo) **string

type fields map[string]field

var (
	firstName  field = func(d *voter.DetailInfo) **string { return &d.Personal.FirstName }
	middleName field = func(d *voter.DetailInfo) **string { return &d.Personal.MiddleName }
	lastName   field = func(d *voter.DetailInfo) **string { return &d.Personal.LastName }
	gender     field = func(d *voter.DetailInfo) **string { return &d.Personal.Gender }
	birthday   field = func(d *voter.DetailInfo) **string { return &d.Personal.Birthday }
	age        field = func(d *voter.DetailInfo) **string { return &d.Personal.Age }

	email     field = func(d *voter.DetailInfo) **string { return &d.Contact.Email }
	homePhone field = func(d *voter.DetailInfo) **string { return &d.Contact.HomePhone }
	workPhone field = func(d *voter.DetailInfo) **string { return &d.Contact.WorkPhone }
	cellPhone field = func(d *voter.DetailInfo) **string { return &d.Contact.CellPhone }

	voterID          field = func(d *voter.DetailInfo) **string { return &d.Voter.VoterID }
	registrationDate field = func(d *voter.DetailInfo) **string { return &d.Voter.RegistrationDate }
	partyAffiliation field = func(d *voter.DetailInfo) **string { return &d.Voter.PartyAffiliation }
	status           field = func(d *voter.DetailInfo) **string { return &d.Voter.Status }
	precinct         field = func(d *voter.DetailInfo) **string { return &d.Voter.Precinct }

	congress    field = func(d *voter.DetailInfo) **string { return &d.Districts.Congress }
	stateHouse  field = func(d *voter.DetailInfo) **string { return &d.Districts.StateHouse }
	stateSenate field = func(d *voter.DetailInfo) **string { return &d.Districts.StateSenate }

	employer   field = func(d *voter.DetailInfo) **string { return &d.Employment.Employer }
	occupation field = func(d *voter.DetailInfo) **string { return &d.Employment.Occupation }
)

var personalFields = fields{
	"first name":    firstName,
	"middle name":   middleName,
	"last name":     lastName,
	"gender":        gender,
	"sex":           gender,
	"birthday":      birthday,
	"date of birth": birthday,
	"dob":           birthday,
	"age":           age,
}

var contactFields = fields{
	"email":          email,
	"email address":  email,
	"home phone":     homePhone,
	"landline phone": homePhone,
	"landline":       homePhone,
	"work phone":     workPhone,
	"cell phone":     cellPhone,
	"mobile phone":   cellPhone,
	"mobile":         cellPhone,
}

var voterFields = fields{
	"registration status": status,
	"status":              status,
	"registration date":   registrationDate,
	"official party":      partyAffiliation,
	"party affiliation":   partyAffiliation,
	"party":               partyAffiliation,
	"precinct":            precinct,
	"voter id":            voterID,
	"state voter id":      voterID,
}

var identificationFields = fields{
	"state voter id": voterID,
	"voter id":       voterID,
}

var districtFields = fields{
	"congressional district": congress,
	"congress":               congress,
	"legislative district":   stateHouse,
	"state house":            stateHouse,
	"house district":         stateHouse,
	"senate district":        stateSenate,
	"state senate":           stateSenate,
	"precinct":               precinct,
}

var employmentFields = fields{
	"employer":   employer,
	"occupation": occupation,
}

// genericFields is every known label, used for sections that are not
// recognized by their heading.
var genericFields = func() fields {
	out := fields{}
	for _, table := range []fields{personalFields, contactFields, voterFields, identificationFields, districtFields, employmentFields} {
		for label, f := range table {
			out[label] = f
		}
	}
	return out
}()

type section struct {
	heading string
	fields  fields
}

// sections are matched in order, the first heading contained in the
// article's heading wins. A nil fields table skips the article.
var sections = []section{
	{"Personal Info", personalFields},
	{"Contact Info", contactFields},
	{"Voter Identification", identificationFields},
	{"Voter Info", voterFields},
	{"District Info", districtFields},
	{"Employment", employmentFields},
	{"Vote History", nil},
	{"Voter Frequency", nil},
	{"Geographical Location", nil},
	{"Tags", nil},
	{"Notes", nil},
}

func normalizeLabel(label string) string {
	label = htmlutil.CleanText(label)
	label = strings.TrimSuffix(label, ":")
	return strings.ToLower(strings.TrimSpace(label))
}

func articleHeading(article *goquery.Selection) string {
	heading := htmlutil.Text(article.Find("h1, h2, h3, h4, h5, header, legend, .card-header").First())
	if heading != "" {
		return heading
	}
	return htmlutil.Text(article)
}

func classify(article *goquery.Selection) (fields, bool) {
	heading := articleHeading(article)
	for _, s := range sections {
		if strings.Contains(heading, s.heading) {
			return s.fields, true
		}
	}
	return nil, false
}

func fill(detail *voter.DetailInfo, table fields, label string, value *string) {
	f, ok := table[normalizeLabel(label)]
	if !ok || value == nil {
		return
	}
	target := f(detail)
	if *target == nil {
		*target = value
	}
}

// fillLabeled reads the <h6>Label</h6><x>Value</x> pairs of an article.
func fillLabeled(detail *voter.DetailInfo, table fields, article *goquery.Selection) {
	article.Find("h6").Each(func(_ int, h6 *goquery.Selection) {
		fill(detail, table, h6.Text(), voter.Str(htmlutil.Text(h6.Next())))
	})
}

// fillInline reads "Label: Value" lines of an article.
func fillInline(detail *voter.DetailInfo, table fields, article *goquery.Selection) {
	for _, line := range htmlutil.SelectionLines(article) {
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fill(detail, table, label, voter.Str(value))
	}
}

// ParseDetail reads the sections of a record's own page. Sections are read
// independently and a value only fills a field that is still nil, values
// are taken verbatim and never derived. A page without any section is an
// ErrParse, it usually means the session was sent back to the login page.
func ParseDetail(page portal.Page) (voter.DetailInfo, error) {
	doc, err := document(page)
	if err != nil {
		return voter.DetailInfo{}, err
	}

	articles := doc.Find("article")
	if articles.Length() == 0 {
		return voter.DetailInfo{}, fmt.Errorf("%w: %s: no detail sections", voter.ErrParse, page.URL)
	}

	var detail voter.DetailInfo
	var unknown []*goquery.Selection
	articles.Each(func(_ int, article *goquery.Selection) {
		table, known := classify(article)
		if !known {
			unknown = append(unknown, article)
			return
		}
		if table != nil {
			fillLabeled(&detail, table, article)
		}
	})

	// unrecognized sections only fill what the known ones left empty
	for _, article := range unknown {
		fillLabeled(&detail, genericFields, article)
		fillInline(&detail, genericFields, article)
	}
	return detail, nil
}
