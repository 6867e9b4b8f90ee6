// Package portaltest has an in-memory portal.Driver for tests.
package portaltest

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"

	"voterlookup/internal/portal"
	"voterlookup/internal/voter"
)

// Record is one row the fake portal returns.
type Record struct {
	ID      int
	Name    string
	Address string
	// CityLine is "CITY ST ZIP".
	CityLine string
	Phone    string
	DOB      string
}

// ResultsPage renders records the way the portal's result grid does.
func ResultsPage(records ...Record) portal.Page {
	var b strings.Builder
	b.WriteString(`<html><body><table id="ctl00_Main_gvResults"><tr><th></th><th>Voter</th><th>Info</th></tr>`)
	for _, r := range records {
		fmt.Fprintf(&b,
			`<tr><td><input type="button" value="View Voter" onclick="OpenUserWindow(%d);"></td><td>%s<br>%s<br>%s</td><td>`,
			r.ID, html.EscapeString(r.Name), html.EscapeString(r.Address), html.EscapeString(r.CityLine),
		)
		if r.Phone != "" {
			fmt.Fprintf(&b, `%s<br>`, html.EscapeString(r.Phone))
		}
		if r.DOB != "" {
			fmt.Fprintf(&b, `DOB: %s`, html.EscapeString(r.DOB))
		}
		b.WriteString(`</td></tr>`)
	}
	b.WriteString(`</table></body></html>`)
	return portal.Page{URL: "https://portal.test/rnc/RecordLookup/RecordLookup.aspx", Body: []byte(b.String())}
}

// DetailURL is the detail link ResultsPage produces for a record id.
func DetailURL(id int) string {
	return fmt.Sprintf("https://portal.test/rnc/RecordLookup/RecordMaintenance.aspx?id=%d", id)
}

// DetailPage renders a detail page with a personal section.
func DetailPage(firstName, lastName string) portal.Page {
	return portal.Page{Body: []byte(fmt.Sprintf(
		`<html><body><article><h4>Personal Info</h4><h6>First Name</h6><p>%s</p><h6>Last Name</h6><p>%s</p></article></body></html>`,
		html.EscapeString(firstName), html.EscapeString(lastName),
	))}
}

type session struct{ closed bool }

func (s *session) Close() error {
	s.closed = true
	return nil
}

// Driver answers searches by name and detail pages by url. Names without
// a page get an empty result grid.
type Driver struct {
	mu sync.Mutex

	Password     string
	Searches     map[string]portal.Page
	SearchErrors map[string]error
	Details      map[string]portal.Page
	DetailErrors map[string]error

	// Queries records every query in order.
	Queries     []voter.SearchQuery
	DetailCalls []string
}

func New(password string) *Driver {
	return &Driver{
		Password:     password,
		Searches:     map[string]portal.Page{},
		SearchErrors: map[string]error{},
		Details:      map[string]portal.Page{},
		DetailErrors: map[string]error{},
	}
}

func (d *Driver) Authenticate(ctx context.Context, creds portal.Credentials) (portal.Session, error) {
	if creds.Password != d.Password {
		return nil, fmt.Errorf("%w: portal rejected the credentials", voter.ErrAuth)
	}
	return &session{}, nil
}

func (d *Driver) check(s portal.Session) error {
	fs, ok := s.(*session)
	if !ok || fs.closed {
		return fmt.Errorf("%w: invalid session", voter.ErrNavigation)
	}
	return nil
}

func (d *Driver) Search(ctx context.Context, s portal.Session, query voter.SearchQuery) (portal.Page, error) {
	if err := d.check(s); err != nil {
		return portal.Page{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Queries = append(d.Queries, query)
	if err, ok := d.SearchErrors[query.Name]; ok {
		return portal.Page{}, err
	}
	if page, ok := d.Searches[query.Name]; ok {
		return page, nil
	}
	return ResultsPage(), nil
}

func (d *Driver) OpenDetail(ctx context.Context, s portal.Session, url string) (portal.Page, error) {
	if err := d.check(s); err != nil {
		return portal.Page{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.DetailCalls = append(d.DetailCalls, url)
	if err, ok := d.DetailErrors[url]; ok {
		return portal.Page{}, err
	}
	if page, ok := d.Details[url]; ok {
		return page, nil
	}
	return portal.Page{}, fmt.Errorf("%w: %s not found", voter.ErrNavigation, url)
}
