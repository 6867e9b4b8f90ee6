package parser

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"voterlookup/internal/portal"
	"voterlookup/internal/voter"
	"voterlookup/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// DefaultBaseURL resolves detail links of pages that were not fetched from
// a known url.
var DefaultBaseURL = mustParse("https://www.gopdatacenter.com/rnc/RecordLookup/RecordLookup.aspx")

func mustParse(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

var resultTableSelectors = []string{
	`table[id*="ResultsGrid"]`,
	`table[id*="gvResults"]`,
	`table.results-table`,
}

var openUserWindowRegex = regexp.MustCompile(`OpenUserWindow\s*\(\s*(\d+)\s*\)`)

func document(page portal.Page) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", voter.ErrParse, page.URL, err)
	}
	return doc, nil
}

func baseURL(page portal.Page) *url.URL {
	if page.URL == "" {
		return DefaultBaseURL
	}
	u, err := url.Parse(page.URL)
	if err != nil || !u.IsAbs() {
		return DefaultBaseURL
	}
	return u
}

func findResultTable(doc *goquery.Document) *goquery.Selection {
	for _, selector := range resultTableSelectors {
		table := doc.Find(selector).First()
		if table.Length() > 0 {
			return table
		}
	}
	return nil
}

// resultRows returns the data rows of the table, header rows only hold
// <th> cells. Rows of tables nested in a cell are not included.
func resultRows(table *goquery.Selection) *goquery.Selection {
	rows := table.ChildrenFiltered("tbody").ChildrenFiltered("tr")
	if rows.Length() == 0 {
		rows = table.ChildrenFiltered("tr")
	}
	return rows.FilterFunction(func(_ int, row *goquery.Selection) bool {
		return row.ChildrenFiltered("td").Length() > 0
	})
}

var rowActions = map[string]bool{
	"view":       true,
	"select":     true,
	"view voter": true,
}

// ParseResults reads the result rows of a search page. A page without a
// result table has no results. Every field the row does not have is nil.
func ParseResults(page portal.Page) ([]voter.SearchResult, error) {
	doc, err := document(page)
	if err != nil {
		return nil, err
	}

	table := findResultTable(doc)
	if table == nil {
		return []voter.SearchResult{}, nil
	}

	base := baseURL(page)
	results := []voter.SearchResult{}
	resultRows(table).Each(func(_ int, row *goquery.Selection) {
		result, ok := parseRow(row, base)
		if ok {
			results = append(results, result)
		}
	})
	return results, nil
}

func parseRow(row *goquery.Selection, base *url.URL) (voter.SearchResult, bool) {
	lines := htmlutil.SelectionPositionalLines(row)
	if len(lines) > 0 && rowActions[strings.ToLower(lines[0])] {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	if len(lines) < 2 {
		return voter.SearchResult{}, false
	}

	line := func(i int) string {
		if i < len(lines) {
			return lines[i]
		}
		return ""
	}

	result := voter.SearchResult{
		Name:    voter.Str(line(0)),
		Address: voter.Str(line(1)),
	}

	parts := strings.Fields(line(2))
	if len(parts) >= 3 {
		result.City = voter.Str(strings.Join(parts[:len(parts)-2], " "))
		result.State = voter.Str(parts[len(parts)-2])
		result.ZipCode = voter.Str(parts[len(parts)-1])
	}

	if len(lines) > 3 {
		for _, l := range lines[3:] {
			switch {
			case strings.HasPrefix(l, "("):
				result.Phone = voter.Str(l)
			case strings.Contains(l, "DOB:"):
				result.DateOfBirth = voter.Str(l[strings.LastIndex(l, "DOB:")+len("DOB:"):])
			case strings.Contains(l, "Calculated Party:"):
				result.CalculatedParty = voter.Str(l[strings.LastIndex(l, ":")+1:])
			}
		}
	}

	result.DetailURL = detailURL(row, base)
	return result, true
}

func detailURL(row *goquery.Selection, base *url.URL) *string {
	markup, err := goquery.OuterHtml(row)
	if err == nil {
		groups := openUserWindowRegex.FindStringSubmatch(markup)
		if len(groups) == 2 {
			resolved := base.ResolveReference(&url.URL{
				Path:     "RecordMaintenance.aspx",
				RawQuery: url.Values{"id": {groups[1]}}.Encode(),
			})
			return voter.Str(resolved.String())
		}
	}

	href, ok := row.Find(`a[href*="RecordMaintenance.aspx"]`).First().Attr("href")
	if !ok {
		return nil
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil
	}
	return voter.Str(base.ResolveReference(ref).String())
}
