// Package portal is the boundary to the voter record portal. Everything
// above it works on raw pages and never knows which backend fetched them.
package portal

import (
	"context"
	"strings"

	"voterlookup/internal/voter"
)

type Credentials struct {
	Username string
	Password string
}

// Page is a fetched portal page, URL is where the request ended up after
// redirects.
type Page struct {
	URL  string
	Body []byte
}

// Session is an authenticated portal session. It is only valid for the
// driver that created it and must not be used concurrently.
type Session interface {
	Close() error
}

// Driver drives the portal. Authenticate fails with voter.ErrAuth, Search
// and OpenDetail fail with voter.ErrNavigation.
type Driver interface {
	Authenticate(ctx context.Context, creds Credentials) (Session, error)
	Search(ctx context.Context, session Session, query voter.SearchQuery) (Page, error)
	OpenDetail(ctx context.Context, session Session, url string) (Page, error)
}

// Selectors of the portal's markup shared by every backend.
const (
	UsernameInput = `input[name*="UserName"]`
	PasswordInput = `input[name*="Password"]`
	LoginButton   = `input[type="submit"][value="Log In"]`
	SearchButton  = `input[type="submit"][value="Search"], input[id*="btnSearch"]`
	LookupPage    = "RecordLookup.aspx"
)

// SearchInput is the id fragment of a search form input and its value.
type SearchInput struct {
	ID    string
	Value string
}

// SearchInputs lists the inputs a query fills, the optional filters are
// only included when they are set.
func SearchInputs(q voter.SearchQuery) []SearchInput {
	inputs := []SearchInput{{"txtName", q.Name}}
	for _, in := range []SearchInput{
		{"txtAddress", q.Address},
		{"txtCity", q.City},
		{"txtZip", q.Zip},
		{"txtPhone", q.Phone},
		{"txtVoterId", q.VoterID},
	} {
		if strings.TrimSpace(in.Value) != "" {
			inputs = append(inputs, in)
		}
	}
	return inputs
}
