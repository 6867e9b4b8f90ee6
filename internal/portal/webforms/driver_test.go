package webforms

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"voterlookup/internal/components/telemetry"
	"voterlookup/internal/portal"
	"voterlookup/internal/voter"

	"github.com/stretchr/testify/require"
)

const (
	lookupPath = "/rnc/RecordLookup/RecordLookup.aspx"
	loginPath  = "/rnc/Login.aspx"
	detailPath = "/rnc/RecordLookup/RecordMaintenance.aspx"
)

const loginPage = `<html><body>
<form method="post" action="./Login.aspx?ReturnUrl=%%2frnc%%2fRecordLookup%%2fRecordLookup.aspx" id="form1">
<input type="hidden" name="__VIEWSTATE" value="login-state" />
<input type="hidden" name="__EVENTVALIDATION" value="login-validation" />
<input name="ctl00$Main$UserName" type="text" id="ctl00_Main_UserName" />
<input name="ctl00$Main$Password" type="password" id="ctl00_Main_Password" />
<input type="checkbox" name="ctl00$Main$RememberMe" />
<input type="submit" name="ctl00$Main$LoginButton" value="Log In" />
%s
</form></body></html>`

const lookupPage = `<html><body>
<form method="post" action="./RecordLookup.aspx" id="form1">
<input type="hidden" name="__VIEWSTATE" value="search-state" />
<a href="#">Clear</a>
<input name="ctl00$Main$txtName" type="text" id="ctl00_Main_txtName" placeholder="Voter Name" />
<input name="ctl00$Main$txtAddress" type="text" id="ctl00_Main_txtAddress" />
<input name="ctl00$Main$txtCity" type="text" id="ctl00_Main_txtCity" />
<input name="ctl00$Main$txtZip" type="text" id="ctl00_Main_txtZip" />
<input name="ctl00$Main$txtPhone" type="text" id="ctl00_Main_txtPhone" />
<input name="ctl00$Main$txtVoterId" type="text" id="ctl00_Main_txtVoterId" />
<select name="ctl00$Main$ddlState"><option value="">Any</option><option value="TX" selected>Texas</option></select>
<input type="submit" name="ctl00$Main$btnClear" value="Clear" />
<input type="submit" name="ctl00$Main$btnSearch" value="Search" id="ctl00_Main_btnSearch" />
%s
</form></body></html>`

const resultsTable = `<table id="ctl00_Main_gvResults">
<tr><th>Voter</th></tr>
<tr><td><a href="javascript:OpenUserWindow(4242)">View</a></td>
<td>JOHN DOE<br/>123 MAIN ST<br/>HOUSTON TX 77001</td></tr>
</table>`

type fakePortal struct {
	t        *testing.T
	mu       sync.Mutex
	searches []url.Values
	logins   int
}

func (p *fakePortal) authed(r *http.Request) bool {
	c, err := r.Cookie("session")
	return err == nil && c.Value == "ok"
}

func (p *fakePortal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == loginPath && r.Method == http.MethodGet:
		fmt.Fprintf(w, loginPage, "")

	case r.URL.Path == loginPath && r.Method == http.MethodPost:
		require.NoError(p.t, r.ParseForm())
		p.mu.Lock()
		p.logins++
		p.mu.Unlock()

		ok := r.PostForm.Get("__VIEWSTATE") == "login-state" &&
			r.PostForm.Get("__EVENTVALIDATION") == "login-validation" &&
			r.PostForm.Get("ctl00$Main$UserName") == "jdoe" &&
			r.PostForm.Get("ctl00$Main$Password") == "secret" &&
			r.PostForm.Get("ctl00$Main$LoginButton") == "Log In" &&
			!r.PostForm.Has("ctl00$Main$RememberMe")
		if !ok {
			fmt.Fprintf(w, loginPage, `<span class="error">Your login attempt was not successful.</span>`)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "ok", Path: "/"})
		http.Redirect(w, r, lookupPath, http.StatusFound)

	case !p.authed(r):
		http.Redirect(w, r, loginPath+"?ReturnUrl="+url.QueryEscape(r.URL.Path), http.StatusFound)

	case r.URL.Path == lookupPath && r.Method == http.MethodGet:
		fmt.Fprintf(w, lookupPage, "")

	case r.URL.Path == lookupPath && r.Method == http.MethodPost:
		require.NoError(p.t, r.ParseForm())
		p.mu.Lock()
		p.searches = append(p.searches, r.PostForm)
		p.mu.Unlock()
		fmt.Fprintf(w, lookupPage, resultsTable)

	case r.URL.Path == detailPath:
		fmt.Fprintf(w, `<html><body><article><h4>Personal Info</h4><h6>First Name</h6><p>JOHN</p></article><p>id %s</p></body></html>`, r.URL.Query().Get("id"))

	default:
		http.NotFound(w, r)
	}
}

func newTestDriver(t *testing.T) (*Driver, *fakePortal, *telemetry.CaptureAPI) {
	fake := &fakePortal{t: t}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	tel := &telemetry.CaptureAPI{}
	driver, err := New(Options{
		PortalURL:         server.URL + lookupPath,
		RequestsPerSecond: 100,
	}, tel)
	require.NoError(t, err)
	return driver, fake, tel
}

func TestAuthenticateAndSearch(t *testing.T) {
	driver, fake, _ := newTestDriver(t)
	ctx := context.Background()

	session, err := driver.Authenticate(ctx, portal.Credentials{Username: "jdoe", Password: "secret"})
	require.NoError(t, err)
	defer session.Close()

	page, err := driver.Search(ctx, session, voter.SearchQuery{
		Name: "John Doe",
		City: "Houston",
		Zip:  "77001",
	})
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(page.URL, lookupPath), page.URL)
	require.Contains(t, string(page.Body), "OpenUserWindow(4242)")

	require.Len(t, fake.searches, 1)
	posted := fake.searches[0]
	require.Equal(t, "search-state", posted.Get("__VIEWSTATE"))
	require.Equal(t, "John Doe", posted.Get("ctl00$Main$txtName"))
	require.Equal(t, "Houston", posted.Get("ctl00$Main$txtCity"))
	require.Equal(t, "77001", posted.Get("ctl00$Main$txtZip"))
	require.Equal(t, "", posted.Get("ctl00$Main$txtAddress"))
	require.Equal(t, "TX", posted.Get("ctl00$Main$ddlState"))
	require.Equal(t, "Search", posted.Get("ctl00$Main$btnSearch"))
	require.False(t, posted.Has("ctl00$Main$btnClear"))

	detail, err := driver.OpenDetail(ctx, session, strings.TrimSuffix(page.URL, lookupPath)+detailPath+"?id=4242")
	require.NoError(t, err)
	require.Contains(t, string(detail.Body), "id 4242")
}

func TestAuthenticateRejected(t *testing.T) {
	driver, fake, tel := newTestDriver(t)

	_, err := driver.Authenticate(context.Background(), portal.Credentials{Username: "jdoe", Password: "wrong"})
	require.ErrorIs(t, err, voter.ErrAuth)
	require.Equal(t, 1, fake.logins)
	require.NotEmpty(t, tel.Find("warning", report_webforms_authenticate))
}

func TestClosedSession(t *testing.T) {
	driver, _, _ := newTestDriver(t)
	ctx := context.Background()

	session, err := driver.Authenticate(ctx, portal.Credentials{Username: "jdoe", Password: "secret"})
	require.NoError(t, err)
	require.NoError(t, session.Close())

	_, err = driver.Search(ctx, session, voter.SearchQuery{Name: "John Doe"})
	require.ErrorIs(t, err, voter.ErrNavigation)
	require.True(t, voter.IsRecoverable(err))
}

func TestSearchRequiresLogin(t *testing.T) {
	driver, _, _ := newTestDriver(t)
	ctx := context.Background()

	client, err := driver.newClient()
	require.NoError(t, err)

	_, err = driver.Search(ctx, &session{http: client}, voter.SearchQuery{Name: "John Doe"})
	require.ErrorIs(t, err, voter.ErrNavigation)
}
