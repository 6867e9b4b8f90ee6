package webforms

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"voterlookup/internal/components/assert"
	"voterlookup/internal/components/telemetry"
	"voterlookup/internal/portal"
	"voterlookup/internal/voter"
	"voterlookup/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("voterlookup/portal/webforms")

const (
	report_webforms_authenticate = "webforms.authenticate"
	report_webforms_search       = "webforms.search"
	report_webforms_open_detail  = "webforms.open-detail"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type Options struct {
	// PortalURL is the record lookup page, logging in starts from it.
	PortalURL         string
	RequestsPerSecond float64
	Timeout           time.Duration
	// Output receives every request/response pair when set, it is only
	// used in debug mode.
	Output restyutil.InstrumentOutput
}

// Driver talks to the portal over plain HTTP, posting its WebForms the way
// a browser would.
type Driver struct {
	lookupURL *url.URL
	opts      Options
	tel       telemetry.API
}

func New(opts Options, tel telemetry.API) (*Driver, error) {
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.PortalURL)

	lookupURL, err := url.Parse(opts.PortalURL)
	if err != nil {
		return nil, fmt.Errorf("parse portal url: %w", err)
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &Driver{
		lookupURL: lookupURL,
		opts:      opts,
		tel:       telemetry.NewScopedAPI("portal", tel),
	}, nil
}

type session struct {
	http   *resty.Client
	closed bool
}

func (s *session) Close() error {
	s.closed = true
	s.http.GetClient().CloseIdleConnections()
	return nil
}

func (d *Driver) newClient() (*resty.Client, error) {
	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", userAgent)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(d.lookupURL.Hostname()))
	client.SetTimeout(d.opts.Timeout)

	// burst >= rate so that no request is ever dropped
	burst := int(math.Ceil(d.opts.RequestsPerSecond))
	rateLimiter := rate.NewLimiter(rate.Limit(d.opts.RequestsPerSecond), burst)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	restyutil.InstrumentClient(client, tracer)
	telemetry.InstrumentResty(client, d.tel, d.opts.Output)
	return client, nil
}

// fetch runs a request and parses the page it ends up on.
func fetch(req *resty.Request, method, endpoint string) (portal.Page, *goquery.Document, error) {
	res, err := req.Execute(method, endpoint)
	if err != nil {
		return portal.Page{}, nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	if res.IsError() {
		return portal.Page{}, nil, fmt.Errorf("%s %s: %s", method, endpoint, res.Status())
	}

	page := portal.Page{URL: endpoint, Body: res.Body()}
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		page.URL = res.RawResponse.Request.URL.String()
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return portal.Page{}, nil, fmt.Errorf("parse %s: %w", page.URL, err)
	}
	return page, doc, nil
}

func submit(ctx context.Context, client *resty.Client, f form) (portal.Page, *goquery.Document, error) {
	return fetch(
		client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/x-www-form-urlencoded").
			SetBody(f.values.Encode()),
		resty.MethodPost,
		f.action.String(),
	)
}

// onLookupPage reports whether the page is the authenticated lookup page
// and not the login form, which carries the lookup page in its return url.
func onLookupPage(page portal.Page, doc *goquery.Document) bool {
	u, err := url.Parse(page.URL)
	if err != nil {
		return false
	}
	return strings.Contains(u.Path, portal.LookupPage) &&
		doc.Find(portal.PasswordInput).Length() == 0
}

func (d *Driver) Authenticate(ctx context.Context, creds portal.Credentials) (portal.Session, error) {
	ctx, span := tracer.Start(ctx, "webforms:Authenticate")
	defer span.End()

	authError := func(err error) error {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: %w", voter.ErrAuth, err)
	}

	client, err := d.newClient()
	if err != nil {
		return nil, authError(err)
	}

	page, doc, err := fetch(client.R().SetContext(ctx), resty.MethodGet, d.lookupURL.String())
	if err != nil {
		d.tel.ReportBroken(report_webforms_authenticate, fmt.Errorf("fetch login page: %w", err))
		return nil, authError(err)
	}
	if onLookupPage(page, doc) {
		d.tel.ReportDebug("already authenticated")
		return &session{http: client}, nil
	}

	pageURL, err := url.Parse(page.URL)
	if err != nil {
		return nil, authError(err)
	}
	f, err := readForm(doc, pageURL, portal.UsernameInput)
	if err != nil {
		d.tel.ReportBroken(report_webforms_authenticate, fmt.Errorf("read login form: %w", err), page.URL)
		return nil, authError(err)
	}
	for _, step := range []error{
		f.set(portal.UsernameInput, creds.Username),
		f.set(portal.PasswordInput, creds.Password),
		f.press(portal.LoginButton),
	} {
		if step != nil {
			d.tel.ReportBroken(report_webforms_authenticate, step, page.URL)
			return nil, authError(step)
		}
	}

	page, doc, err = submit(ctx, client, f)
	if err != nil {
		d.tel.ReportBroken(report_webforms_authenticate, fmt.Errorf("post login form: %w", err))
		return nil, authError(err)
	}
	if !onLookupPage(page, doc) {
		err := errors.New("portal rejected the credentials")
		d.tel.ReportWarning(report_webforms_authenticate, err, page.URL)
		return nil, authError(err)
	}

	span.SetAttributes(attribute.String("portal.username", creds.Username))
	return &session{http: client}, nil
}

func (d *Driver) open(s portal.Session) (*session, error) {
	ws, ok := s.(*session)
	if !ok || ws == nil {
		return nil, fmt.Errorf("%w: session was not created by this driver", voter.ErrNavigation)
	}
	if ws.closed {
		return nil, fmt.Errorf("%w: session is closed", voter.ErrNavigation)
	}
	return ws, nil
}

func (d *Driver) Search(ctx context.Context, s portal.Session, query voter.SearchQuery) (portal.Page, error) {
	ctx, span := tracer.Start(ctx, "webforms:Search")
	defer span.End()

	navError := func(err error) error {
		span.SetStatus(codes.Error, err.Error())
		d.tel.ReportBroken(report_webforms_search, err, query.Name)
		return fmt.Errorf("%w: search %q: %w", voter.ErrNavigation, query.Name, err)
	}

	ws, err := d.open(s)
	if err != nil {
		return portal.Page{}, err
	}

	page, doc, err := fetch(ws.http.R().SetContext(ctx), resty.MethodGet, d.lookupURL.String())
	if err != nil {
		return portal.Page{}, navError(err)
	}
	if !onLookupPage(page, doc) {
		return portal.Page{}, navError(errors.New("session is no longer authenticated"))
	}

	pageURL, err := url.Parse(page.URL)
	if err != nil {
		return portal.Page{}, navError(err)
	}
	f, err := readForm(doc, pageURL, `input[id*="txtName"]`)
	if err != nil {
		return portal.Page{}, navError(err)
	}
	for _, in := range portal.SearchInputs(query) {
		err := f.set(fmt.Sprintf(`input[id*=%q]`, in.ID), strings.TrimSpace(in.Value))
		if err != nil {
			return portal.Page{}, navError(err)
		}
	}
	err = f.press(portal.SearchButton)
	if err != nil {
		return portal.Page{}, navError(err)
	}

	d.tel.ReportDebug(report_webforms_search, query.Name, f.action.String())
	page, _, err = submit(ctx, ws.http, f)
	if err != nil {
		return portal.Page{}, navError(err)
	}
	return page, nil
}

func (d *Driver) OpenDetail(ctx context.Context, s portal.Session, detailURL string) (portal.Page, error) {
	ctx, span := tracer.Start(ctx, "webforms:OpenDetail")
	defer span.End()

	navError := func(err error) error {
		span.SetStatus(codes.Error, err.Error())
		d.tel.ReportBroken(report_webforms_open_detail, err, detailURL)
		return fmt.Errorf("%w: open detail %s: %w", voter.ErrNavigation, detailURL, err)
	}

	ws, err := d.open(s)
	if err != nil {
		return portal.Page{}, err
	}

	page, doc, err := fetch(ws.http.R().SetContext(ctx), resty.MethodGet, detailURL)
	if err != nil {
		return portal.Page{}, navError(err)
	}
	if doc.Find(portal.PasswordInput).Length() > 0 {
		return portal.Page{}, navError(errors.New("redirected to the login page"))
	}
	return page, nil
}
