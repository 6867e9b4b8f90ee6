// Package browser drives the portal through a real Chrome with chromedp.
// It is slower than the webforms driver but runs the portal's scripts,
// and in debug mode the window is visible.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"voterlookup/internal/components/assert"
	"voterlookup/internal/components/telemetry"
	"voterlookup/internal/portal"
	"voterlookup/internal/voter"

	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("voterlookup/portal/browser")

const (
	report_browser_authenticate = "browser.authenticate"
	report_browser_search       = "browser.search"
	report_browser_open_detail  = "browser.open-detail"
)

const (
	resultsReady = `table[id*="ResultsGrid"], table[id*="gvResults"], table.results-table`
	// set on the page before a postback, gone once the next document loads
	pageMarker = `window.__voterlookupPending`
)

type Options struct {
	PortalURL string
	Headless  bool
	// Timeout bounds every navigation.
	Timeout           time.Duration
	RequestsPerSecond float64
	// ExecPath overrides the Chrome binary, CHROME_PATH is used when empty.
	ExecPath string
}

type Driver struct {
	opts    Options
	limiter *rate.Limiter
	tel     telemetry.API
}

func New(opts Options, tel telemetry.API) *Driver {
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.PortalURL)

	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 1
	}
	if opts.ExecPath == "" {
		opts.ExecPath = os.Getenv("CHROME_PATH")
	}
	return &Driver{
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		tel:     telemetry.NewScopedAPI("portal", tel),
	}
}

type session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

func (s *session) Close() error {
	s.cancel()
	s.allocCancel()
	return nil
}

func (d *Driver) newBrowser() (*session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.opts.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"),
	)
	if d.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(d.opts.ExecPath))
	}

	// the browser outlives the call that logs in, it is stopped by Close
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	bctx, cancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(bctx, chromedp.Navigate("about:blank")); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	return &session{ctx: bctx, cancel: cancel, allocCancel: allocCancel}, nil
}

// run executes actions in the browser tab, bounded by the navigation
// timeout. The caller's ctx is only checked before starting.
func (d *Driver) run(ctx context.Context, s *session, actions ...chromedp.Action) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	tctx, cancel := context.WithTimeout(s.ctx, d.opts.Timeout)
	defer cancel()
	return chromedp.Run(tctx, actions...)
}

// waitUntil polls a javascript condition until it holds or the timeout
// passes.
func waitUntil(ctx context.Context, timeout time.Duration, jsCond string) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		var ok bool
		err := chromedp.Run(ctx, chromedp.EvaluateAsDevTools(jsCond, &ok))
		if err == nil && ok {
			return nil
		}
		time.Sleep(250 * time.Millisecond)
	}
	return errors.New("timed out waiting for the page")
}

func (d *Driver) postback(s *session, ready string) error {
	cond := fmt.Sprintf(
		`document.readyState === "complete" && (%s === undefined || document.querySelector(%q) !== null)`,
		pageMarker, ready,
	)
	tctx, cancel := context.WithTimeout(s.ctx, d.opts.Timeout)
	defer cancel()
	return waitUntil(tctx, d.opts.Timeout, cond)
}

func (d *Driver) capture(ctx context.Context, s *session) (portal.Page, error) {
	var location, html string
	err := d.run(ctx, s,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return portal.Page{}, err
	}
	return portal.Page{URL: location, Body: []byte(html)}, nil
}

func onLookupPage(page portal.Page) bool {
	path := page.URL
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return strings.Contains(path, portal.LookupPage) &&
		!strings.Contains(strings.ToLower(string(page.Body)), `type="password"`)
}

func (d *Driver) Authenticate(ctx context.Context, creds portal.Credentials) (portal.Session, error) {
	ctx, span := tracer.Start(ctx, "browser:Authenticate")
	defer span.End()

	authError := func(err error) error {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: %w", voter.ErrAuth, err)
	}

	s, err := d.newBrowser()
	if err != nil {
		d.tel.ReportBroken(report_browser_authenticate, err)
		return nil, authError(err)
	}

	err = d.run(ctx, s,
		chromedp.Navigate(d.opts.PortalURL),
		chromedp.WaitVisible(portal.UsernameInput, chromedp.ByQuery),
		chromedp.SetValue(portal.UsernameInput, creds.Username, chromedp.ByQuery),
		chromedp.SetValue(portal.PasswordInput, creds.Password, chromedp.ByQuery),
		chromedp.Evaluate(pageMarker+` = true`, nil),
		chromedp.Click(portal.LoginButton, chromedp.ByQuery),
	)
	if err != nil {
		s.Close()
		d.tel.ReportBroken(report_browser_authenticate, fmt.Errorf("fill login form: %w", err))
		return nil, authError(err)
	}
	if err := d.postback(s, "body"); err != nil {
		d.tel.ReportWarning(report_browser_authenticate, err)
	}

	page, err := d.capture(ctx, s)
	if err != nil {
		s.Close()
		return nil, authError(err)
	}
	if !onLookupPage(page) {
		s.Close()
		err := errors.New("portal rejected the credentials")
		d.tel.ReportWarning(report_browser_authenticate, err, page.URL)
		return nil, authError(err)
	}
	return s, nil
}

func (d *Driver) open(s portal.Session) (*session, error) {
	bs, ok := s.(*session)
	if !ok || bs == nil {
		return nil, fmt.Errorf("%w: session was not created by this driver", voter.ErrNavigation)
	}
	if bs.ctx.Err() != nil {
		return nil, fmt.Errorf("%w: browser is closed", voter.ErrNavigation)
	}
	return bs, nil
}

func (d *Driver) Search(ctx context.Context, s portal.Session, query voter.SearchQuery) (portal.Page, error) {
	ctx, span := tracer.Start(ctx, "browser:Search")
	defer span.End()

	navError := func(err error) error {
		span.SetStatus(codes.Error, err.Error())
		d.tel.ReportBroken(report_browser_search, err, query.Name)
		return fmt.Errorf("%w: search %q: %w", voter.ErrNavigation, query.Name, err)
	}

	bs, err := d.open(s)
	if err != nil {
		return portal.Page{}, err
	}

	actions := []chromedp.Action{
		chromedp.Navigate(d.opts.PortalURL),
		chromedp.WaitVisible(`input[id*="txtName"]`, chromedp.ByQuery),
	}
	for _, in := range portal.SearchInputs(query) {
		actions = append(actions, chromedp.SetValue(
			fmt.Sprintf(`input[id*=%q]`, in.ID),
			strings.TrimSpace(in.Value),
			chromedp.ByQuery,
		))
	}
	actions = append(actions,
		chromedp.Evaluate(pageMarker+` = true`, nil),
		chromedp.Click(portal.SearchButton, chromedp.ByQuery),
	)
	d.tel.ReportDebug(report_browser_search, query.Name)

	if err := d.run(ctx, bs, actions...); err != nil {
		return portal.Page{}, navError(err)
	}
	if err := d.postback(bs, resultsReady); err != nil {
		// a page without results never shows the table
		d.tel.ReportDebug(report_browser_search, "no result table", query.Name)
	}

	page, err := d.capture(ctx, bs)
	if err != nil {
		return portal.Page{}, navError(err)
	}
	if !onLookupPage(page) {
		return portal.Page{}, navError(errors.New("session is no longer authenticated"))
	}
	return page, nil
}

func (d *Driver) OpenDetail(ctx context.Context, s portal.Session, detailURL string) (portal.Page, error) {
	ctx, span := tracer.Start(ctx, "browser:OpenDetail")
	defer span.End()

	navError := func(err error) error {
		span.SetStatus(codes.Error, err.Error())
		d.tel.ReportBroken(report_browser_open_detail, err, detailURL)
		return fmt.Errorf("%w: open detail %s: %w", voter.ErrNavigation, detailURL, err)
	}

	bs, err := d.open(s)
	if err != nil {
		return portal.Page{}, err
	}
	err = d.run(ctx, bs,
		chromedp.Navigate(detailURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return portal.Page{}, navError(err)
	}
	// detail sections are filled in by script after load
	_ = waitUntil(bs.ctx, 3*time.Second, `document.querySelector("article") !== null`)

	page, err := d.capture(ctx, bs)
	if err != nil {
		return portal.Page{}, navError(err)
	}
	if strings.Contains(strings.ToLower(string(page.Body)), `type="password"`) {
		return portal.Page{}, navError(errors.New("redirected to the login page"))
	}
	return page, nil
}
