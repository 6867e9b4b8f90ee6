package search

import (
	"context"
	"time"

	"voterlookup/internal/components/assert"
	"voterlookup/internal/components/telemetry"
	"voterlookup/internal/parser"
	"voterlookup/internal/portal"
	"voterlookup/internal/voter"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("voterlookup/search")

const (
	report_executor_search = "executor.search"
	report_executor_detail = "executor.detail"
)

// Executor runs one query against the portal and turns the pages into
// results. Consecutive queries are spaced by the pause it was created with.
type Executor struct {
	driver portal.Driver
	pacer  *rate.Limiter
	tel    telemetry.API
}

func NewExecutor(driver portal.Driver, pause time.Duration, tel telemetry.API) *Executor {
	assert.NotNil(driver)
	assert.NotNil(tel)

	limit := rate.Inf
	if pause > 0 {
		limit = rate.Every(pause)
	}
	return &Executor{
		driver: driver,
		pacer:  rate.NewLimiter(limit, 1),
		tel:    telemetry.NewScopedAPI("search", tel),
	}
}

// Execute searches for the query and, with extractDetails, opens the detail
// page of every result that links one. A failed detail page leaves only
// that result's Detail nil. Search failures wrap voter.ErrNavigation or
// voter.ErrParse, a cancelled ctx is returned as is.
func (e *Executor) Execute(ctx context.Context, session portal.Session, query voter.SearchQuery, extractDetails bool) ([]voter.SearchResult, error) {
	ctx, span := tracer.Start(ctx, "executor:Execute")
	defer span.End()
	span.SetAttributes(
		attribute.String("query.name", query.Name),
		attribute.Bool("query.extract_details", extractDetails),
	)

	if err := query.Validate(); err != nil {
		return nil, err
	}
	if err := e.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	page, err := e.driver.Search(ctx, session, query)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	results, err := parser.ParseResults(page)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		e.tel.ReportBroken(report_executor_search, err, query.Name)
		return nil, err
	}
	span.SetAttributes(attribute.Int("query.results", len(results)))

	if !extractDetails {
		return results, nil
	}
	for i := range results {
		if results[i].DetailURL == nil {
			continue
		}
		detail, err := e.detail(ctx, session, *results[i].DetailURL)
		if err != nil {
			e.tel.ReportWarning(report_executor_detail, err, *results[i].DetailURL)
			continue
		}
		results[i].Detail = &detail
	}
	return results, nil
}

func (e *Executor) detail(ctx context.Context, session portal.Session, url string) (voter.DetailInfo, error) {
	page, err := e.driver.OpenDetail(ctx, session, url)
	if err != nil {
		return voter.DetailInfo{}, err
	}
	return parser.ParseDetail(page)
}
