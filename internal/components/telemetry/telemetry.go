package telemetry

// API is what components report through instead of logging directly, so
// tests can check what a component surfaced (see CaptureAPI).
//
// Ids name the reporting component and method, e.g. `engine.row`.
// Row numbers, names and errors go in the params.
type API interface {
	// ReportBroken is for failures that stop the current operation.
	ReportBroken(id string, params ...any)
	// ReportWarning is for things a run survives but a user should see,
	// like an ambiguous match or a detail page that failed to load.
	ReportWarning(id string, params ...any)
	ReportDebug(msg string, params ...any)
}

// ScopedAPI prefixes report ids with the component's package.
type ScopedAPI struct {
	scope string
	inner API
}

func NewScopedAPI(scope string, inner API) ScopedAPI {
	return ScopedAPI{scope: scope, inner: inner}
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scope+"."+id, params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scope+"."+id, params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.scope+": "+msg, params...)
}
