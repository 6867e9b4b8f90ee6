package telemetry

import (
	"strings"
	"sync"
)

// Report is a single report captured by CaptureAPI.
type Report struct {
	Level  string
	ID     string
	Params []any
}

// CaptureAPI records every report in memory, it is used by tests to assert
// that failures were surfaced.
type CaptureAPI struct {
	mu      sync.Mutex
	reports []Report
}

func (c *CaptureAPI) add(level, id string, params []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = append(c.reports, Report{Level: level, ID: id, Params: params})
}

func (c *CaptureAPI) ReportBroken(id string, params ...any) {
	c.add("broken", id, params)
}

func (c *CaptureAPI) ReportWarning(id string, params ...any) {
	c.add("warning", id, params)
}

func (c *CaptureAPI) ReportDebug(msg string, params ...any) {
	c.add("debug", msg, params)
}

// Find returns the reports of a level whose id contains the given substring.
func (c *CaptureAPI) Find(level, idContains string) []Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Report
	for _, r := range c.reports {
		if r.Level == level && strings.Contains(r.ID, idContains) {
			out = append(out, r)
		}
	}
	return out
}
