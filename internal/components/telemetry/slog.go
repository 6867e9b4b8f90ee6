package telemetry

import (
	"fmt"
	"log/slog"
)

// SlogAPI writes reports to Logger, or to the default logger when it is nil.
// Error params are logged under "err", the rest by position.
type SlogAPI struct {
	Logger *slog.Logger
}

func (s SlogAPI) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func reportAttrs(id string, params []any) []any {
	var attrs []any
	if id != "" {
		attrs = append(attrs, "report", id)
	}
	for i, p := range params {
		if err, ok := p.(error); ok {
			attrs = append(attrs, "err", err)
			continue
		}
		attrs = append(attrs, fmt.Sprintf("arg%d", i), p)
	}
	return attrs
}

func (s SlogAPI) ReportBroken(id string, params ...any) {
	s.logger().Error("component failed", reportAttrs(id, params)...)
}

func (s SlogAPI) ReportWarning(id string, params ...any) {
	s.logger().Warn("warning", reportAttrs(id, params)...)
}

func (s SlogAPI) ReportDebug(message string, params ...any) {
	s.logger().Debug(message, reportAttrs("", params)...)
}
