package telemetry

import (
	"io"
	"log/slog"
	"os"
)

// InitSlog installs the default slog logger. Debug mode lowers the level so
// ReportDebug output and request traces become visible.
func InitSlog(debug bool) {
	InitSlogTo(os.Stderr, debug)
}

func InitSlogTo(w io.Writer, debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	slog.SetDefault(slog.New(handler))
}
