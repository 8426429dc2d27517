package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Format selects how log records are rendered.
type Format int

const (
	// FormatText is the human-readable format used by the local server.
	FormatText Format = iota
	// FormatJSON is used inside Lambda, where output goes to CloudWatch.
	FormatJSON
)

// ParseLevel maps a level name to a log.Level, defaulting to info.
func ParseLevel(name string) log.Level {
	level, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// NewHandler returns a charmbracelet/log logger usable as an slog.Handler.
func NewHandler(w io.Writer, format Format, level log.Level) *log.Logger {
	opts := log.Options{
		Level:           level,
		TimeFormat:      time.RFC3339,
		ReportTimestamp: true,
		TimeFunction:    log.NowUTC,
		ReportCaller:    format == FormatText,
	}
	if format == FormatJSON {
		opts.Formatter = log.JSONFormatter
	}
	return log.NewWithOptions(w, opts)
}

// Setup installs the handler as the process-wide slog default. The level is
// read from DOCS_LOG_LEVEL.
func Setup(format Format) {
	handler := NewHandler(os.Stdout, format, ParseLevel(os.Getenv("DOCS_LOG_LEVEL")))
	slog.SetDefault(slog.New(handler))
}
