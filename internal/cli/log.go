// Package cli implements the tracemap command-line interface.
//
// # Commands
//
//   - layout: compute a diagram from a snapshot file
//   - render: draw a diagram as SVG or Graphviz DOT
//   - watch: recompute a diagram whenever its snapshot changes
//   - serve: run the HTTP API
//   - inspect: browse a computed diagram in the terminal
//   - cache: manage the diagram cache
//
// # Configuration
//
// Layout, cache, server and log settings come from config files,
// TRACEMAP_* environment variables and flags, in that order of precedence
// (see internal/config). --verbose (-v) forces debug logging and
// --log-file sends logs to a rotating file.
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger with "HH:MM:SS.ms" timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs how long an operation took.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time, e.g. "Laid out 42 entities (12ms)".
func (p *progress) done(msg string, keyvals ...any) {
	keyvals = append(keyvals, "elapsed", time.Since(p.start).Round(time.Millisecond))
	p.logger.Debug(msg, keyvals...)
}
