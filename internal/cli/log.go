// Package cli implements the heatmap command-line interface.
//
// The CLI is built with cobra; every command hangs off the [CLI] struct,
// which carries the shared logger, the loaded config file and the palette
// registry with any custom schemes.
//
// # Commands
//
//   - render: rasterize a point file, URL or stdin to PNG (and KML)
//   - schemes: list color schemes with swatches
//   - preview: interactive terminal preview
//   - serve: HTTP render API
//   - cache: clear or locate the artifact cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which also
// surfaces cache hits and render timings from the observability hooks.
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time, rounded to the millisecond.
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
