// Package logging provides the structured logging sink shared by the
// builder and the runtime installer. It is constructed explicitly and
// injected into callers rather than kept as process-global state.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Options configures a Logger. Zero value is usable; New fills in
// sensible defaults.
type Options struct {
	Name string
	// Level is one of trace, debug, info, warn, error.
	Level string
	// Output is the underlying sink; defaults to os.Stderr.
	Output io.Writer
	// JSON switches to structured JSON log lines, matching the
	// INSPA_JSON_LOG=1 environment override.
	JSON bool
	// Prefix is prepended to each non-JSON line (e.g. "[build] ").
	Prefix string
}

// New builds an hclog.Logger from Options, honoring the
// INSPA_LOG_LEVEL / INSPA_LOG_PATH / INSPA_JSON_LOG environment
// overrides the way the CLI entry points do.
func New(opts Options) hclog.Logger {
	level := opts.Level
	if level == "" {
		if envLevel := os.Getenv("INSPA_LOG_LEVEL"); envLevel != "" {
			level = envLevel
		} else {
			level = "info"
		}
	}

	jsonFormat := opts.JSON || os.Getenv("INSPA_JSON_LOG") == "1"

	var output io.Writer = opts.Output
	plainStderr := output == nil
	if output == nil {
		output = os.Stderr
	}

	if logPath := os.Getenv("INSPA_LOG_PATH"); logPath != "" {
		if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			output = f
			plainStderr = false
		}
	}

	// Only let hclog decide on ANSI escapes when the sink is a bare,
	// unredirected stderr; a caller-supplied or file-backed sink (e.g.
	// inspa-run's persisted install.log) must stay plain text.
	color := hclog.ColorOff
	if !jsonFormat && plainStderr && opts.Prefix == "" {
		color = hclog.AutoColor
	}

	if !jsonFormat && opts.Prefix != "" {
		output = NewPrefixWriter(opts.Prefix, output)
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       opts.Name,
		Level:      hclog.LevelFromString(level),
		JSONFormat: jsonFormat,
		Output:     output,
		Color:      color,
		TimeFormat: "2006-01-02T15:04:05Z",
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	})
}

// Null returns a logger that discards everything, for library callers
// that do not want to configure logging themselves.
func Null() hclog.Logger {
	return hclog.NewNullLogger()
}
