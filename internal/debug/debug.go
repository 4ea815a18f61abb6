// Package debug provides debug logging utilities.
package debug

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var (
	enabled = os.Getenv("HUDSON_DEBUG") == "1"
	logger  = newLogger(os.Stderr)
)

func newLogger(w io.Writer) zerolog.Logger {
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000", NoColor: true}
	return zerolog.New(console).With().Timestamp().Logger()
}

// Logf writes a debug message to stderr if HUDSON_DEBUG=1
func Logf(format string, args ...any) {
	if !enabled {
		return
	}
	logger.Debug().Msg(fmt.Sprintf(format, args...))
}

// Log returns a debug event for structured fields, or nil when disabled.
// zerolog treats methods on a nil event as no-ops.
func Log() *zerolog.Event {
	if !enabled {
		return nil
	}
	return logger.Debug()
}

// Enabled returns true if debug logging is enabled
func Enabled() bool {
	return enabled
}

// SetEnabled toggles debug logging. Used by the --debug flag.
func SetEnabled(on bool) {
	enabled = on
}

// SetOutput redirects debug output.
func SetOutput(w io.Writer) {
	logger = newLogger(w)
}

// Since formats the elapsed time since start in milliseconds.
func Since(start time.Time) string {
	return fmt.Sprintf("%dms", time.Since(start).Milliseconds())
}
