package relay

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/gogpu/relay/device"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any hook thread.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for relay and all its sub-packages.
// By default, relay produces no log output. Call SetLogger to enable it.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by relay:
//   - [slog.LevelDebug]: internal diagnostics (registry churn, strip sizes)
//   - [slog.LevelInfo]: lifecycle events (device selected, channel opened)
//   - [slog.LevelWarn]: non-fatal issues (probe failures, trapped errors)
//   - [slog.LevelError]: fatal conditions logged before shutdown
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	device.SetLogger(l)
}

// Logger returns the current logger used by relay. The transport and
// diag sub-packages call this to share the same logger configuration;
// the device package receives its own copy through SetLogger so it
// stays importable from here.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// openLogSink builds a logger writing to the destination named in the
// configuration. An empty destination means stderr; anything else is
// treated as a file path, opened for append. Verbose lowers the level
// to debug.
func openLogSink(dest string, verbose bool) (*slog.Logger, error) {
	var w io.Writer = os.Stderr
	if dest != "" {
		f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		w = f
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}
