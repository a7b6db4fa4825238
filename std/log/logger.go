package log

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"

	timedio "github.com/parc-forge/athena/std/utils/io"
)

// Component is anything that can name itself in a log line, the same
// convention the teacher's core.Log uses (fw/face, fw/mgmt: the first
// argument of every call is the emitting component).
type Component interface {
	String() string
}

// Logger wraps slog with the component-first calling convention used across
// the forwarding core: Log.Warn(component, "message", "key", value, ...).
type Logger struct {
	level   atomic.Int64
	handler slog.Handler
	writer  *timedio.TimedWriter
}

// Log is the package-wide logger instance, mirroring the teacher's
// package-scoped core.Log singleton.
var Log = New(os.Stderr, LevelInfo)

// New constructs a Logger writing text-formatted records to w at the given
// level. Writes go through a TimedWriter (std/utils/io) so a burst of
// Trace/Debug lines on the hot forwarding path coalesces into fewer
// syscalls instead of flushing one line at a time.
func New(w *os.File, level Level) *Logger {
	l := &Logger{}
	l.level.Store(int64(level))
	l.writer = timedio.NewTimedWriter(w, 4096)
	l.handler = slog.NewTextHandler(l.writer, &slog.HandlerOptions{
		Level: slog.Level(LevelAll),
	})
	return l
}

// Flush forces any buffered log lines out immediately. athenad calls this
// on shutdown so the final few lines aren't lost to the TimedWriter's
// deadline-based batching.
func (l *Logger) Flush() error {
	return l.writer.Flush()
}

// SetLevel changes the minimum level the logger emits, used by the
// control protocol's "set/level/<level>" command (spec §4.6).
func (l *Logger) SetLevel(level Level) {
	l.level.Store(int64(level))
}

// Level returns the logger's current minimum level.
func (l *Logger) Level() Level {
	return Level(l.level.Load())
}

func (l *Logger) log(level Level, comp Component, msg string, kv []any) {
	if level < l.Level() || l.Level() == LevelOff {
		return
	}
	args := make([]any, 0, len(kv)+2)
	args = append(args, "component", comp.String())
	args = append(args, kv...)
	slog.New(l.handler).Log(context.Background(), slog.Level(level), msg, args...)
}

// Trace logs at LevelTrace.
func (l *Logger) Trace(comp Component, msg string, kv ...any) { l.log(LevelTrace, comp, msg, kv) }

// Debug logs at LevelDebug.
func (l *Logger) Debug(comp Component, msg string, kv ...any) { l.log(LevelDebug, comp, msg, kv) }

// Info logs at LevelInfo.
func (l *Logger) Info(comp Component, msg string, kv ...any) { l.log(LevelInfo, comp, msg, kv) }

// Warn logs at LevelWarn.
func (l *Logger) Warn(comp Component, msg string, kv ...any) { l.log(LevelWarn, comp, msg, kv) }

// Error logs at LevelError.
func (l *Logger) Error(comp Component, msg string, kv ...any) { l.log(LevelError, comp, msg, kv) }

// Fatal logs at LevelFatal and exits the process, mirroring core.Log.Fatal's
// use at unrecoverable startup errors only (never on the hot path).
func (l *Logger) Fatal(comp Component, msg string, kv ...any) {
	l.log(LevelFatal, comp, msg, kv)
	os.Exit(1)
}
