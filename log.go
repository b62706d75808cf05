/*
Package tablemap – logging interface.

The default Logger is backed by logrus. Callers may supply their own.
*/
package tablemap

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger is the interface callers may supply to the Mapper and clients.
// Each method receives a structured context map (may be nil).
type Logger interface {
	Trace(message string, ctx map[string]any)
	Info(message string, ctx map[string]any)
	Error(message string, ctx map[string]any)
	Data(message string, ctx map[string]any)
}

// LogrusLogger adapts a *logrus.Logger. Data lines are logged at debug level.
type LogrusLogger struct {
	*logrus.Logger
}

// NewLogrusLogger wraps l. A nil l gets a fresh logger writing text lines to
// stdout at info level.
func NewLogrusLogger(l *logrus.Logger) *LogrusLogger {
	if l == nil {
		l = logrus.New()
		l.SetOutput(os.Stdout)
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
		l.SetLevel(logrus.InfoLevel)
	}
	return &LogrusLogger{Logger: l}
}

// SetLevel sets the logging level by name. Unknown names fall back to info.
func (l *LogrusLogger) SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.Logger.SetLevel(lvl)
}

func (l *LogrusLogger) Trace(msg string, ctx map[string]any) {
	l.WithFields(logrus.Fields(ctx)).Trace(msg)
}

func (l *LogrusLogger) Info(msg string, ctx map[string]any) {
	l.WithFields(logrus.Fields(ctx)).Info(msg)
}

func (l *LogrusLogger) Error(msg string, ctx map[string]any) {
	l.WithFields(logrus.Fields(ctx)).Error(msg)
}

func (l *LogrusLogger) Data(msg string, ctx map[string]any) {
	l.WithFields(logrus.Fields(ctx)).Debug(msg)
}

// defaultLogger returns the logrus logger used when none is supplied.
// verbose also emits trace and data lines.
func defaultLogger(verbose bool) Logger {
	l := NewLogrusLogger(nil)
	if verbose {
		l.Logger.SetLevel(logrus.TraceLevel)
	}
	return l
}

// FuncLogger wraps a plain function: func(level, message string, ctx map[string]any).
type FuncLogger struct {
	Fn func(level, message string, ctx map[string]any)
}

func (f FuncLogger) Trace(msg string, ctx map[string]any) { f.Fn("trace", msg, ctx) }
func (f FuncLogger) Data(msg string, ctx map[string]any)  { f.Fn("data", msg, ctx) }
func (f FuncLogger) Info(msg string, ctx map[string]any)  { f.Fn("info", msg, ctx) }
func (f FuncLogger) Error(msg string, ctx map[string]any) { f.Fn("error", msg, ctx) }

// NopLogger silently discards everything.
type NopLogger struct{}

func (NopLogger) Trace(string, map[string]any) {}
func (NopLogger) Data(string, map[string]any)  {}
func (NopLogger) Info(string, map[string]any)  {}
func (NopLogger) Error(string, map[string]any) {}
