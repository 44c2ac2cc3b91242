package common

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel represents logging verbosity levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "error"
	case LogLevelWarn:
		return "warn"
	case LogLevelDebug:
		return "debug"
	default:
		return "info"
	}
}

// ToSlogLevel converts LogLevel to slog.Level
func (l LogLevel) ToSlogLevel() slog.Level {
	switch l {
	case LogLevelError:
		return slog.LevelError
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelDebug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// ParseLogLevel accepts error, warn(ing), info, debug. Empty means info.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LogLevelError, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "info", "":
		return LogLevelInfo, nil
	case "debug":
		return LogLevelDebug, nil
	default:
		return LogLevelInfo, fmt.Errorf("invalid logging level: %s (valid: error, warn, info, debug)", s)
	}
}

// Logger wraps slog.Logger with mailrelay specific context helpers
type Logger struct {
	*slog.Logger
	level LogLevel
}

func maskingReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	if !IsMaskingEnabled() {
		return a
	}
	switch a.Value.Kind() {
	case slog.KindString, slog.KindAny:
		masked := GetGlobalMasker().MaskValue(a.Key, a.Value.Any())
		if s, ok := masked.(string); ok && s != a.Value.String() {
			return slog.String(a.Key, s)
		}
	}
	return a
}

func newLogger(h slog.Handler, level LogLevel) *Logger {
	return &Logger{Logger: slog.New(h), level: level}
}

// NewLogger creates a text logger on stdout
func NewLogger(level LogLevel) *Logger {
	return NewTextLoggerTo(os.Stdout, level)
}

// NewTextLoggerTo creates a text logger writing to w
func NewTextLoggerTo(w io.Writer, level LogLevel) *Logger {
	opts := &slog.HandlerOptions{Level: level.ToSlogLevel(), ReplaceAttr: maskingReplaceAttr}
	return newLogger(slog.NewTextHandler(w, opts), level)
}

// NewJSONLogger creates a structured logger with JSON output
func NewJSONLogger(level LogLevel) *Logger {
	return NewJSONLoggerTo(os.Stdout, level)
}

// NewJSONLoggerTo creates a JSON logger writing to w
func NewJSONLoggerTo(w io.Writer, level LogLevel) *Logger {
	opts := &slog.HandlerOptions{Level: level.ToSlogLevel(), ReplaceAttr: maskingReplaceAttr}
	return newLogger(slog.NewJSONHandler(w, opts), level)
}

// NewColorLogger creates a colorized logger on stdout
func NewColorLogger(level LogLevel) *Logger {
	h := NewColorHandler(os.Stdout, &slog.HandlerOptions{Level: level.ToSlogLevel()})
	h.SetMasker(GetGlobalMasker())
	return newLogger(h, level)
}

// Level returns the current log level
func (l *Logger) Level() LogLevel {
	return l.level
}

// EnableMasking toggles masking on the global masker used by every handler.
func (l *Logger) EnableMasking(enabled bool) {
	EnableMasking(enabled)
}

func (l *Logger) with(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), level: l.level}
}

// WithComponent returns a logger with component context
func (l *Logger) WithComponent(component string) *Logger {
	return l.with("component", component)
}

// WithEvent returns a logger with inbound event context
func (l *Logger) WithEvent(eventID string) *Logger {
	return l.with("event_id", eventID)
}

// WithRun returns a logger tagged with a processing run id
func (l *Logger) WithRun(runID string) *Logger {
	return l.with("run_id", runID)
}

// WithTarget returns a logger with descriptor target context
func (l *Logger) WithTarget(target string) *Logger {
	return l.with("target", target)
}

// WithStore returns a logger with store context
func (l *Logger) WithStore(storeType string) *Logger {
	return l.with("store", storeType)
}

// WithRequest returns a logger with HTTP request context
func (l *Logger) WithRequest(method, url string) *Logger {
	return l.with("method", method, "url", url)
}

var defaultLogger = NewLogger(LogLevelInfo)

// SetDefaultLogger sets the global default logger
func SetDefaultLogger(logger *Logger) {
	if logger == nil {
		return
	}
	defaultLogger = logger
}

// GetLogger returns the default logger
func GetLogger() *Logger {
	return defaultLogger
}
