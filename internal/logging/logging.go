// Package logging provides structured logging for pulsed using slog.
//
// This package's global state is deliberately limited to the logger
// handles themselves; every subsystem receives its own `*slog.Logger`
// scoped with ForService rather than reaching for the package-level
// convenience functions from inside core code.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	structuredLogger *slog.Logger
	humanReadableLogger *slog.Logger
	loggerMu sync.RWMutex
)

var currentLogLevel = new(slog.LevelVar)
var initOnce sync.Once
var initialized bool

const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelFatal: "FATAL",
}

// defaultReplaceAttr formats timestamps to second precision, renders the
// custom Trace/Fatal levels, and truncates floats to 2 decimal places so
// per-channel volume ratios and render timings don't spam full float64
// precision into every log line.
func defaultReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
 a.Value = slog.StringValue(a.Value.Time().Format("2006-01-02T15:04:05Z07:00"))
	}
	if a.Key == slog.LevelKey {
 if level, ok := a.Value.Any().(slog.Level); ok {
 label, exists := levelNames[level]
 if !exists {
 label = level.String()
 }
 a.Value = slog.StringValue(label)
 }
	}
	if a.Value.Kind() == slog.KindFloat64 {
 truncated := math.Trunc(a.Value.Float64()*100) / 100.0
 a.Value = slog.Float64Value(truncated)
	}
	return a
}

// Config controls where Init sends structured vs human-readable output.
type Config struct {
	LogDir string // directory for the rotating structured log file
	MaxSizeMB int
	MaxBackups int
	MaxAgeDays int
	Level slog.Level
}

// Init sets up the global structured (JSON, file, rotated via lumberjack)
// and human-readable (text, stdout) loggers. Safe to call more than once;
// only the first call takes effect.
func Init(cfg Config) {
	initOnce.Do(func() {
 currentLogLevel.Set(cfg.Level)

 logDir := cfg.LogDir
 if logDir == "" {
 logDir = "logs"
 }
 if err := os.MkdirAll(logDir, 0o755); err != nil {
 fmt.Fprintf(os.Stderr, "logging: failed to create log directory: %v\n", err)
 }

 lj := &lumberjack.Logger{
 Filename: filepath.Join(logDir, "pulsed.log"),
 MaxSize: firstNonZero(cfg.MaxSizeMB, 100),
 MaxBackups: firstNonZero(cfg.MaxBackups, 3),
 MaxAge: firstNonZero(cfg.MaxAgeDays, 28),
 Compress: false,
 }

 structuredHandler := slog.NewJSONHandler(lj, &slog.HandlerOptions{
 Level: currentLogLevel,
 ReplaceAttr: defaultReplaceAttr,
 })
 humanReadableHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
 Level: currentLogLevel,
 ReplaceAttr: defaultReplaceAttr,
 })

 loggerMu.Lock()
 structuredLogger = slog.New(structuredHandler)
 humanReadableLogger = slog.New(humanReadableHandler)
 loggerMu.Unlock()

 slog.SetDefault(structuredLogger)
 initialized = true
	})
}

func firstNonZero(v, def int) int {
	if v > 0 {
 return v
	}
	return def
}

// IsInitialized reports whether Init has run.
func IsInitialized() bool { return initialized }

// SetLevel changes the level shared by both loggers.
func SetLevel(level slog.Level) { currentLogLevel.Set(level) }

// SetOutput redirects both loggers, e.g. for tests. The previous writers
// are not closed.
func SetOutput(structuredOutput, humanReadableOutput io.Writer) error {
	if structuredOutput == nil || humanReadableOutput == nil {
 return errors.New("logging: output writers must not be nil")
	}

	structuredHandler := slog.NewJSONHandler(structuredOutput, &slog.HandlerOptions{
 Level: currentLogLevel,
 ReplaceAttr: defaultReplaceAttr,
	})
	humanReadableHandler := slog.NewTextHandler(humanReadableOutput, &slog.HandlerOptions{
 Level: currentLogLevel,
 ReplaceAttr: defaultReplaceAttr,
	})

	loggerMu.Lock()
	structuredLogger = slog.New(structuredHandler)
	humanReadableLogger = slog.New(humanReadableHandler)
	loggerMu.Unlock()

	slog.SetDefault(structuredLogger)
	initialized = true
	return nil
}

// Structured returns the global JSON logger, or nil if Init hasn't run.
func Structured() *slog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return structuredLogger
}

// ForService returns a logger scoped with service=name, falling back to
// slog.Default if Init hasn't run yet (tests, early bootstrap).
func ForService(name string) *slog.Logger {
	loggerMu.RLock()
	logger := structuredLogger
	loggerMu.RUnlock()
	if logger == nil {
 return slog.Default().With("service", name)
	}
	return logger.With("service", name)
}
