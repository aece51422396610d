// Package logx provides structured, per-component logging for the job queue.
package logx

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logger is a named logger for one component (dispatcher, executor, store, ...).
type Logger struct {
	component string
	logger    *log.Logger
}

var (
	debugMu      sync.RWMutex
	debugEnabled bool
	debugDomains map[string]bool // nil = all domains
)

func init() { //nolint:gochecknoinits // mirrors env-driven init used throughout the base repository
	initFromEnv()
}

func initFromEnv() {
	debugMu.Lock()
	defer debugMu.Unlock()

	if v := os.Getenv("JOBQ_DEBUG"); v == "1" || strings.EqualFold(v, "true") {
		debugEnabled = true
	}
	if v := os.Getenv("JOBQ_DEBUG_DOMAINS"); v != "" {
		debugDomains = make(map[string]bool)
		for _, d := range strings.Split(v, ",") {
			debugDomains[strings.TrimSpace(d)] = true
		}
	}
}

// NewLogger returns a logger that stamps every line with component.
func NewLogger(component string) *Logger {
	return &Logger{component: component, logger: log.New(os.Stderr, "", 0)}
}

// IsDebugEnabledForDomain reports whether debug logging is active for component.
func IsDebugEnabledForDomain(component string) bool {
	debugMu.RLock()
	defer debugMu.RUnlock()
	if !debugEnabled {
		return false
	}
	if debugDomains == nil {
		return true
	}
	return debugDomains[component]
}

func (l *Logger) log(level Level, format string, args ...any) {
	ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	l.logger.Printf("[%s] [%s] %s: %s", ts, l.component, level, fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...any) {
	if !IsDebugEnabledForDomain(l.component) {
		return
	}
	l.log(LevelDebug, format, args...)
}

func (l *Logger) Info(format string, args ...any)  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.log(LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...any) { l.log(LevelError, format, args...) }

// Errorf logs and returns the formatted error.
func (l *Logger) Errorf(format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	l.Error("%s", err.Error())
	return err
}

// Wrap logs msg + err and returns fmt.Errorf("%s: %w", msg, err).
func (l *Logger) Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	wrapped := fmt.Errorf("%s: %w", msg, err)
	l.Error("%s", wrapped.Error())
	return wrapped
}

var defaultLogger = NewLogger("system")

func Debugf(format string, args ...any) { defaultLogger.Debug(format, args...) }
func Infof(format string, args ...any)  { defaultLogger.Info(format, args...) }
func Warnf(format string, args ...any)  { defaultLogger.Warn(format, args...) }
func Errorf(format string, args ...any) error { return defaultLogger.Errorf(format, args...) }
func Wrap(err error, msg string) error        { return defaultLogger.Wrap(err, msg) }
