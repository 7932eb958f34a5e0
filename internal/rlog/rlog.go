// Package rlog is a small global structured logger, backed by
// go.uber.org/zap, modeled on the teacher's own log/log.go: a
// sync.Once-guarded global logger with a fields-first API, initialized
// once at process startup by the owning binary.
package rlog

import (
	"os"
	"sync"

	"go.uber.org/zap"
)

var (
	globalLogger     *zap.SugaredLogger
	globalLoggerInit sync.Once
)

// Init initializes the package's global logger. It must be called once
// from main(); calling it again is a no-op, matching the teacher's
// Init-is-idempotent-via-sync.Once discipline (the teacher instead panics
// on double Init — since reactor programs may legitimately construct more
// than one Scheduler/Environment pair in tests, this variant is
// intentionally idempotent rather than fatal on re-entry).
func Init(development bool) func() error {
	globalLoggerInit.Do(func() {
		globalLogger = newLogger(development)
	})
	return globalLogger.Sync
}

// Get returns the global logger, initializing a default logger on first use
// if Init was never called (a development logger when REACTOR_DEV_LOG is
// non-empty, a production logger otherwise) — convenient for tests and for
// library code exercised outside cmd/reactor-run's main().
func Get() *zap.SugaredLogger {
	globalLoggerInit.Do(func() {
		globalLogger = newLogger(os.Getenv("REACTOR_DEV_LOG") != "")
	})
	return globalLogger
}

// Fatalf logs a formatted error and terminates the process. It is used for
// the "invariant violation" and "platform primitive failure" branches of
// the error taxonomy (spec.md §7), where recovery is unsafe and the
// program must abort with a diagnostic rather than attempt to continue.
func Fatalf(format string, args ...any) {
	Get().Fatalf(format, args...)
}

func newLogger(development bool) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// Logger construction failing is itself a platform primitive
		// failure; there is no logger left to report it through.
		panic(err)
	}
	return logger.Sugar()
}
