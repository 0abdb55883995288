package util

import (
	"sync"
)

// The process-wide logger is optional: commands call InitLogger once during
// startup, and code that logs before (or without) that, such as unit tests,
// gets a silent no-op. The helpers below cover the levels the viewer actually
// emits at; anything needing structured fields takes a *Logger directly.

var (
	globalLogger *Logger
	loggerOnce   sync.Once
)

// InitLogger installs the process-wide logger. Later calls are no-ops.
func InitLogger(logLevel, logFile string, debugToConsole bool) {
	loggerOnce.Do(func() {
		globalLogger = NewLogger(logLevel, logFile, debugToConsole)
	})
}

// LogDebugf logs a formatted debug message on the process-wide logger.
func LogDebugf(format string, args ...interface{}) {
	if l := globalLogger; l != nil {
		l.Debugf(format, args...)
	}
}

// LogInfof logs a formatted info message on the process-wide logger.
func LogInfof(format string, args ...interface{}) {
	if l := globalLogger; l != nil {
		l.Infof(format, args...)
	}
}

// LogWarn logs a warning message on the process-wide logger.
func LogWarn(msg string) {
	if l := globalLogger; l != nil {
		l.Warn(msg)
	}
}

// LogWarnf logs a formatted warning message on the process-wide logger.
func LogWarnf(format string, args ...interface{}) {
	if l := globalLogger; l != nil {
		l.Warnf(format, args...)
	}
}
