package logger

import (
	"sync"

	"go.uber.org/zap"
)

// Log levels used across the application.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	// globalLogger holds the singleton logger instance.
	globalLogger *Logger
	once         sync.Once
)

// Get returns a singleton console logger configured with the provided level.
// The first call initializes the logger; subsequent calls ignore the level
// and return the already initialized instance.
func Get(level string) *Logger {
	once.Do(func() {
		globalLogger = &Logger{SugaredLogger: zap.New(newConsoleCore(toZapLevel(level))).Sugar()}
	})
	return globalLogger
}

// Nop returns a logger that discards everything. Used by tests and by
// components constructed without a logger.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}
