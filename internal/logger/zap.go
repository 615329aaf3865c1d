package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap's SugaredLogger.
type Logger struct {
	*zap.SugaredLogger
}

// defaultZapLevel defines the fallback log level when an unknown level string is provided.
const defaultZapLevel = zapcore.DebugLevel

const logFileMode = 0o644

// toZapLevel converts a textual level to zapcore.Level using known level constants.
func toZapLevel(levelStr string) zapcore.Level {
	switch levelStr {
	case InfoLevel:
		return zapcore.InfoLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return defaultZapLevel
	}
}

// newConsoleCore builds a zapcore.Core with a console encoder targeting stdout.
func newConsoleCore(level zapcore.Level) zapcore.Core {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder

	encoder := zapcore.NewConsoleEncoder(cfg)
	ws := zapcore.Lock(os.Stdout) // thread-safe writer
	return zapcore.NewCore(encoder, zapcore.AddSync(ws), zap.NewAtomicLevelAt(level))
}

// newFileCore builds a JSON core appending to path.
func newFileCore(path string, level zapcore.Level) (zapcore.Core, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, logFileMode)
	if err != nil {
		return nil, fmt.Errorf("open log file %q: %w", path, err)
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	return zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.Lock(f), zap.NewAtomicLevelAt(level)), nil
}

// New builds a logger writing to stdout and, when file is non-empty, also to
// a JSON log file. Caller info is attached so file entries can be traced.
func New(levelStr, file string) (*Logger, error) {
	level := toZapLevel(levelStr)
	core := newConsoleCore(level)
	if file != "" {
		fc, err := newFileCore(file, level)
		if err != nil {
			return nil, err
		}
		core = zapcore.NewTee(core, fc)
	}
	return &Logger{SugaredLogger: zap.New(core, zap.AddCaller()).Sugar()}, nil
}
