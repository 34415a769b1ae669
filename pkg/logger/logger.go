// Package logger holds the shared zap logger used by the messaging layer.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Log = zap.NewNop()

// Init builds the process logger. With a log file configured it writes JSON
// to both the file and stdout; otherwise it uses the development console
// encoder. Unknown levels fall back to info.
func Init(level string, logFile string) error {
	var config zap.Config

	if logFile != "" {
		config = zap.NewProductionConfig()
		config.OutputPaths = []string{logFile, "stdout"}
	} else {
		config = zap.NewDevelopmentConfig()
	}

	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		parsed = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(parsed)

	Log, err = config.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	return nil
}

// Sync flushes buffered log entries.
func Sync() error {
	if Log != nil {
		return Log.Sync()
	}
	return nil
}
