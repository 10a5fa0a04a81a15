package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/zfogg/vaultfeed/pkg/config"
)

var logger *log.Logger

// Init initializes the CLI logger. Output goes to the configured log file,
// falling back to stderr.
func Init(verbose bool) {
	logLevel, err := log.ParseLevel(config.GetString("log.level"))
	if err != nil {
		logLevel = log.InfoLevel
	}
	if verbose {
		logLevel = log.DebugLevel
	}

	var w io.Writer = os.Stderr
	if logFile := config.GetString("log.file"); logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err == nil {
			w = f
		}
	}

	logger = log.NewWithOptions(w, log.Options{
		Level:           logLevel,
		ReportTimestamp: true,
	})
}

// Discard returns a logger that drops everything. Engine components use it
// when the caller does not supply one.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// Debug logs a debug message
func Debug(msg string, args ...interface{}) {
	if logger != nil {
		logger.Debug(msg, args...)
	}
}

// Info logs an info message
func Info(msg string, args ...interface{}) {
	if logger != nil {
		logger.Info(msg, args...)
	}
}

// Warn logs a warning message
func Warn(msg string, args ...interface{}) {
	if logger != nil {
		logger.Warn(msg, args...)
	}
}

// Error logs an error message
func Error(msg string, args ...interface{}) {
	if logger != nil {
		logger.Error(msg, args...)
	}
}

// GetLogger returns the logger instance, or a discard logger before Init
func GetLogger() *log.Logger {
	if logger == nil {
		return Discard()
	}
	return logger
}
