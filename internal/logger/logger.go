// Package logger provides verbose logging for the tldr CLI.
// When verbose mode is enabled via the --verbose flag, debug messages
// are printed to stderr to help users follow the analysis pipeline.
// Errors are always printed.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	logf(true, "[DEBUG] ", "", format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	logf(true, "[INFO] ", "", format, args...)
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	logf(true, "[WARN] ", "", format, args...)
}

// Error prints an error message regardless of verbose mode.
func Error(format string, args ...any) {
	logf(false, "[ERROR] ", "", format, args...)
}

// Logger prefixes every message with a scope, typically a request ID.
type Logger struct {
	prefix string
}

// With returns a logger that tags messages with the given scope.
func With(scope string) *Logger {
	if scope == "" {
		return &Logger{}
	}
	return &Logger{prefix: "[" + scope + "] "}
}

// Debug prints a scoped message if verbose mode is enabled.
func (l *Logger) Debug(format string, args ...any) {
	logf(true, "[DEBUG] ", l.prefix, format, args...)
}

// Info prints a scoped message if verbose mode is enabled.
func (l *Logger) Info(format string, args ...any) {
	logf(true, "[INFO] ", l.prefix, format, args...)
}

// Warn prints a scoped warning if verbose mode is enabled.
func (l *Logger) Warn(format string, args ...any) {
	logf(true, "[WARN] ", l.prefix, format, args...)
}

// Error prints a scoped error regardless of verbose mode.
func (l *Logger) Error(format string, args ...any) {
	logf(false, "[ERROR] ", l.prefix, format, args...)
}

func logf(verboseOnly bool, level, prefix, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verboseOnly && !verbose {
		return
	}
	fmt.Fprintf(output, level+prefix+format+"\n", args...)
}
