// Package debug provides conditional logging for conductor-dashboard.
//
// Debug logging is enabled by setting CONDUCTOR_DEBUG:
//
//	CONDUCTOR_DEBUG=1 conductor-dashboard --conductor-dir ./conductor
//
// The TUI owns the terminal, so the interactive command routes output to a
// log file (see OpenLogFile) instead of stderr. Warnings are written to the
// log file whether or not debug is enabled.
//
// Usage:
//
//	debug.Log("parsed %d tracks", n)
//	defer debug.LogEnterExit("initialScan")()
package debug

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

// LogDirEnv overrides the directory OpenLogFile writes to.
const LogDirEnv = "CONDUCTOR_DASHBOARD_LOG_DIR"

const prefix = "[CONDUCTOR] "

var (
	enabled bool
	logger  = log.New(io.Discard, prefix, log.Ltime|log.Lmicroseconds)
	warnOn  bool
)

func init() {
	if os.Getenv("CONDUCTOR_DEBUG") != "" {
		enabled = true
		logger.SetOutput(os.Stderr)
	}
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	return enabled
}

// SetEnabled allows programmatic control of debug logging.
func SetEnabled(e bool) {
	enabled = e
}

// SetOutput redirects all log output. Warnings go to w from now on too.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
	warnOn = w != io.Discard
}

// LogDir returns the directory used for log files.
func LogDir() string {
	if dir := os.Getenv(LogDirEnv); dir != "" {
		return dir
	}
	return filepath.Join(os.TempDir(), "conductor-dashboard")
}

// OpenLogFile points the logger at <LogDir>/dashboard.log and returns a
// function that closes it and restores stderr.
func OpenLogFile() (path string, closeFn func(), err error) {
	dir := LogDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", func() {}, fmt.Errorf("creating log dir: %w", err)
	}
	path = filepath.Join(dir, "dashboard.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", func() {}, fmt.Errorf("opening log file: %w", err)
	}
	SetOutput(f)
	return path, func() {
		SetOutput(io.Discard)
		if enabled {
			logger.SetOutput(os.Stderr)
		}
		_ = f.Close()
	}, nil
}

// Log writes a debug message if debug logging is enabled.
func Log(format string, args ...any) {
	if !enabled {
		return
	}
	logger.Printf(format, args...)
}

// Warn records a non-fatal problem. It is written whenever a log file is
// open, even with debug disabled.
func Warn(format string, args ...any) {
	if !enabled && !warnOn {
		return
	}
	logger.Printf("WARN "+format, args...)
}

// LogIf writes a debug message only if the condition is true.
func LogIf(cond bool, format string, args ...any) {
	if !enabled || !cond {
		return
	}
	logger.Printf(format, args...)
}

// LogEnterExit logs function entry and exit with timing.
func LogEnterExit(name string) func() {
	if !enabled {
		return func() {}
	}
	logger.Printf("-> %s", name)
	start := time.Now()
	return func() {
		logger.Printf("<- %s (%v)", name, time.Since(start))
	}
}

// Section logs a section header.
func Section(name string) {
	if !enabled {
		return
	}
	logger.Printf("=== %s ===", name)
}
