package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

var (
	debugLogger *log.Logger
	logFile     *os.File
	mu          sync.Mutex
	isSetup     bool
	debugMode   bool
)

// SetupLogger initializes the file logger. When debug is true, messages are
// also mirrored to stdout and DebugLog output is enabled.
func SetupLogger(logFilePath string, debug bool) error {
	mu.Lock()
	defer mu.Unlock()

	if isSetup {
		return nil
	}

	var err error
	logFile, err = os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	var out io.Writer = logFile
	if debug {
		out = io.MultiWriter(os.Stdout, logFile)
	}
	debugLogger = log.New(out, "", log.LstdFlags)
	debugMode = debug

	debugLogger.Printf("--- StyleExtractor Log Started at %s ---\n", time.Now().Format(time.RFC3339))

	isSetup = true
	return nil
}

// EnableDebug turns on DebugLog output without a log file; messages go to
// the standard logger.
func EnableDebug() {
	mu.Lock()
	defer mu.Unlock()
	debugMode = true
}

// CloseLogger closes the log file
func CloseLogger() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		debugLogger.Printf("--- StyleExtractor Log Closed at %s ---\n", time.Now().Format(time.RFC3339))
		logFile.Close()
		logFile = nil
		debugLogger = nil
		isSetup = false
		debugMode = false
	}
}

func output(prefix, format string, args ...interface{}) {
	if debugLogger != nil {
		debugLogger.Printf(prefix+format, args...)
		return
	}
	log.Printf(prefix+format, args...)
}

// LogInfo logs an information message
func LogInfo(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	output("INFO: ", format, args...)
}

// DebugLog logs a message if debug mode is enabled
func DebugLog(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if debugMode {
		output("DEBUG: ", format, args...)
	}
}

// DebugEnabled reports whether DebugLog output is on, so callers can skip
// work that only feeds debug lines
func DebugEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return debugMode
}

// LogError logs an error message
func LogError(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	output("ERROR: ", format, args...)
}

// LogWarning logs a warning message
func LogWarning(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	output("WARNING: ", format, args...)
}

// LogRequest logs one served HTTP request
func LogRequest(method, path string, status int, elapsed time.Duration) {
	mu.Lock()
	defer mu.Unlock()
	output("", "%s %s -> %d (%v)", method, path, status, elapsed.Round(time.Millisecond))
}
