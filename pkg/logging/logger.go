package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger provides leveled logging for pcbuilder components.
// All components of one process write to a shared, size-rotated file
// <log-dir>/<process-id>-pcbuilder.log.
//
// All log methods (Debugf, Infof, Warnf, Errorf) write unconditionally.
// There is currently no log level filtering.
type Logger struct {
	sessionID string
	component string
	sink      io.Writer
	logger    *log.Logger
	mu        sync.Mutex
	logPath   string
	closeOnce sync.Once
}

var (
	// Global process ID used to name the log file
	sessionID     string
	sessionIDOnce sync.Once

	// stateMu guards logDir and sink
	stateMu sync.Mutex

	// logDir is the directory where log files are stored; empty means the default
	logDir string

	// sink is the rotating file shared by every component logger
	sink *lumberjack.Logger
)

// getSessionID returns or creates the session ID for this execution
func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

// SetDirectory changes where subsequently created loggers write. Loggers
// created earlier keep their file.
func SetDirectory(dir string) {
	stateMu.Lock()
	defer stateMu.Unlock()
	logDir = dir
	sink = nil
}

func defaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".pcbuilder", "logs"), nil
}

// openSink returns the shared rotating writer, creating the log directory
// on first use.
func openSink() (*lumberjack.Logger, error) {
	stateMu.Lock()
	defer stateMu.Unlock()

	if sink != nil {
		return sink, nil
	}

	if logDir == "" {
		dir, err := defaultDirectory()
		if err != nil {
			return nil, err
		}
		logDir = dir
	}
	if err := os.MkdirAll(logDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	sink = &lumberjack.Logger{
		Filename:   filepath.Join(logDir, fmt.Sprintf("%s-pcbuilder.log", getSessionID())),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	return sink, nil
}

// NewLogger creates a new logger for a specific component.
//
// If the log directory cannot be created, it returns a fallback logger that
// writes to stderr along with the error. Callers can check the error to
// detect fallback mode.
func NewLogger(component string) (*Logger, error) {
	s, err := openSink()
	if err != nil {
		return newFallbackLogger(component, err), err
	}

	return &Logger{
		sessionID: getSessionID(),
		component: component,
		sink:      s,
		logger:    log.New(s, "", 0), // We'll format timestamps ourselves
		logPath:   s.Filename,
	}, nil
}

// MustLogger is NewLogger for package-level loggers that cannot report
// errors; the stderr fallback is used silently.
func MustLogger(component string) *Logger {
	l, _ := NewLogger(component)
	return l
}

// newFallbackLogger creates a logger that writes to stderr when file logging fails
func newFallbackLogger(component string, err error) *Logger {
	logger := log.New(os.Stderr, fmt.Sprintf("[%s] ", component), log.LstdFlags|log.Lshortfile)
	logger.Printf("WARNING: Failed to initialize file logging: %v", err)
	logger.Printf("Falling back to stderr logging")

	return &Logger{
		sessionID: getSessionID(),
		component: component,
		sink:      os.Stderr,
		logger:    logger,
	}
}

// formatLogEntry creates a structured log entry with timestamp, component, and level
func (l *Logger) formatLogEntry(level, message string) string {
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	return fmt.Sprintf("[%s] [%s] [%s] %s", timestamp, l.component, level, message)
}

func (l *Logger) write(level, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logger.Println(l.formatLogEntry(level, fmt.Sprintf(format, v...)))
}

// Printf logs a formatted message
func (l *Logger) Printf(format string, v ...interface{}) {
	l.write("INFO", format, v...)
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.write("DEBUG", format, v...)
}

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) {
	l.write("INFO", format, v...)
}

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.write("WARN", format, v...)
}

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.write("ERROR", format, v...)
}

// With returns a logger for a sub-component sharing the same sink.
func (l *Logger) With(component string) *Logger {
	return &Logger{
		sessionID: l.sessionID,
		component: l.component + "/" + component,
		sink:      l.sink,
		logger:    l.logger,
		logPath:   l.logPath,
	}
}

// Writer returns an io.Writer that writes to this logger's file
func (l *Logger) Writer() io.Writer {
	return l.sink
}

// SessionID returns the current session ID
func (l *Logger) SessionID() string {
	return l.sessionID
}

// LogPath returns the path to the log file, empty in fallback mode
func (l *Logger) LogPath() string {
	return l.logPath
}

// Close releases the log file. Safe to call multiple times; the shared
// file is reopened by the next write from any other logger.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if lj, ok := l.sink.(*lumberjack.Logger); ok {
			err = lj.Close()
		}
	})
	return err
}

// GetSessionID returns the current global session ID
func GetSessionID() string {
	return getSessionID()
}

// GetLogDirectory returns the directory where logs are stored
func GetLogDirectory() (string, error) {
	if _, err := openSink(); err != nil {
		return "", err
	}
	stateMu.Lock()
	defer stateMu.Unlock()
	return logDir, nil
}
