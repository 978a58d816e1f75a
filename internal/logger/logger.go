package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level represents the severity of a log message
type Level int

const (
	// Debug level for detailed troubleshooting
	Debug Level = iota
	// Info level for general operational entries
	Info
	// Warn level for non-critical issues
	Warn
	// Error level for errors that need attention
	Error
)

// Config holds logger configuration
type Config struct {
	// Level sets the minimum level to log
	Level Level
	// File is the path to the log file. If empty, logs go to stderr
	File string
	// MaxSizeMB is the maximum size in MB before log rotation
	MaxSizeMB int
	// RetentionDays is how long rotated logs are kept
	RetentionDays int
}

// Logger is a leveled logger. Operational log lines go here; user-facing
// results are printed by the CLI directly, so the two streams never mix.
type Logger struct {
	debugLogger *log.Logger
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
	level       Level
	mu          sync.Mutex
	closer      io.Closer
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// New creates a new logger instance. With a file configured the log rotates
// via lumberjack; otherwise everything goes to stderr.
func New(config Config) (*Logger, error) {
	var w io.Writer = os.Stderr
	var closer io.Closer

	if config.File != "" {
		logDir := filepath.Dir(config.File)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		rotating := &lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    config.MaxSizeMB,
			MaxAge:     config.RetentionDays,
			MaxBackups: 3,
			Compress:   true,
		}
		w = rotating
		closer = rotating
	}

	flags := log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile
	return &Logger{
		debugLogger: log.New(w, "DEBUG: ", flags),
		infoLogger:  log.New(w, "INFO: ", flags),
		warnLogger:  log.New(w, "WARN: ", flags),
		errorLogger: log.New(w, "ERROR: ", flags),
		level:       config.Level,
		closer:      closer,
	}, nil
}

// Initialize sets up the default logger with configuration
func Initialize(config Config) error {
	var err error
	once.Do(func() {
		defaultLogger, err = New(config)
	})
	return err
}

// Get returns the default logger. Before Initialize it returns a discard
// logger so library code can log unconditionally.
func Get() *Logger {
	if defaultLogger == nil {
		l, _ := New(Config{Level: Error})
		l.debugLogger.SetOutput(io.Discard)
		l.infoLogger.SetOutput(io.Discard)
		l.warnLogger.SetOutput(io.Discard)
		l.errorLogger.SetOutput(io.Discard)
		return l
	}
	return defaultLogger
}

// Close releases the log file handle if one is open
func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level <= Debug {
		l.debugLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level <= Info {
		l.infoLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level <= Warn {
		l.warnLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level <= Error {
		l.errorLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

// ParseLevel converts a string level to Level
func ParseLevel(level string) (Level, error) {
	switch level {
	case "debug", "DEBUG":
		return Debug, nil
	case "info", "INFO":
		return Info, nil
	case "warn", "WARN":
		return Warn, nil
	case "error", "ERROR":
		return Error, nil
	default:
		return Info, fmt.Errorf("unknown log level: %s", level)
	}
}
