// Package logging provides config-driven categorized file logging for
// goac. Logs are written to <home>/logs/ with one file per category and
// are controlled by the logging section of <home>/config.yaml; when debug
// is off no files are written at all.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot    Category = "boot"    // startup and CLI wiring
	CategoryHeader  Category = "header"  // Autocrypt header parsing/rendering
	CategoryCrypto  Category = "crypto"  // OpenPGP operations
	CategoryMail    Category = "mail"    // MIME assembly and parsing
	CategoryStore   Category = "store"   // sqlite operations
	CategoryPeers   Category = "peers"   // peer state updates
	CategoryMessage Category = "message" // compose/parse pipeline
	CategorySetup   Category = "setup"   // setup messages
	CategoryWatch   Category = "watch"   // inbox watcher
)

// loggingConfig mirrors config.LoggingConfig to avoid a circular import.
type loggingConfig struct {
	Debug      bool            `yaml:"debug"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

type configFile struct {
	Logging loggingConfig `yaml:"logging"`
}

// Logger writes to one category's file.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	home      string
	config    loggingConfig
	configMu  sync.RWMutex
	logLevel  int
)

// Log levels.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Initialize sets up the logging directory and loads the config. Call
// once at startup with the goac home directory.
func Initialize(homeDir string) error {
	if homeDir == "" {
		return fmt.Errorf("logging: home directory required")
	}
	home = homeDir
	logsDir = filepath.Join(home, "logs")

	if err := loadConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "[logging] warning: could not load config: %v\n", err)
		config.Debug = false
	}
	if !config.Debug {
		return nil // silent no-op when debug logging is off
	}
	if err := os.MkdirAll(logsDir, 0o700); err != nil {
		return fmt.Errorf("logging: create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("goac logging initialized")
	boot.Info("home: %s", home)
	boot.Info("level: %s", config.Level)
	return nil
}

func loadConfig() error {
	configMu.Lock()
	defer configMu.Unlock()

	data, err := os.ReadFile(filepath.Join(home, "config.yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			config.Debug = false
			return nil
		}
		return err
	}
	var cf configFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("logging: parse config: %w", err)
	}
	config = cf.Logging

	switch config.Level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}
	return nil
}

// IsDebugMode reports whether debug file logging is enabled.
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return config.Debug
}

// IsCategoryEnabled reports whether a category is enabled.
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()

	if !config.Debug {
		return false
	}
	if config.Categories == nil {
		return true
	}
	enabled, ok := config.Categories[string(category)]
	if !ok {
		return true
	}
	return enabled
}

// Get returns (or creates) the logger for a category. A no-op logger is
// returned when the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) || logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] warning: could not open %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	l.logger.Printf("[DEBUG] "+format, args...)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...any) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	l.logger.Printf("[INFO] "+format, args...)
}

// Warn logs a warning.
func (l *Logger) Warn(format string, args ...any) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	l.logger.Printf("[WARN] "+format, args...)
}

// Error logs an error; errors are never level-filtered.
func (l *Logger) Error(format string, args ...any) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[ERROR] "+format, args...)
}

// CloseAll closes all open log files. Call at shutdown.
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// Timer measures an operation's duration.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// Convenience helpers; no-ops when the category is disabled.

func Boot(format string, args ...any)         { Get(CategoryBoot).Info(format, args...) }
func Header(format string, args ...any)       { Get(CategoryHeader).Info(format, args...) }
func HeaderDebug(format string, args ...any)  { Get(CategoryHeader).Debug(format, args...) }
func Crypto(format string, args ...any)       { Get(CategoryCrypto).Info(format, args...) }
func CryptoDebug(format string, args ...any)  { Get(CategoryCrypto).Debug(format, args...) }
func Mail(format string, args ...any)         { Get(CategoryMail).Info(format, args...) }
func MailDebug(format string, args ...any)    { Get(CategoryMail).Debug(format, args...) }
func Store(format string, args ...any)        { Get(CategoryStore).Info(format, args...) }
func StoreDebug(format string, args ...any)   { Get(CategoryStore).Debug(format, args...) }
func Peers(format string, args ...any)        { Get(CategoryPeers).Info(format, args...) }
func PeersDebug(format string, args ...any)   { Get(CategoryPeers).Debug(format, args...) }
func Message(format string, args ...any)      { Get(CategoryMessage).Info(format, args...) }
func MessageDebug(format string, args ...any) { Get(CategoryMessage).Debug(format, args...) }
func Setup(format string, args ...any)        { Get(CategorySetup).Info(format, args...) }
func SetupDebug(format string, args ...any)   { Get(CategorySetup).Debug(format, args...) }
func Watch(format string, args ...any)        { Get(CategoryWatch).Info(format, args...) }
func WatchDebug(format string, args ...any)   { Get(CategoryWatch).Debug(format, args...) }
