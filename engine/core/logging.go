package core

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// LoggerOptions configure the process-wide logger. Zero value means debug
// level without caller reporting, prefixed "Gravity".
type LoggerOptions struct {
	Level        string
	ReportCaller bool
	Prefix       string
}

type logger struct {
	*log.Logger
}

var (
	loggerMu  sync.Mutex
	singleton *logger
)

func parseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "trace", "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.DebugLevel
	}
}

// InstallLogger installs the engine logger. Installing twice is an error so
// subsystems cannot silently swap the sink from under each other.
func InstallLogger(options LoggerOptions) error {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if singleton != nil {
		return AlreadyExistsf("logger already installed")
	}

	prefix := options.Prefix
	if prefix == "" {
		prefix = "Gravity"
	}

	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    options.ReportCaller,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          prefix,
	})
	l.SetLevel(parseLevel(options.Level))
	singleton = &logger{l}
	return nil
}

func getLogger() *logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if singleton == nil {
		l := log.NewWithOptions(os.Stderr, log.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          "Gravity",
		})
		l.SetLevel(log.DebugLevel)
		singleton = &logger{l}
	}
	return singleton
}

func LogTrace(msg string, args ...interface{}) {
	getLogger().Debugf(msg, args...)
}

func LogDebug(msg string, args ...interface{}) {
	getLogger().Debugf(msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	getLogger().Infof(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	getLogger().Warnf(msg, args...)
}

func LogError(msg string, args ...interface{}) {
	getLogger().Errorf(msg, args...)
}

func LogFatal(msg string, args ...interface{}) {
	getLogger().Fatalf(msg, args...)
}
