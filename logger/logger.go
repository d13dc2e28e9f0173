package logger

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
)

// Logger type is interface for available logging methods.
type Logger interface {
	Trace(...interface{})
	Debug(...interface{})
	Info(...interface{})
	Warn(...interface{})
	Error(...interface{})
	Panic(...interface{})
	Fatal(...interface{})
	WithField(key string, value interface{}) Logger
}

// LoggerImpl is a struct that extends sirupsen/logrus.
type LoggerImpl struct {
	Logger         *log.Entry
	Service        string
	LogLevelStr    string
	PrintStackDump bool
}

// NewLogger will create a new logger implementation that writes human readable text to stderr.
func NewLogger(serviceName string, level string, stackDumpOnPanic bool) *LoggerImpl {
	return newLogger(serviceName, level, stackDumpOnPanic, &log.TextFormatter{FullTimestamp: true})
}

// NewJsonLogger will create a new logger implementation that writes JSON to stderr.
// Use this when running as a service or in 12 factor mode where logs are shipped elsewhere.
func NewJsonLogger(serviceName string, level string, stackDumpOnPanic bool) *LoggerImpl {
	return newLogger(serviceName, level, stackDumpOnPanic, &log.JSONFormatter{})
}

func newLogger(serviceName string, level string, stackDumpOnPanic bool, formatter log.Formatter) *LoggerImpl {
	base := log.New()
	base.SetOutput(os.Stderr)
	base.SetFormatter(formatter)
	logLevel, err := log.ParseLevel(level)
	if err == nil {
		base.SetLevel(logLevel)
	} else {
		fmt.Println("Error setting up logging: ", err)
		os.Exit(1)
	}
	entry := base.WithFields(log.Fields{
		"service": serviceName,
	})
	return &LoggerImpl{Logger: entry, Service: serviceName, LogLevelStr: level, PrintStackDump: stackDumpOnPanic}
}

// WithField returns a child logger that adds key=value to every message.
func (l *LoggerImpl) WithField(key string, value interface{}) Logger {
	return &LoggerImpl{
		Logger:         l.Logger.WithField(key, value),
		Service:        l.Service,
		LogLevelStr:    l.LogLevelStr,
		PrintStackDump: l.PrintStackDump,
	}
}

// Trace log.
func (l *LoggerImpl) Trace(message ...interface{}) {
	l.Logger.Trace(message...)
}

// Debug log.
func (l *LoggerImpl) Debug(message ...interface{}) {
	l.Logger.Debug(message...)
}

// Info log.
func (l *LoggerImpl) Info(message ...interface{}) {
	l.Logger.Info(message...)
}

// Warn log.
func (l *LoggerImpl) Warn(message ...interface{}) {
	l.Logger.Warn(message...)
}

// Error (with stack trace in trace mode or if PrintStackDump is set).
func (l *LoggerImpl) Error(message ...interface{}) {
	if l.LogLevelStr == "trace" || l.PrintStackDump {
		l.Logger.WithField("stackTrace", fmt.Sprintf("%s", debug.Stack())).Error(message...)
	} else {
		l.Logger.Error(message...)
	}
}

// Panic (with stack trace in debug mode, or if user explicitly sets PrintStackDump).
func (l *LoggerImpl) Panic(message ...interface{}) {
	if l.LogLevelStr == "debug" || l.LogLevelStr == "trace" || l.PrintStackDump {
		l.Logger.WithField("stackTrace", fmt.Sprintf("%s", debug.Stack())).Panic(message...)
	} else {
		l.Logger.Panic(message...)
	}
}

// Fatal (with stack trace in debug mode).
// This causes exit(1) without a stack dump by default.
func (l *LoggerImpl) Fatal(message ...interface{}) {
	if l.LogLevelStr == "debug" || l.LogLevelStr == "trace" {
		l.Logger.WithField("stackTrace", fmt.Sprintf("%s", debug.Stack())).Fatal(message...)
	} else {
		l.Logger.Fatal(message...)
	}
}

// SetOutput will set the log output to the Writer supplied.
func (l *LoggerImpl) SetOutput(writer io.Writer) {
	l.Logger.Logger.SetOutput(writer)
}
