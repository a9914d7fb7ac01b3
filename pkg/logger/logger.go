package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Fields aliases logrus.Fields so callers do not import logrus directly.
type Fields = logrus.Fields

// Log wraps logrus.Logger.
type Log struct {
	*logrus.Logger
}

var globalLogger *Log

func init() {
	globalLogger = newLogger()
}

func newLogger() *Log {
	logger := logrus.New()

	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		levelStr = "info"
	}
	if lvl, err := logrus.ParseLevel(strings.ToLower(levelStr)); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	return &Log{Logger: logger}
}

// GetLogger returns the process-wide logger.
func GetLogger() *Log {
	return globalLogger
}

// SetLevel adjusts the global level from a string, defaulting to info.
func SetLevel(levelStr string) {
	lvl, err := logrus.ParseLevel(strings.ToLower(levelStr))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	globalLogger.Logger.SetLevel(lvl)
}

// SetFileOutput mirrors log output to a rotating file in addition to stderr.
func SetFileOutput(path string, maxSizeMB, maxBackups, maxAgeDays int) {
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	globalLogger.Logger.SetOutput(io.MultiWriter(os.Stderr, rotator))
}

// WithComponent tags entries with the emitting component.
func (l *Log) WithComponent(component string) *logrus.Entry {
	return l.Logger.WithField("component", component)
}
