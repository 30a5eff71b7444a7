package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// TimestampFormat matches the day-month-year stamp used in the app's log lines.
const TimestampFormat = "02-Jan-06 15:04:05"

// New returns a logger writing to stdout at the given level.
// format is "text" (default) or "json".
func New(level, format string) *logrus.Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter is New with an explicit destination (used in tests).
func NewWithWriter(w io.Writer, level, format string) *logrus.Logger {
	log := logrus.New()
	if strings.EqualFold(format, "json") {
		log.Formatter = &logrus.JSONFormatter{TimestampFormat: TimestampFormat}
	} else {
		log.Formatter = &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: TimestampFormat,
		}
	}
	log.Level = ParseLevel(level)
	log.Out = w
	return log
}

// ParseLevel maps a level name to a logrus level, defaulting to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	return log
}
