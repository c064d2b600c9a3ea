package logging

import (
	"fmt"
	"log"
)

const (
	// TraceLevel indicates a log message's level of criticality
	TraceLevel = iota
	// DebugLevel indicates a log message's level of criticality
	DebugLevel
	// InfoLevel indicates a log message's level of criticality
	InfoLevel
	// WarnLevel indicates a log message's level of criticality
	WarnLevel
	// ErrorLevel indicates a log message's level of criticality
	ErrorLevel
	// FatalLevel indicates a log message's level of criticality
	FatalLevel
)

// LogLevelToString translates a log level enum to a string representation
func LogLevelToString(level int) string {
	switch level {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "TRACE"
	}
}

// Logger receives leveled log messages from engine components
type Logger interface {
	Log(level int, format string, args ...interface{})
}

type stdLogger struct {
	minLevel int
}

// NewStdLogger produces a Logger which writes to the standard log package,
// dropping messages below the given level
func NewStdLogger(minLevel int) Logger {
	return &stdLogger{minLevel: minLevel}
}

// Log writes a message to the standard log, tagged with its level
func (l *stdLogger) Log(level int, format string, args ...interface{}) {
	if level < l.minLevel {
		return
	}
	log.Printf("[%s] %s", LogLevelToString(level), fmt.Sprintf(format, args...))
}

type nopLogger struct{}

// NewNopLogger produces a Logger which discards all messages
func NewNopLogger() Logger {
	return &nopLogger{}
}

// Log discards the message
func (l *nopLogger) Log(level int, format string, args ...interface{}) {}
