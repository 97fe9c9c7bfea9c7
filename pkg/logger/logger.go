package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// Level represents log level
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
	LevelDebug Level = "DEBUG"
)

// Logger writes leveled key=value lines. Debug lines are dropped unless
// debug output was enabled.
type Logger struct {
	*log.Logger
	debug bool
}

// New creates a logger writing to stdout.
func New(debug bool) *Logger {
	return NewWithWriter(os.Stdout, debug)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(w io.Writer, debug bool) *Logger {
	return &Logger{
		Logger: log.New(w, "", 0),
		debug:  debug,
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWithWriter(io.Discard, false)
}

// DebugEnabled reports whether debug lines are written.
func (l *Logger) DebugEnabled() bool {
	return l != nil && l.debug
}

// Log writes a structured log entry
func (l *Logger) Log(level Level, message string, fields ...Field) {
	if l == nil {
		return
	}
	timestamp := time.Now().Format(time.RFC3339)
	l.Logger.Println(formatLogEntry(timestamp, string(level), message, fields...))
}

// Info logs an info message
func (l *Logger) Info(message string, fields ...Field) {
	l.Log(LevelInfo, message, fields...)
}

// Error logs an error message
func (l *Logger) Error(message string, fields ...Field) {
	l.Log(LevelError, message, fields...)
}

// Debug logs a debug message
func (l *Logger) Debug(message string, fields ...Field) {
	if !l.DebugEnabled() {
		return
	}
	l.Log(LevelDebug, message, fields...)
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value string
}

// F creates a Field
func F(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates a Field from an integer.
func Int(key string, value int) Field {
	return Field{Key: key, Value: fmt.Sprintf("%d", value)}
}

// Err creates an "error" Field.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: "<nil>"}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Duration creates a Field from a duration.
func Duration(key string, d time.Duration) Field {
	return Field{Key: key, Value: d.String()}
}

func formatLogEntry(timestamp, level, message string, fields ...Field) string {
	var b strings.Builder
	b.WriteString(timestamp)
	b.WriteString(" [")
	b.WriteString(level)
	b.WriteString("] ")
	b.WriteString(message)
	if len(fields) > 0 {
		b.WriteString(" |")
		for _, field := range fields {
			b.WriteString(" ")
			b.WriteString(field.Key)
			b.WriteString("=")
			b.WriteString(field.Value)
		}
	}
	return b.String()
}
