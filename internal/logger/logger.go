// Package logger writes one JSON object per line, the format every component of
// the service uses for operational logs.
package logger

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// Logger encodes entries as JSON lines with "ts" and "level" fields added.
// It is safe for concurrent use.
type Logger struct {
	mu  sync.Mutex
	enc *json.Encoder
	loc *time.Location
}

// New returns a Logger writing to w with timestamps in loc (UTC when nil).
func New(w io.Writer, loc *time.Location) *Logger {
	if loc == nil {
		loc = time.UTC
	}
	return &Logger{enc: json.NewEncoder(w), loc: loc}
}

// Default returns a Logger writing to stdout in UTC.
func Default() *Logger {
	return New(os.Stdout, time.UTC)
}

// Log writes data as-is, filling in "ts" and, when absent, a "level" derived from "status".
func (l *Logger) Log(data map[string]any) {
	if l == nil {
		return
	}
	data["ts"] = time.Now().In(l.loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.enc.Encode(data)
}

// Info logs msg with fields at info level.
func (l *Logger) Info(msg string, fields map[string]any) {
	l.Log(with(fields, "info", msg, nil))
}

// Warn logs msg with fields at warn level.
func (l *Logger) Warn(msg string, err error, fields map[string]any) {
	l.Log(with(fields, "warn", msg, err))
}

// Error logs msg with fields and err at error level.
func (l *Logger) Error(msg string, err error, fields map[string]any) {
	l.Log(with(fields, "error", msg, err))
}

func with(fields map[string]any, level, msg string, err error) map[string]any {
	data := make(map[string]any, len(fields)+4)
	for k, v := range fields {
		data[k] = v
	}
	data["level"] = level
	data["msg"] = msg
	if err != nil {
		data["error"] = err.Error()
	}
	return data
}
