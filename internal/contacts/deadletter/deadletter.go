// Package deadletter records upserts the contact API acknowledged without
// persisting. Each entry is one JSON line holding the payload that was sent,
// the body that came back, and when it happened.
package deadletter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Entry is one dead-lettered upsert.
type Entry struct {
	Payload    json.RawMessage `json:"payload"`
	Response   json.RawMessage `json:"response"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// Config controls the rotating log file.
type Config struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Log appends entries as JSON lines to a writer.
type Log struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// Option configures the Log.
type Option func(*Log)

// WithClock overrides the timestamp source (for testing).
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates a log writing to w.
func New(w io.Writer, opts ...Option) *Log {
	l := &Log{w: w, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewRotating creates a log backed by a size-rotated file.
func NewRotating(cfg Config, opts ...Option) (*Log, io.Closer) {
	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups == 0 {
		cfg.MaxBackups = 5
	}
	file := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	return New(file, opts...), file
}

// Record appends one entry. Bodies that are not valid JSON are stored as
// JSON strings so the line stays parseable.
func (l *Log) Record(_ context.Context, payload, response []byte) error {
	entry := Entry{
		Payload:    rawOrString(payload),
		Response:   rawOrString(response),
		RecordedAt: l.now().UTC(),
	}
	line, err := encodeLine(entry)
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.w.Write(line); err != nil {
		return fmt.Errorf("write dead letter: %w", err)
	}
	return nil
}

func rawOrString(b []byte) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage("null")
	}
	if json.Valid(b) {
		return json.RawMessage(b)
	}
	quoted, _ := encodeLine(string(b))
	return json.RawMessage(bytes.TrimSuffix(quoted, []byte("\n")))
}

// encodeLine marshals v followed by a newline. HTML characters are left
// unescaped so the file stays readable.
func encodeLine(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Memory keeps entries in memory.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemory creates an empty in-memory dead-letter sink.
func NewMemory() *Memory {
	return &Memory{}
}

// Record stores the entry.
func (m *Memory) Record(_ context.Context, payload, response []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, Entry{
		Payload:    rawOrString(payload),
		Response:   rawOrString(response),
		RecordedAt: time.Now().UTC(),
	})
	return nil
}

// Entries returns a copy of everything recorded so far.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}
