// Package activity holds the append-only activity log produced by the model
// gateway and read by the admin surface. Entries are never consumed by the
// orchestration core itself.
package activity

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxEntries caps the retained log; the oldest entry is dropped beyond it.
const MaxEntries = 100

// previewLimit caps the stored prompt preview.
const previewLimit = 100

// Feature tags for log entries.
const (
	FeatureChat  = "Chat"
	FeatureVideo = "Video"
)

// Entry is one activity record.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Feature   string    `json:"feature"`
	Prompt    string    `json:"prompt"`
	Status    int       `json:"status"`
}

// Sink receives activity records from the gateway.
type Sink interface {
	Record(feature, prompt string, status int)
}

// Log is an in-memory, newest-first activity log capped at MaxEntries.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewLog creates an empty activity log.
func NewLog() *Log {
	return &Log{}
}

// Record prepends an entry, truncating the prompt preview to 100 characters.
func (l *Log) Record(feature, prompt string, status int) {
	entry := Entry{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Feature:   feature,
		Prompt:    Preview(prompt),
		Status:    status,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append([]Entry{entry}, l.entries...)
	if len(l.entries) > MaxEntries {
		l.entries = l.entries[:MaxEntries]
	}
}

// Entries returns a snapshot of the log, newest first.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Preview caps a prompt at 100 characters, marking truncation with an
// ellipsis so the stored preview never exceeds the cap.
func Preview(prompt string) string {
	runes := []rune(prompt)
	if len(runes) <= previewLimit {
		return prompt
	}
	return string(runes[:previewLimit-3]) + "..."
}
