// Package eventlog keeps a bounded in-memory log of observability events.
package eventlog

import (
	"sync"
	"time"
)

// Level classifies an event log entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelAlert Level = "ALERT"
	LevelVoice Level = "VOICE"
)

// DefaultCapacity bounds the buffer independently of the reading history.
const DefaultCapacity = 1000

// Entry is one append-only observability record.
type Entry struct {
	Time     time.Time       `json:"time"`
	Level    Level           `json:"level"`
	Message  string          `json:"message"`
	Outcomes map[string]bool `json:"outcomes,omitempty"`
}

// Buffer is a fixed-capacity FIFO of entries. Unlike the reading history it
// is appended to from both the monitor and the voice surface, so it carries
// its own lock.
type Buffer struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
}

// NewBuffer creates a Buffer with the given capacity (minimum 1).
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		entries:  make([]Entry, 0, capacity),
		capacity: capacity,
	}
}

// Append records an entry, evicting the oldest when at capacity.
func (b *Buffer) Append(entry Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.entries) >= b.capacity {
		copy(b.entries, b.entries[1:])
		b.entries[len(b.entries)-1] = entry
		return
	}
	b.entries = append(b.entries, entry)
}

// Snapshot returns a copy of the last n entries in chronological order, or
// all entries when n <= 0.
func (b *Buffer) Snapshot(n int) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.entries) == 0 {
		return nil
	}
	start := 0
	if n > 0 && n < len(b.entries) {
		start = len(b.entries) - n
	}
	out := make([]Entry, len(b.entries)-start)
	copy(out, b.entries[start:])
	return out
}

// Len returns the number of stored entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
