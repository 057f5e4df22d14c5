package audit

import (
	"sync"

	"github.com/example/shared-rooms/events"
)

// DefaultCapacity is how many entries a Log keeps by default.
const DefaultCapacity = 100

// Log is a bounded in-memory record of recent moderation events. The oldest
// entry is overwritten once the log is full.
type Log struct {
	mu      sync.RWMutex
	entries []events.ModerationEvent
	next    int
	full    bool
	counts  map[events.Action]int64
}

// NewLog creates a Log holding up to capacity entries.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		entries: make([]events.ModerationEvent, capacity),
		counts:  make(map[events.Action]int64),
	}
}

// Add appends ev.
func (l *Log) Add(ev events.ModerationEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[l.next] = ev
	l.next = (l.next + 1) % len(l.entries)
	if l.next == 0 {
		l.full = true
	}
	l.counts[ev.Action]++
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all
// retained entries.
func (l *Log) Recent(limit int) []events.ModerationEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := l.next
	if l.full {
		n = len(l.entries)
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]events.ModerationEvent, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (l.next - i + len(l.entries)) % len(l.entries)
		out = append(out, l.entries[idx])
	}
	return out
}

// Counts returns the number of events seen per action, including entries
// that have since been overwritten.
func (l *Log) Counts() map[events.Action]int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[events.Action]int64, len(l.counts))
	for k, v := range l.counts {
		out[k] = v
	}
	return out
}
