// Package session maps live connections to their identity, outbox and
// admin capability.
package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/example/shared-rooms/domain/room"
)

// DefaultOutboxSize is the per-connection buffer used when none is configured.
const DefaultOutboxSize = 256

var (
	// ErrUnknownSession is returned for a connection id with no live session.
	ErrUnknownSession = errors.New("session: unknown connection")
	// ErrOutboxFull is returned when an observer is too slow to keep up.
	ErrOutboxFull = errors.New("session: outbox full")
	// ErrSessionExists is returned when a connection id is registered twice.
	ErrSessionExists = errors.New("session: connection already registered")
)

// Session is one live connection.
type Session struct {
	ID          string
	Metadata    room.Metadata
	ConnectedAt time.Time

	mu     sync.Mutex
	admin  bool
	closed bool
	outbox chan []byte
}

// Outbox is drained by the connection's writer goroutine. It is closed when
// the session is removed.
func (s *Session) Outbox() <-chan []byte {
	return s.outbox
}

// IsAdmin reports whether the connection holds the admin capability.
func (s *Session) IsAdmin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.admin
}

func (s *Session) enqueue(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrUnknownSession
	}
	select {
	case s.outbox <- data:
		return nil
	default:
		return ErrOutboxFull
	}
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.admin = false
	close(s.outbox)
}

// Directory is the set of live sessions.
type Directory struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	outboxSize int
	now        func() time.Time
}

// NewDirectory creates a Directory whose outboxes buffer outboxSize frames.
func NewDirectory(outboxSize int) *Directory {
	if outboxSize <= 0 {
		outboxSize = DefaultOutboxSize
	}
	return &Directory{
		sessions:   make(map[string]*Session),
		outboxSize: outboxSize,
		now:        time.Now,
	}
}

// Register adds a new live connection.
func (d *Directory) Register(id string, meta room.Metadata) (*Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.sessions[id]; ok {
		return nil, ErrSessionExists
	}
	s := &Session{
		ID:          id,
		Metadata:    meta,
		ConnectedAt: d.now(),
		outbox:      make(chan []byte, d.outboxSize),
	}
	d.sessions[id] = s
	return s, nil
}

// Remove drops the session, revokes its admin capability and closes its
// outbox. It reports whether the session was present.
func (d *Directory) Remove(id string) bool {
	d.mu.Lock()
	s, ok := d.sessions[id]
	delete(d.sessions, id)
	d.mu.Unlock()

	if ok {
		s.close()
	}
	return ok
}

// Get returns the live session for id.
func (d *Directory) Get(id string) (*Session, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.sessions[id]
	return s, ok
}

// Enqueue hands data to the connection's outbox without blocking.
func (d *Directory) Enqueue(id string, data []byte) error {
	s, ok := d.Get(id)
	if !ok {
		return ErrUnknownSession
	}
	return s.enqueue(data)
}

// GrantAdmin marks the connection as an authenticated administrator.
func (d *Directory) GrantAdmin(id string) error {
	s, ok := d.Get(id)
	if !ok {
		return ErrUnknownSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrUnknownSession
	}
	s.admin = true
	return nil
}

// IsAdmin reports whether id holds the admin capability.
func (d *Directory) IsAdmin(id string) bool {
	s, ok := d.Get(id)
	return ok && s.IsAdmin()
}

// AdminIDs returns the admin delivery group, sorted for stable delivery order.
func (d *Directory) AdminIDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var ids []string
	for id, s := range d.sessions {
		if s.IsAdmin() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of live sessions.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sessions)
}

// AdminCount returns the size of the admin delivery group.
func (d *Directory) AdminCount() int {
	return len(d.AdminIDs())
}

// CloseAll removes every session. Used on shutdown.
func (d *Directory) CloseAll() int {
	d.mu.Lock()
	sessions := d.sessions
	d.sessions = make(map[string]*Session)
	d.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
	return len(sessions)
}
