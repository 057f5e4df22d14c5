package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/example/shared-rooms/modules/session"
	"github.com/go-monolith/mono/pkg/types"
)

// Directory resolves connection ids to outboxes and the admin group.
type Directory interface {
	Enqueue(connID string, data []byte) error
	AdminIDs() []string
}

// AdminSource builds the privileged snapshot pushed to admin sessions.
type AdminSource interface {
	AdminSnapshot() AdminSnapshot
}

// Router is the single delivery stage. Publish appends to an unbounded FIFO
// without blocking; Run drains it on one goroutine, so changes reach every
// observer in the order they were published.
type Router struct {
	mu     sync.Mutex
	queue  []Change
	signal chan struct{}

	dir        Directory
	admin      AdminSource
	onOverflow func(connID string)
	logger     types.Logger

	done chan struct{}

	delivered atomic.Int64
	evicted   atomic.Int64
	snapshots atomic.Int64
}

// NewRouter creates a Router that delivers through dir.
func NewRouter(dir Directory, logger types.Logger) *Router {
	return &Router{
		signal: make(chan struct{}, 1),
		dir:    dir,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// SetAdminSource wires the admin snapshot builder. Must be called before Run.
func (r *Router) SetAdminSource(src AdminSource) {
	r.admin = src
}

// OnOverflow sets the callback invoked, from the delivery goroutine, for a
// connection whose outbox is full. The connection is expected to be
// disconnected; the router never waits on it. Must be called before Run.
func (r *Router) OnOverflow(fn func(connID string)) {
	r.onOverflow = fn
}

// Publish queues c for delivery. It never blocks on observers.
func (r *Router) Publish(c Change) {
	if c.Empty() {
		return
	}
	r.mu.Lock()
	r.queue = append(r.queue, c)
	r.mu.Unlock()

	select {
	case r.signal <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued changes.
func (r *Router) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// Run delivers queued changes until ctx is cancelled.
func (r *Router) Run(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Broadcast router stopped", "pending", r.Pending())
			return
		case <-r.signal:
			r.Drain()
		}
	}
}

// Wait blocks until Run has returned.
func (r *Router) Wait() {
	<-r.done
}

// Drain delivers everything queued so far and returns the number of changes
// delivered. Only one goroutine may drain at a time.
func (r *Router) Drain() int {
	n := 0
	for {
		r.mu.Lock()
		batch := r.queue
		r.queue = nil
		r.mu.Unlock()

		if len(batch) == 0 {
			return n
		}
		for _, c := range batch {
			r.deliver(c)
			n++
		}
	}
}

// Stats returns delivery counters.
func (r *Router) Stats() map[string]int64 {
	return map[string]int64{
		"delivered":       r.delivered.Load(),
		"evicted":         r.evicted.Load(),
		"admin_snapshots": r.snapshots.Load(),
	}
}

func (r *Router) deliver(c Change) {
	overflowed := make(map[string]bool)
	send := func(to string, data []byte) {
		if overflowed[to] {
			return
		}
		err := r.dir.Enqueue(to, data)
		switch {
		case err == nil:
			r.delivered.Add(1)
		case errors.Is(err, session.ErrOutboxFull):
			overflowed[to] = true
		}
	}

	for _, d := range c.Direct {
		if data, ok := r.encode(d.Event); ok {
			send(d.To, data)
		}
	}
	if len(c.Recipients) > 0 {
		for _, ev := range c.Events {
			data, ok := r.encode(ev)
			if !ok {
				continue
			}
			for _, to := range c.Recipients {
				send(to, data)
			}
		}
	}

	if c.RefreshAdmin && r.admin != nil {
		if admins := r.dir.AdminIDs(); len(admins) > 0 {
			ev := Event{Type: EventAdminSnapshot, Payload: r.admin.AdminSnapshot()}
			if data, ok := r.encode(ev); ok {
				r.snapshots.Add(1)
				for _, to := range admins {
					send(to, data)
				}
			}
		}
	}

	for id := range overflowed {
		r.evicted.Add(1)
		r.logger.Warn("Evicting slow observer", "connID", id, "room", c.Room)
		if r.onOverflow != nil {
			r.onOverflow(id)
		}
	}
}

func (r *Router) encode(ev Event) ([]byte, bool) {
	data, err := json.Marshal(ev)
	if err != nil {
		r.logger.Error("Failed to marshal event", "type", ev.Type, "room", ev.Room, "error", err)
		return nil, false
	}
	return data, true
}
