package engine

import (
	"context"
	"sync/atomic"

	"github.com/example/shared-rooms/events"
	"github.com/example/shared-rooms/modules/admin"
	"github.com/example/shared-rooms/modules/rooms"
	"github.com/example/shared-rooms/modules/session"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Module hosts the Engine and publishes its audit events on the event bus.
type Module struct {
	engine   *Engine
	sessions *session.Directory
	eventBus mono.EventBus
	logger   types.Logger

	published atomic.Int64
	failed    atomic.Int64
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
	_ Auditor                    = (*Module)(nil)
)

// NewModule creates the engine module.
func NewModule(registry *rooms.Registry, sessions *session.Directory, mirror *admin.Mirror, sink rooms.Publisher, logger types.Logger) *Module {
	m := &Module{
		sessions: sessions,
		logger:   logger,
	}
	m.engine = New(registry, sessions, mirror, sink, m, logger)
	return m
}

// Name returns the module name.
func (m *Module) Name() string {
	return "engine"
}

// Engine returns the command engine.
func (m *Module) Engine() *Engine {
	return m.engine
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return events.All()
}

// Record publishes ev on the event bus. Publishing failures are logged and
// never reach the requester.
func (m *Module) Record(ev events.ModerationEvent) {
	if m.eventBus == nil {
		m.logger.Debug("Event bus not set, dropping audit event", "action", ev.Action)
		return
	}
	if err := events.Publish(m.eventBus, ev); err != nil {
		m.failed.Add(1)
		m.logger.Warn("Failed to publish audit event", "action", ev.Action, "error", err)
		return
	}
	m.published.Add(1)
}

// Start starts the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Engine module started", "commands", len(Kinds))
	return nil
}

// Stop disconnects every remaining session.
func (m *Module) Stop(_ context.Context) error {
	closed := m.sessions.CloseAll()
	m.logger.Info("Engine module stopped", "closedSessions", closed)
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"sessions":          m.sessions.Count(),
			"admins":            m.sessions.AdminCount(),
			"audit_published":   m.published.Load(),
			"audit_failed":      m.failed.Load(),
			"event_bus_present": m.eventBus != nil,
		},
	}
}
