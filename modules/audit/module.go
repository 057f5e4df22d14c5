// Package audit consumes moderation events from the event bus and keeps a
// bounded log of the most recent ones.
package audit

import (
	"context"
	"fmt"

	"github.com/example/shared-rooms/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// Module implements the audit consumer module.
type Module struct {
	log    *Log
	logger types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new audit module retaining capacity entries.
func NewModule(capacity int, logger types.Logger) *Module {
	return &Module{
		log:    NewLog(capacity),
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "audit"
}

// Log returns the audit log.
func (m *Module) Log() *Log {
	return m.log
}

// RegisterEventConsumers subscribes to every moderation event.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.RoomCreatedV1, m.handle, m); err != nil {
		return fmt.Errorf("failed to register RoomCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.RoomDeletedV1, m.handle, m); err != nil {
		return fmt.Errorf("failed to register RoomDeleted consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.MemberKickedV1, m.handle, m); err != nil {
		return fmt.Errorf("failed to register MemberKicked consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.MemberBannedV1, m.handle, m); err != nil {
		return fmt.Errorf("failed to register MemberBanned consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.MemberUnbannedV1, m.handle, m); err != nil {
		return fmt.Errorf("failed to register MemberUnbanned consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.PasswordChangedV1, m.handle, m); err != nil {
		return fmt.Errorf("failed to register PasswordChanged consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.AdminLoggedInV1, m.handle, m); err != nil {
		return fmt.Errorf("failed to register AdminLoggedIn consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.GuardTrippedV1, m.handle, m); err != nil {
		return fmt.Errorf("failed to register GuardTripped consumer: %w", err)
	}

	m.logger.Info("Registered event consumers", "events", len(events.All()))
	return nil
}

func (m *Module) handle(_ context.Context, ev events.ModerationEvent, _ *mono.Msg) error {
	m.log.Add(ev)

	logger := m.logger
	if ev.Room != "" {
		logger = logger.With("room", ev.Room)
	}
	if ev.ByAdmin {
		logger = logger.With("byAdmin", true)
	}
	switch ev.Action {
	case events.ActionGuardTripped, events.ActionAdminLoggedIn:
		logger.Warn("Audit", "action", ev.Action, "actor", ev.ActorID, "detail", ev.Detail)
	default:
		logger.Info("Audit", "action", ev.Action, "actor", ev.ActorID, "target", ev.TargetName)
	}
	return nil
}

// Start starts the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Audit module started")
	return nil
}

// Stop stops the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Audit module stopped")
	return nil
}

// Health returns the module health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	counts := m.log.Counts()
	details := make(map[string]any, len(counts)+1)
	for action, n := range counts {
		details[string(action)] = n
	}
	if recent := m.log.Recent(1); len(recent) == 1 {
		details["last_event_at"] = recent[0].Timestamp
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: details,
	}
}
