package rooms

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// Module exposes the registry to the application and runs the inactivity
// sweep.
type Module struct {
	registry *Registry
	logger   types.Logger

	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once

	mu        sync.Mutex
	lastSweep time.Time
	swept     int
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a rooms module around registry.
func NewModule(registry *Registry, logger types.Logger) *Module {
	return &Module{
		registry: registry,
		logger:   logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "rooms"
}

// Registry returns the room registry.
func (m *Module) Registry() *Registry {
	return m.registry
}

// RegisterServices registers the list-rooms request-reply service.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceListRooms,
		json.Unmarshal,
		json.Marshal,
		m.handleListRooms,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceListRooms, err)
	}

	m.logger.Info("Registered rooms services", "services", []string{ServiceListRooms})
	return nil
}

func (m *Module) handleListRooms(_ context.Context, _ ListRoomsRequest, _ *mono.Msg) (ListRoomsResponse, error) {
	summaries := m.registry.Summaries()
	return ListRoomsResponse{Rooms: summaries, Total: len(summaries)}, nil
}

// Start launches the sweep loop.
func (m *Module) Start(_ context.Context) error {
	m.stopChan = make(chan struct{})
	m.doneChan = make(chan struct{})

	go m.run(m.registry.Config().SweepInterval)

	m.logger.Info("Rooms module started",
		"sweepInterval", m.registry.Config().SweepInterval,
		"inactivityTimeout", m.registry.Config().InactivityTimeout)
	return nil
}

func (m *Module) run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(m.doneChan)

	for {
		select {
		case <-m.stopChan:
			return
		case now := <-ticker.C:
			m.sweep(now)
		}
	}
}

func (m *Module) sweep(now time.Time) {
	deleted := m.registry.Sweep(now)

	m.mu.Lock()
	m.lastSweep = now
	m.swept += len(deleted)
	m.mu.Unlock()

	if len(deleted) > 0 {
		m.logger.Info("Swept inactive rooms", "count", len(deleted), "rooms", deleted)
	}
}

// Stop ends the sweep loop.
func (m *Module) Stop(ctx context.Context) error {
	if m.stopChan == nil {
		return nil
	}

	m.stopOnce.Do(func() {
		close(m.stopChan)
	})

	select {
	case <-m.doneChan:
		m.logger.Info("Rooms module stopped", "rooms", m.registry.Count())
	case <-ctx.Done():
		m.logger.Warn("Rooms module shutdown timeout exceeded")
		return ctx.Err()
	}
	return nil
}

// Health reports room counts and sweep progress.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	m.mu.Lock()
	lastSweep, swept := m.lastSweep, m.swept
	m.mu.Unlock()

	details := map[string]any{
		"rooms":       m.registry.Count(),
		"swept_total": swept,
	}
	if !lastSweep.IsZero() {
		details["last_sweep"] = lastSweep
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: details,
	}
}
