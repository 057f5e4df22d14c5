package broadcast

import (
	"context"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Module runs the router's delivery loop for the lifetime of the application.
type Module struct {
	router    *Router
	cancelRun context.CancelFunc
	logger    types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a broadcast module around router.
func NewModule(router *Router, logger types.Logger) *Module {
	return &Module{
		router: router,
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "broadcast"
}

// Router returns the delivery router.
func (m *Module) Router() *Router {
	return m.router
}

// Start launches the delivery loop.
func (m *Module) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelRun = cancel
	go m.router.Run(ctx)
	m.logger.Info("Broadcast module started - delivery loop running")
	return nil
}

// Stop ends the delivery loop.
func (m *Module) Stop(_ context.Context) error {
	if m.cancelRun == nil {
		return nil
	}
	m.cancelRun()
	m.router.Wait()
	m.cancelRun = nil
	m.logger.Info("Broadcast module stopped", "stats", m.router.Stats())
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	details := map[string]any{"pending": m.router.Pending()}
	for k, v := range m.router.Stats() {
		details[k] = v
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: details,
	}
}
