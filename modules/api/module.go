package api

import (
	"context"
	"fmt"
	"time"

	"github.com/example/shared-rooms/config"
	"github.com/example/shared-rooms/domain/room"
	"github.com/example/shared-rooms/modules/rooms"
	"github.com/example/shared-rooms/modules/session"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
)

// Engine is the command engine as seen by the transport.
type Engine interface {
	Connect(connID string, meta room.Metadata) (*session.Session, error)
	Disconnect(connID string)
	HandleFrame(connID string, data []byte)
	Connections() (total, admins int)
}

// APIModule is the HTTP API module with WebSocket support.
type APIModule struct {
	app          *fiber.App
	roomsAdapter rooms.RoomsPort
	engine       Engine
	cfg          *config.Config
	logger       types.Logger
	newID        func() string
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(cfg *config.Config, logger types.Logger) *APIModule {
	return &APIModule{
		cfg:    cfg,
		logger: logger,
		newID:  func() string { return uuid.New().String() },
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"rooms"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "rooms":
		m.roomsAdapter = rooms.NewRoomsAdapter(container)
	}
}

// SetEngine sets the command engine (called from main.go).
func (m *APIModule) SetEngine(engine Engine) {
	m.engine = engine
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.roomsAdapter == nil {
		return fmt.Errorf("rooms adapter dependency not set")
	}
	if m.engine == nil {
		return fmt.Errorf("engine dependency not set")
	}

	m.app = m.newApp()

	go func() {
		if err := m.app.Listen(m.cfg.Addr()); err != nil {
			m.logger.Error("HTTP server error", "error", err)
		}
	}()

	m.logger.Info("HTTP server started", "addr", m.cfg.Addr())
	return nil
}

func (m *APIModule) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: m.cfg.CORSAllowedOrigins,
	}))
	app.Use(logger.New(logger.Config{
		// Upgraded connections would be logged only when they close.
		Next: websocket.IsWebSocketUpgrade,
	}))

	m.setupRoutes(app)
	return app
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(_ context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("Shutting down HTTP server")
	return m.app.Shutdown()
}

// Health returns the health status.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	details := map[string]any{
		"port": m.cfg.Port,
	}
	if m.engine != nil {
		total, admins := m.engine.Connections()
		details["connections"] = total
		details["admins"] = admins
	}
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: details,
	}
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
