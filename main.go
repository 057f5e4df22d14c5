package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/example/shared-rooms/config"
	"github.com/example/shared-rooms/modules/admin"
	"github.com/example/shared-rooms/modules/api"
	"github.com/example/shared-rooms/modules/audit"
	"github.com/example/shared-rooms/modules/broadcast"
	"github.com/example/shared-rooms/modules/credential"
	"github.com/example/shared-rooms/modules/engine"
	"github.com/example/shared-rooms/modules/guard"
	"github.com/example/shared-rooms/modules/rooms"
	"github.com/example/shared-rooms/modules/session"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Shared Rooms - Fiber WebSocket + Moderation Engine ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	logger := app.Logger()

	hasher := credential.NewHasher()
	adminHash := cfg.AdminPasswordHash
	if adminHash == "" {
		if adminHash, err = hasher.Hash(cfg.AdminPassword); err != nil {
			log.Fatalf("Failed to hash admin password: %v", err)
		}
	}
	cipher, err := credential.NewCipher(cfg.RoomPasswordKey)
	if err != nil {
		log.Fatalf("Failed to create password cipher: %v", err)
	}

	// Core components. The guard is shared by room joins and admin login.
	authGuard := guard.New(cfg.Guard)
	sessions := session.NewDirectory(cfg.Outbox)
	router := broadcast.NewRouter(sessions, logger.WithModule("broadcast"))
	registry := rooms.NewRegistry(cfg.Rooms, cipher, authGuard, router)
	mirror := admin.NewMirror(registry, sessions, authGuard, hasher, adminHash, router)
	router.SetAdminSource(mirror)

	// Create modules
	roomsModule := rooms.NewModule(registry, logger.WithModule("rooms"))
	broadcastModule := broadcast.NewModule(router, logger.WithModule("broadcast"))
	engineModule := engine.NewModule(registry, sessions, mirror, router, logger.WithModule("engine"))
	auditModule := audit.NewModule(cfg.Audit, logger.WithModule("audit"))
	apiModule := api.NewModule(cfg, logger.WithModule("api"))

	// Slow observers are disconnected; lockouts are audited.
	router.OnOverflow(engineModule.Engine().Disconnect)
	authGuard.OnTrip(engineModule.Engine().GuardTripped)

	// Inject the engine into the API module
	// (This is done manually because the engine is not exposed via ServiceContainer)
	apiModule.SetEngine(engineModule.Engine())

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - rooms: Registry + sweeper (ServiceProviderModule for room summaries)
	// - broadcast: Delivery loop for room and admin fan-out
	// - engine: Command dispatch (EventEmitterModule for audit events)
	// - audit: Event consumer keeping recent moderation events
	// - api: Driving adapter (Fiber HTTP/WebSocket server, depends on rooms)
	app.Register(roomsModule)
	app.Register(broadcastModule)
	app.Register(engineModule)
	app.Register(auditModule)
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg *config.Config) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Limits:")
	log.Printf("  - Chat history per room: %d messages", cfg.Rooms.ChatCap)
	log.Printf("  - Pages per room: %d", cfg.Rooms.MaxPages)
	log.Printf("  - Empty rooms evicted after %s (checked every %s)", cfg.Rooms.InactivityTimeout, cfg.Rooms.SweepInterval)
	log.Printf("  - Login lockout: more than %d failures within %s locks for %s",
		cfg.Guard.Threshold, cfg.Guard.Window, cfg.Guard.Lockout)
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", cfg.Port)
	log.Println("  GET    /health                 - Health check")
	log.Println("  GET    /api/v1/rooms           - List rooms (name, members, created_at)")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", cfg.Port)
	log.Println(`  Frames: {"type":"join","room":"Alpha","payload":{"password":"...","name":"Bob"}}`)
	log.Println("  Commands: join, edit, page.select, chat.send, chat.delete, room.changePassword,")
	log.Println("            room.kick, room.ban, room.unban, room.delete, room.leave,")
	log.Println("            admin.login, admin.deleteRoom, admin.kick, admin.deleteMessage")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
