package api

import (
	"strings"
	"sync"

	"github.com/example/shared-rooms/domain/room"
	"github.com/example/shared-rooms/modules/rooms"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// maxFrameSize bounds a single inbound frame: the largest text edit plus
// envelope overhead.
const maxFrameSize = 4*rooms.MaxTextLength + 4096

const (
	localIP        = "client_ip"
	localUserAgent = "client_user_agent"
)

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes(app *fiber.App) {
	app.Get("/health", m.healthHandler)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals(localIP, c.IP())
			c.Locals(localUserAgent, c.Get(fiber.HeaderUserAgent))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(m.handleWebSocket))

	api := app.Group("/api/v1")
	api.Get("/rooms", m.listRooms)
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	total, admins := m.engine.Connections()
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module":      "api",
			"connections": total,
			"admins":      admins,
		},
	})
}

// listRooms handles GET /api/v1/rooms.
func (m *APIModule) listRooms(c *fiber.Ctx) error {
	summaries, err := m.roomsAdapter.ListRooms(c.UserContext())
	if err != nil {
		m.logger.Error("Failed to list rooms", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "list_failed",
			Message: "Failed to list rooms",
		})
	}
	if summaries == nil {
		summaries = []room.Summary{}
	}
	return c.JSON(RoomListResponse{Rooms: summaries, Total: len(summaries)})
}

// handleWebSocket handles WebSocket connections at /ws. Outbound frames are
// written only by the writer goroutine, which drains the session outbox
// until the engine closes it.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	connID := m.newID()
	ip, _ := c.Locals(localIP).(string)
	ua, _ := c.Locals(localUserAgent).(string)

	s, err := m.engine.Connect(connID, clientMetadata(ip, ua))
	if err != nil {
		m.logger.Error("Failed to register connection", "connID", connID, "error", err)
		return
	}
	m.logger.Info("WebSocket client connected", "connID", connID, "ip", ip)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.writePump(c, connID, s.Outbox())
	}()

	defer func() {
		m.engine.Disconnect(connID)
		wg.Wait()
		m.logger.Info("WebSocket client disconnected", "connID", connID)
	}()

	c.SetReadLimit(maxFrameSize)
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				m.logger.Debug("Client closed connection", "connID", connID)
			} else {
				m.logger.Debug("Read error", "connID", connID, "error", err)
			}
			return
		}
		m.engine.HandleFrame(connID, data)
	}
}

func (m *APIModule) writePump(c *websocket.Conn, connID string, outbox <-chan []byte) {
	for data := range outbox {
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			m.logger.Debug("Write error", "connID", connID, "error", err)
			// Unblock the read loop so the connection is torn down.
			_ = c.Close()
			for range outbox {
			}
			return
		}
	}
	_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = c.Close()
}

// clientMetadata captures what the admin view shows about a connection.
func clientMetadata(ip, userAgent string) room.Metadata {
	return room.Metadata{
		IP:        ip,
		UserAgent: userAgent,
		Device:    deviceFromUserAgent(userAgent),
		Browser:   browserFromUserAgent(userAgent),
	}
}

func deviceFromUserAgent(ua string) string {
	l := strings.ToLower(ua)
	switch {
	case l == "":
		return ""
	case strings.Contains(l, "ipad"), strings.Contains(l, "tablet"):
		return "Tablet"
	case strings.Contains(l, "mobi"), strings.Contains(l, "iphone"), strings.Contains(l, "android"):
		return "Mobile"
	default:
		return "Desktop"
	}
}

// browserFromUserAgent checks tokens in precedence order: Edge and Opera
// carry a Chrome token, and Chrome carries a Safari token.
func browserFromUserAgent(ua string) string {
	checks := []struct{ token, name string }{
		{"Edg/", "Edge"},
		{"OPR/", "Opera"},
		{"Firefox/", "Firefox"},
		{"Chrome/", "Chrome"},
		{"Safari/", "Safari"},
	}
	for _, c := range checks {
		if strings.Contains(ua, c.token) {
			return c.name
		}
	}
	if ua == "" {
		return ""
	}
	return "Other"
}
