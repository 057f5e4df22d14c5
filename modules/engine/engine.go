// Package engine dispatches inbound commands to the room registry and the
// admin mirror and reports failures back to the requester.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/shared-rooms/domain/room"
	"github.com/example/shared-rooms/events"
	"github.com/example/shared-rooms/modules/admin"
	"github.com/example/shared-rooms/modules/broadcast"
	"github.com/example/shared-rooms/modules/rooms"
	"github.com/example/shared-rooms/modules/session"
	"github.com/go-monolith/mono/pkg/types"
)

// Auditor records moderation and lifecycle facts.
type Auditor interface {
	Record(ev events.ModerationEvent)
}

type handler func(connID string, cmd Command) error

// Engine is the single entry point for commands from connected clients.
type Engine struct {
	registry *rooms.Registry
	sessions *session.Directory
	mirror   *admin.Mirror
	sink     rooms.Publisher
	auditor  Auditor
	logger   types.Logger
	now      func() time.Time

	handlers map[Kind]handler
}

// New wires an Engine. auditor may be nil.
func New(registry *rooms.Registry, sessions *session.Directory, mirror *admin.Mirror, sink rooms.Publisher, auditor Auditor, logger types.Logger) *Engine {
	e := &Engine{
		registry: registry,
		sessions: sessions,
		mirror:   mirror,
		sink:     sink,
		auditor:  auditor,
		logger:   logger,
		now:      time.Now,
	}
	e.handlers = map[Kind]handler{
		KindJoin:               e.join,
		KindEdit:               e.edit,
		KindPageSelect:         e.selectPage,
		KindChatSend:           e.sendChat,
		KindChatDelete:         e.deleteChat,
		KindChangePassword:     e.changePassword,
		KindKick:               e.kick,
		KindBan:                e.ban,
		KindUnban:              e.unban,
		KindDeleteRoom:         e.deleteRoom,
		KindLeave:              e.leave,
		KindAdminLogin:         e.adminLogin,
		KindAdminDeleteRoom:    e.adminDeleteRoom,
		KindAdminKick:          e.adminKick,
		KindAdminDeleteMessage: e.adminDeleteMessage,
	}
	return e
}

// Connect registers a new live connection.
func (e *Engine) Connect(connID string, meta room.Metadata) (*session.Session, error) {
	s, err := e.sessions.Register(connID, meta)
	if err != nil {
		return nil, fmt.Errorf("failed to register connection: %w", err)
	}
	e.logger.Debug("Connection registered", "connID", connID, "ip", meta.IP)
	return s, nil
}

// Disconnect drops the session and its admin capability first, then removes
// the connection from every room. Safe to call more than once.
func (e *Engine) Disconnect(connID string) {
	wasLive := e.sessions.Remove(connID)
	left := e.registry.LeaveAll(connID)
	if wasLive || len(left) > 0 {
		e.logger.Debug("Connection removed", "connID", connID, "rooms", left)
	}
}

// HandleFrame decodes and handles one inbound frame.
func (e *Engine) HandleFrame(connID string, data []byte) {
	cmd, err := DecodeCommand(data)
	if err != nil {
		e.logger.Debug("Rejected frame", "connID", connID, "error", err)
		code := "invalid_frame"
		if errors.Is(err, ErrUnknownCommand) {
			code = "unknown_command"
		}
		e.sink.Publish(broadcast.To(connID, broadcast.Event{
			Type:    broadcast.EventCommandRejected,
			Payload: broadcast.RejectedPayload{Code: code, Message: err.Error()},
		}))
		return
	}
	e.Handle(connID, cmd)
}

// Handle runs cmd for connID. A panic in a handler is contained to this
// command.
func (e *Engine) Handle(connID string, cmd Command) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Command handler panicked", "connID", connID, "command", cmd.Kind(), "room", cmd.RoomName(), "panic", r)
			e.reject(connID, cmd, fmt.Errorf("internal error"))
		}
	}()

	if _, ok := e.sessions.Get(connID); !ok {
		e.logger.Debug("Command from unknown connection", "connID", connID, "command", cmd.Kind())
		return
	}

	h, ok := e.handlers[cmd.Kind()]
	if !ok {
		e.reject(connID, cmd, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Kind()))
		return
	}
	if err := h(connID, cmd); err != nil {
		e.reject(connID, cmd, err)
	}
}

// reject reports err to the requester only. Missing rooms and messages are
// benign and reported to nobody.
func (e *Engine) reject(connID string, cmd Command, err error) {
	var notFound *room.NotFoundError
	if errors.As(err, &notFound) {
		e.logger.Debug("Ignoring command on missing entity", "connID", connID, "command", cmd.Kind(), "error", err)
		return
	}

	code := room.Code(err)
	if errors.Is(err, ErrUnknownCommand) {
		code = "unknown_command"
	}
	var retryAfter int64
	var authErr *room.AuthError
	if errors.As(err, &authErr) {
		retryAfter = int64(authErr.RetryAfter.Round(time.Second) / time.Second)
	}
	if code == "internal" {
		e.logger.Error("Command failed", "connID", connID, "command", cmd.Kind(), "room", cmd.RoomName(), "error", err)
	}

	var ev broadcast.Event
	switch cmd.Kind() {
	case KindJoin:
		ev = broadcast.Event{
			Type:    broadcast.EventJoinResult,
			Room:    cmd.RoomName(),
			Payload: broadcast.JoinResultPayload{Success: false, Reason: code, RetryAfter: retryAfter},
		}
	case KindAdminLogin:
		ev = broadcast.Event{
			Type:    broadcast.EventAdminAuthFailed,
			Payload: broadcast.ReasonPayload{Reason: code, RetryAfter: retryAfter},
		}
	default:
		ev = broadcast.Event{
			Type:    broadcast.EventCommandRejected,
			Room:    cmd.RoomName(),
			Payload: broadcast.RejectedPayload{Command: string(cmd.Kind()), Code: code, Message: err.Error()},
		}
	}
	e.sink.Publish(broadcast.To(connID, ev))
}

func (e *Engine) record(ev events.ModerationEvent) {
	if e.auditor == nil {
		return
	}
	ev.Timestamp = e.now()
	e.auditor.Record(ev)
}

// GuardTripped records a brute-force lockout. It is registered with the
// guard's trip callbacks.
func (e *Engine) GuardTripped(until time.Time) {
	e.logger.Warn("Authentication locked out", "until", until)
	e.record(events.ModerationEvent{
		Action: events.ActionGuardTripped,
		Detail: "locked until " + until.UTC().Format(time.RFC3339),
	})
}

func (e *Engine) join(connID string, cmd Command) error {
	c := cmd.(*Join)
	s, ok := e.sessions.Get(connID)
	if !ok {
		return room.ErrParticipantNotFound
	}
	res, err := e.registry.Join(rooms.JoinRequest{
		Room:     c.Room,
		Password: c.Password,
		Name:     c.Name,
		ConnID:   connID,
		Metadata: s.Metadata,
	})
	if err != nil {
		return err
	}
	if res.Created {
		e.logger.Info("Room created", "room", c.Room, "owner", connID)
		e.record(events.ModerationEvent{Action: events.ActionRoomCreated, Room: c.Room, ActorID: connID, TargetName: c.Name})
	}
	return nil
}

func (e *Engine) edit(connID string, cmd Command) error {
	c := cmd.(*Edit)
	return e.registry.EditText(c.Room, c.PageKey, c.Text, connID)
}

func (e *Engine) selectPage(connID string, cmd Command) error {
	c := cmd.(*PageSelect)
	return e.registry.SelectPage(c.Room, c.PageKey, connID)
}

func (e *Engine) sendChat(connID string, cmd Command) error {
	c := cmd.(*ChatSend)
	_, err := e.registry.PostMessage(c.Room, connID, c.Body)
	return err
}

func (e *Engine) deleteChat(connID string, cmd Command) error {
	c := cmd.(*ChatDelete)
	_, err := e.registry.DeleteMessage(c.Room, c.MessageID, rooms.Actor{ID: connID})
	return err
}

func (e *Engine) changePassword(connID string, cmd Command) error {
	c := cmd.(*ChangePassword)
	ok, err := e.registry.ChangePassword(c.Room, c.Password, connID)
	if ok {
		e.record(events.ModerationEvent{Action: events.ActionPasswordChanged, Room: c.Room, ActorID: connID})
	}
	return err
}

func (e *Engine) kick(connID string, cmd Command) error {
	c := cmd.(*Kick)
	p, ok, err := e.registry.Kick(c.Room, c.Target, rooms.Actor{ID: connID})
	if ok {
		e.record(events.ModerationEvent{Action: events.ActionMemberKicked, Room: c.Room, ActorID: connID, TargetID: p.ID, TargetName: p.Name})
	}
	return err
}

func (e *Engine) ban(connID string, cmd Command) error {
	c := cmd.(*Ban)
	p, ok, err := e.registry.Ban(c.Room, c.Target, rooms.Actor{ID: connID})
	if ok {
		e.record(events.ModerationEvent{Action: events.ActionMemberBanned, Room: c.Room, ActorID: connID, TargetID: p.ID, TargetName: p.Name})
	}
	return err
}

func (e *Engine) unban(connID string, cmd Command) error {
	c := cmd.(*Unban)
	ok, err := e.registry.Unban(c.Room, c.Name, connID)
	if ok {
		e.record(events.ModerationEvent{Action: events.ActionMemberUnbanned, Room: c.Room, ActorID: connID, TargetName: c.Name})
	}
	return err
}

func (e *Engine) deleteRoom(connID string, cmd Command) error {
	c := cmd.(*DeleteRoom)
	ok, err := e.registry.DeleteRoom(c.Room, rooms.Actor{ID: connID})
	if ok {
		e.record(events.ModerationEvent{Action: events.ActionRoomDeleted, Room: c.Room, ActorID: connID})
	}
	return err
}

func (e *Engine) leave(connID string, cmd Command) error {
	e.registry.Leave(cmd.RoomName(), connID)
	return nil
}

func (e *Engine) adminLogin(connID string, cmd Command) error {
	c := cmd.(*AdminLogin)
	if err := e.mirror.Login(connID, c.Password); err != nil {
		return err
	}
	s, _ := e.sessions.Get(connID)
	var ip string
	if s != nil {
		ip = s.Metadata.IP
	}
	e.logger.Info("Admin authenticated", "connID", connID, "ip", ip)
	e.record(events.ModerationEvent{Action: events.ActionAdminLoggedIn, ActorID: connID, Detail: ip})
	return nil
}

func (e *Engine) adminDeleteRoom(connID string, cmd Command) error {
	c := cmd.(*AdminDeleteRoom)
	ok, err := e.mirror.DeleteRoom(connID, c.Room)
	if ok {
		e.record(events.ModerationEvent{Action: events.ActionRoomDeleted, Room: c.Room, ActorID: connID, ByAdmin: true})
	}
	return err
}

func (e *Engine) adminKick(connID string, cmd Command) error {
	c := cmd.(*AdminKick)
	p, ok, err := e.mirror.Kick(connID, c.Room, c.Target)
	if ok {
		e.record(events.ModerationEvent{Action: events.ActionMemberKicked, Room: c.Room, ActorID: connID, TargetID: p.ID, TargetName: p.Name, ByAdmin: true})
	}
	return err
}

func (e *Engine) adminDeleteMessage(connID string, cmd Command) error {
	c := cmd.(*AdminDeleteMessage)
	_, err := e.mirror.DeleteMessage(connID, c.Room, c.MessageID)
	return err
}

// Connections returns the number of live connections and how many of them
// hold the admin capability.
func (e *Engine) Connections() (total, admins int) {
	return e.sessions.Count(), e.sessions.AdminCount()
}
