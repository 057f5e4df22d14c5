// Package admin implements the privileged overlay: admin login, the admin
// delivery group and moderation with ownership bypass.
package admin

import (
	"fmt"

	"github.com/example/shared-rooms/domain/room"
	"github.com/example/shared-rooms/modules/broadcast"
	"github.com/example/shared-rooms/modules/rooms"
)

// Verifier checks a secret against its one-way hash.
type Verifier interface {
	Verify(secret, hash string) bool
}

// Guard is the brute-force guard shared with room joins.
type Guard interface {
	Check() error
	RecordFailure() bool
}

// Sessions holds the per-connection admin capability.
type Sessions interface {
	GrantAdmin(connID string) error
	IsAdmin(connID string) bool
}

// Mirror grants the admin capability and runs moderation on behalf of
// admin sessions.
type Mirror struct {
	registry   *rooms.Registry
	sessions   Sessions
	guard      Guard
	verifier   Verifier
	secretHash string
	sink       rooms.Publisher
}

// NewMirror creates a Mirror that authenticates against secretHash.
func NewMirror(registry *rooms.Registry, sessions Sessions, guard Guard, verifier Verifier, secretHash string, sink rooms.Publisher) *Mirror {
	return &Mirror{
		registry:   registry,
		sessions:   sessions,
		guard:      guard,
		verifier:   verifier,
		secretHash: secretHash,
		sink:       sink,
	}
}

// Login grants the admin capability to connID when password matches. The
// guard is consulted first and a wrong password counts as a failed attempt.
// On success the connection receives adminAuthenticated with the current
// rooms and stats.
func (m *Mirror) Login(connID, password string) error {
	if err := m.guard.Check(); err != nil {
		return err
	}
	if password == "" {
		return &room.ValidationError{Reason: room.EmptyField, Field: "password"}
	}
	if !m.verifier.Verify(password, m.secretHash) {
		m.guard.RecordFailure()
		return room.ErrWrongPassword
	}
	if err := m.sessions.GrantAdmin(connID); err != nil {
		return fmt.Errorf("failed to grant admin: %w", err)
	}

	m.sink.Publish(broadcast.To(connID, broadcast.Event{
		Type:    broadcast.EventAdminAuthenticated,
		Payload: m.AdminSnapshot(),
	}))
	return nil
}

func (m *Mirror) actor(connID string) (rooms.Actor, error) {
	if !m.sessions.IsAdmin(connID) {
		return rooms.Actor{}, room.ErrNotAdmin
	}
	return rooms.Actor{ID: connID, Admin: true}, nil
}

// DeleteRoom deletes any room.
func (m *Mirror) DeleteRoom(connID, roomName string) (bool, error) {
	actor, err := m.actor(connID)
	if err != nil {
		return false, err
	}
	return m.registry.DeleteRoom(roomName, actor)
}

// Kick removes any non-owner participant from any room.
func (m *Mirror) Kick(connID, roomName, target string) (room.Participant, bool, error) {
	actor, err := m.actor(connID)
	if err != nil {
		return room.Participant{}, false, err
	}
	return m.registry.Kick(roomName, target, actor)
}

// DeleteMessage deletes any message.
func (m *Mirror) DeleteMessage(connID, roomName string, messageID uint64) (bool, error) {
	actor, err := m.actor(connID)
	if err != nil {
		return false, err
	}
	return m.registry.DeleteMessage(roomName, messageID, actor)
}

// AdminSnapshot returns every room with decrypted passwords and the
// aggregate statistics.
func (m *Mirror) AdminSnapshot() broadcast.AdminSnapshot {
	views, stats := m.registry.Overview()
	return broadcast.AdminSnapshot{Rooms: views, Stats: stats}
}

// Stats returns the aggregate statistics only.
func (m *Mirror) Stats() room.Stats {
	_, stats := m.registry.Overview()
	return stats
}
