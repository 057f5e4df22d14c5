// Package events defines the moderation and lifecycle events published on
// the application event bus.
package events

import (
	"fmt"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Action names a moderation or lifecycle fact.
type Action string

const (
	ActionRoomCreated     Action = "room_created"
	ActionRoomDeleted     Action = "room_deleted"
	ActionMemberKicked    Action = "member_kicked"
	ActionMemberBanned    Action = "member_banned"
	ActionMemberUnbanned  Action = "member_unbanned"
	ActionPasswordChanged Action = "password_changed"
	ActionAdminLoggedIn   Action = "admin_logged_in"
	ActionGuardTripped    Action = "guard_tripped"
)

// ModerationEvent is the payload shared by every audit event.
type ModerationEvent struct {
	Action     Action    `json:"action"`
	Room       string    `json:"room,omitempty"`
	ActorID    string    `json:"actor_id,omitempty"`
	TargetID   string    `json:"target_id,omitempty"`
	TargetName string    `json:"target_name,omitempty"`
	ByAdmin    bool      `json:"by_admin,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Event definitions for the engine.
var (
	RoomCreatedV1 = helper.EventDefinition[ModerationEvent](
		"engine",
		"RoomCreated",
		"v1",
	)

	RoomDeletedV1 = helper.EventDefinition[ModerationEvent](
		"engine",
		"RoomDeleted",
		"v1",
	)

	MemberKickedV1 = helper.EventDefinition[ModerationEvent](
		"engine",
		"MemberKicked",
		"v1",
	)

	MemberBannedV1 = helper.EventDefinition[ModerationEvent](
		"engine",
		"MemberBanned",
		"v1",
	)

	MemberUnbannedV1 = helper.EventDefinition[ModerationEvent](
		"engine",
		"MemberUnbanned",
		"v1",
	)

	PasswordChangedV1 = helper.EventDefinition[ModerationEvent](
		"engine",
		"PasswordChanged",
		"v1",
	)

	AdminLoggedInV1 = helper.EventDefinition[ModerationEvent](
		"engine",
		"AdminLoggedIn",
		"v1",
	)

	GuardTrippedV1 = helper.EventDefinition[ModerationEvent](
		"engine",
		"GuardTripped",
		"v1",
	)
)

// All returns every audit event definition in its base form.
func All() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		RoomCreatedV1.ToBase(),
		RoomDeletedV1.ToBase(),
		MemberKickedV1.ToBase(),
		MemberBannedV1.ToBase(),
		MemberUnbannedV1.ToBase(),
		PasswordChangedV1.ToBase(),
		AdminLoggedInV1.ToBase(),
		GuardTrippedV1.ToBase(),
	}
}

// Publish sends ev on bus using the definition that matches its action.
func Publish(bus mono.EventBus, ev ModerationEvent) error {
	switch ev.Action {
	case ActionRoomCreated:
		return RoomCreatedV1.Publish(bus, ev, nil)
	case ActionRoomDeleted:
		return RoomDeletedV1.Publish(bus, ev, nil)
	case ActionMemberKicked:
		return MemberKickedV1.Publish(bus, ev, nil)
	case ActionMemberBanned:
		return MemberBannedV1.Publish(bus, ev, nil)
	case ActionMemberUnbanned:
		return MemberUnbannedV1.Publish(bus, ev, nil)
	case ActionPasswordChanged:
		return PasswordChangedV1.Publish(bus, ev, nil)
	case ActionAdminLoggedIn:
		return AdminLoggedInV1.Publish(bus, ev, nil)
	case ActionGuardTripped:
		return GuardTrippedV1.Publish(bus, ev, nil)
	}
	return fmt.Errorf("unknown audit action: %q", ev.Action)
}
