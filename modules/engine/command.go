package engine

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind identifies an inbound command.
type Kind string

const (
	KindJoin               Kind = "join"
	KindEdit               Kind = "edit"
	KindPageSelect         Kind = "page.select"
	KindChatSend           Kind = "chat.send"
	KindChatDelete         Kind = "chat.delete"
	KindChangePassword     Kind = "room.changePassword"
	KindKick               Kind = "room.kick"
	KindBan                Kind = "room.ban"
	KindUnban              Kind = "room.unban"
	KindDeleteRoom         Kind = "room.delete"
	KindLeave              Kind = "room.leave"
	KindAdminLogin         Kind = "admin.login"
	KindAdminDeleteRoom    Kind = "admin.deleteRoom"
	KindAdminKick          Kind = "admin.kick"
	KindAdminDeleteMessage Kind = "admin.deleteMessage"
)

// Kinds lists every command kind.
var Kinds = []Kind{
	KindJoin, KindEdit, KindPageSelect, KindChatSend, KindChatDelete,
	KindChangePassword, KindKick, KindBan, KindUnban, KindDeleteRoom, KindLeave,
	KindAdminLogin, KindAdminDeleteRoom, KindAdminKick, KindAdminDeleteMessage,
}

// ErrUnknownCommand is returned by DecodeCommand for an unrecognised type.
var ErrUnknownCommand = errors.New("unknown command")

// Command is the closed set of inbound commands.
type Command interface {
	Kind() Kind
	RoomName() string
	setRoom(name string)
}

type roomRef struct {
	Room string `json:"-"`
}

func (r *roomRef) RoomName() string    { return r.Room }
func (r *roomRef) setRoom(name string) { r.Room = name }

// Join enters a room, creating it on first use.
type Join struct {
	roomRef
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Edit replaces a page's text. An empty PageKey targets the current page.
type Edit struct {
	roomRef
	PageKey string `json:"page_key"`
	Text    string `json:"text"`
}

// PageSelect moves the current-page pointer.
type PageSelect struct {
	roomRef
	PageKey string `json:"page_key"`
}

// ChatSend posts a chat message.
type ChatSend struct {
	roomRef
	Body string `json:"body"`
}

// ChatDelete removes a chat message.
type ChatDelete struct {
	roomRef
	MessageID uint64 `json:"message_id"`
}

// ChangePassword sets a new room password.
type ChangePassword struct {
	roomRef
	Password string `json:"password"`
}

// Kick removes a member.
type Kick struct {
	roomRef
	Target string `json:"target"`
}

// Ban removes a member and bars their display name.
type Ban struct {
	roomRef
	Target string `json:"target"`
}

// Unban lifts a display-name ban.
type Unban struct {
	roomRef
	Name string `json:"name"`
}

// DeleteRoom removes the room.
type DeleteRoom struct {
	roomRef
}

// Leave exits the room.
type Leave struct {
	roomRef
}

// AdminLogin requests the admin capability.
type AdminLogin struct {
	roomRef
	Password string `json:"password"`
}

// AdminDeleteRoom deletes any room.
type AdminDeleteRoom struct {
	roomRef
}

// AdminKick removes a member of any room.
type AdminKick struct {
	roomRef
	Target string `json:"target"`
}

// AdminDeleteMessage removes any message.
type AdminDeleteMessage struct {
	roomRef
	MessageID uint64 `json:"message_id"`
}

func (*Join) Kind() Kind               { return KindJoin }
func (*Edit) Kind() Kind               { return KindEdit }
func (*PageSelect) Kind() Kind         { return KindPageSelect }
func (*ChatSend) Kind() Kind           { return KindChatSend }
func (*ChatDelete) Kind() Kind         { return KindChatDelete }
func (*ChangePassword) Kind() Kind     { return KindChangePassword }
func (*Kick) Kind() Kind               { return KindKick }
func (*Ban) Kind() Kind                { return KindBan }
func (*Unban) Kind() Kind              { return KindUnban }
func (*DeleteRoom) Kind() Kind         { return KindDeleteRoom }
func (*Leave) Kind() Kind              { return KindLeave }
func (*AdminLogin) Kind() Kind         { return KindAdminLogin }
func (*AdminDeleteRoom) Kind() Kind    { return KindAdminDeleteRoom }
func (*AdminKick) Kind() Kind          { return KindAdminKick }
func (*AdminDeleteMessage) Kind() Kind { return KindAdminDeleteMessage }

var constructors = map[Kind]func() Command{
	KindJoin:               func() Command { return &Join{} },
	KindEdit:               func() Command { return &Edit{} },
	KindPageSelect:         func() Command { return &PageSelect{} },
	KindChatSend:           func() Command { return &ChatSend{} },
	KindChatDelete:         func() Command { return &ChatDelete{} },
	KindChangePassword:     func() Command { return &ChangePassword{} },
	KindKick:               func() Command { return &Kick{} },
	KindBan:                func() Command { return &Ban{} },
	KindUnban:              func() Command { return &Unban{} },
	KindDeleteRoom:         func() Command { return &DeleteRoom{} },
	KindLeave:              func() Command { return &Leave{} },
	KindAdminLogin:         func() Command { return &AdminLogin{} },
	KindAdminDeleteRoom:    func() Command { return &AdminDeleteRoom{} },
	KindAdminKick:          func() Command { return &AdminKick{} },
	KindAdminDeleteMessage: func() Command { return &AdminDeleteMessage{} },
}

// Frame is the wire envelope for inbound commands.
type Frame struct {
	Type    string          `json:"type"`
	Room    string          `json:"room,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodeCommand parses a JSON frame into its typed command.
func DecodeCommand(data []byte) (Command, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid frame: %w", err)
	}
	newCmd, ok := constructors[Kind(f.Type)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, f.Type)
	}
	cmd := newCmd()
	if len(f.Payload) > 0 && string(f.Payload) != "null" {
		if err := json.Unmarshal(f.Payload, cmd); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", f.Type, err)
		}
	}
	cmd.setRoom(f.Room)
	return cmd, nil
}
