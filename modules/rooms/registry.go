// Package rooms owns the authoritative in-memory room state.
package rooms

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/shared-rooms/domain/room"
	"github.com/example/shared-rooms/modules/broadcast"
)

// Publisher receives the change produced by every mutation. Publish is
// called with the room lock held and must not block.
type Publisher interface {
	Publish(change broadcast.Change)
}

// Cipher keeps room passwords encrypted at rest.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
	Matches(ciphertext, supplied string) bool
}

// Guard is the brute-force guard consulted on every join.
type Guard interface {
	Check() error
	RecordFailure() bool
}

// Actor is the identity behind a moderation request. Admin substitutes for
// ownership and is only ever set by the admin mirror.
type Actor struct {
	ID    string
	Admin bool
}

// JoinRequest is the input to Join.
type JoinRequest struct {
	Room     string
	Password string
	Name     string
	ConnID   string
	Metadata room.Metadata
}

// JoinResult describes a successful join.
type JoinResult struct {
	View     room.View
	Created  bool
	Rejoined bool
}

// Registry maps room names to room state. The map is guarded by mu and each
// room by its own lock; no method holds more than one room lock at a time.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*state

	cfg    Config
	cipher Cipher
	guard  Guard
	sink   Publisher
	now    func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config, cipher Cipher, guard Guard, sink Publisher) *Registry {
	return &Registry{
		rooms:  make(map[string]*state),
		cfg:    cfg.normalized(),
		cipher: cipher,
		guard:  guard,
		sink:   sink,
		now:    time.Now,
	}
}

// WithClock replaces the time source.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// Config returns the effective configuration.
func (r *Registry) Config() Config {
	return r.cfg
}

func (r *Registry) lookup(name string) *state {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[name]
}

// lock returns the named room with its lock held, or nil if it does not exist.
func (r *Registry) lock(name string) *state {
	s := r.lookup(name)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	if s.deleted {
		s.mu.Unlock()
		return nil
	}
	return s
}

func (r *Registry) snapshotList() []*state {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*state, 0, len(r.rooms))
	for _, s := range r.rooms {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].name < list[j].name })
	return list
}

func (r *Registry) forget(s *state) {
	r.mu.Lock()
	if r.rooms[s.name] == s {
		delete(r.rooms, s.name)
	}
	r.mu.Unlock()
}

func validateJoin(req JoinRequest) error {
	switch {
	case strings.TrimSpace(req.Room) == "":
		return &room.ValidationError{Reason: room.EmptyField, Field: "room"}
	case strings.TrimSpace(req.Name) == "":
		return &room.ValidationError{Reason: room.EmptyField, Field: "name"}
	case req.Password == "":
		return &room.ValidationError{Reason: room.EmptyField, Field: "password"}
	case len(req.Room) > MaxRoomNameLength:
		return &room.ValidationError{Reason: room.TooLong, Field: "room"}
	case len(req.Name) > MaxDisplayNameLength:
		return &room.ValidationError{Reason: room.TooLong, Field: "name"}
	case len(req.Password) > MaxPasswordLength:
		return &room.ValidationError{Reason: room.TooLong, Field: "password"}
	}
	return nil
}

// Join creates the room on first use, or admits the requester after the
// ban and password checks. The guard is consulted before anything else and
// a wrong password counts as a failed attempt.
func (r *Registry) Join(req JoinRequest) (JoinResult, error) {
	if err := r.guard.Check(); err != nil {
		return JoinResult{}, err
	}
	if err := validateJoin(req); err != nil {
		return JoinResult{}, err
	}

	for {
		if s := r.lookup(req.Room); s != nil {
			res, retry, err := r.joinExisting(s, req)
			if retry {
				continue
			}
			if errors.Is(err, room.ErrWrongPassword) {
				r.guard.RecordFailure()
			}
			return res, err
		}

		res, retry, err := r.create(req)
		if retry {
			continue
		}
		return res, err
	}
}

func (r *Registry) create(req JoinRequest) (JoinResult, bool, error) {
	encrypted, err := r.cipher.Encrypt(req.Password)
	if err != nil {
		return JoinResult{}, false, fmt.Errorf("failed to encrypt room password: %w", err)
	}

	now := r.now()
	s := newState(req.Room, encrypted, now)
	s.owner = req.ConnID
	s.members = []room.Participant{{
		ID:       req.ConnID,
		Name:     req.Name,
		JoinedAt: now,
		Metadata: req.Metadata,
	}}

	s.mu.Lock()
	defer s.mu.Unlock()

	r.mu.Lock()
	if _, exists := r.rooms[req.Room]; exists {
		r.mu.Unlock()
		return JoinResult{}, true, nil
	}
	r.rooms[req.Room] = s
	r.mu.Unlock()

	// Run the same comparison a join to an existing room would.
	_ = r.cipher.Matches(s.password, req.Password)

	view := s.view()
	r.sink.Publish(joinChange(s, req.ConnID, view, true))
	return JoinResult{View: view, Created: true}, false, nil
}

func (r *Registry) joinExisting(s *state, req JoinRequest) (JoinResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deleted {
		return JoinResult{}, true, nil
	}
	if _, banned := s.banned[req.Name]; banned {
		return JoinResult{}, false, room.ErrBanned
	}
	if !r.cipher.Matches(s.password, req.Password) {
		return JoinResult{}, false, room.ErrWrongPassword
	}

	now := r.now()
	rejoined := s.isMember(req.ConnID)
	if !rejoined {
		if s.nameTaken(req.Name) {
			return JoinResult{}, false, &room.ValidationError{Reason: room.DuplicateName, Field: "name"}
		}
		s.members = append(s.members, room.Participant{
			ID:       req.ConnID,
			Name:     req.Name,
			JoinedAt: now,
			Metadata: req.Metadata,
		})
	}
	s.lastActivity = now

	view := s.view()
	if rejoined {
		r.sink.Publish(broadcast.Change{
			Room: s.name,
			Direct: []broadcast.Delivery{
				{To: req.ConnID, Event: broadcast.Event{Type: broadcast.EventJoinResult, Room: s.name, Payload: broadcast.JoinResultPayload{Success: true, Owner: s.owner == req.ConnID}}},
				{To: req.ConnID, Event: broadcast.Event{Type: broadcast.EventRoomSnapshot, Room: s.name, Payload: view}},
				{To: req.ConnID, Event: broadcast.Event{Type: broadcast.EventChatLoaded, Room: s.name, Payload: s.chatCopy()}},
			},
		})
	} else {
		r.sink.Publish(joinChange(s, req.ConnID, view, false))
	}
	return JoinResult{View: view, Rejoined: rejoined}, false, nil
}

func joinChange(s *state, connID string, view room.View, owner bool) broadcast.Change {
	return broadcast.Change{
		Room: s.name,
		Direct: []broadcast.Delivery{
			{To: connID, Event: broadcast.Event{Type: broadcast.EventJoinResult, Room: s.name, Payload: broadcast.JoinResultPayload{Success: true, Owner: owner}}},
			{To: connID, Event: broadcast.Event{Type: broadcast.EventChatLoaded, Room: s.name, Payload: s.chatCopy()}},
		},
		Recipients:   s.memberIDs(),
		Events:       []broadcast.Event{{Type: broadcast.EventRoomSnapshot, Room: s.name, Payload: view}},
		RefreshAdmin: true,
	}
}

// EditText replaces a page's text. An empty page key targets the current
// page and an unknown key creates the page. Any member may edit; the last
// write wins.
func (r *Registry) EditText(roomName, pageKey, text, requester string) error {
	clean := Sanitize(text)
	if len(clean) > MaxTextLength {
		return &room.ValidationError{Reason: room.TooLong, Field: "text"}
	}
	if len(pageKey) > MaxPageKeyLength {
		return &room.ValidationError{Reason: room.TooLong, Field: "page"}
	}

	s := r.lock(roomName)
	if s == nil {
		return &room.NotFoundError{Kind: room.RoomNotFound, Key: roomName}
	}
	defer s.mu.Unlock()

	if !s.isMember(requester) {
		return room.ErrNotMember
	}
	if pageKey == "" {
		pageKey = s.currentPage
	}
	_, exists := s.pages[pageKey]
	if !exists && len(s.pages) >= r.cfg.MaxPages {
		return &room.ValidationError{Reason: room.TooMany, Field: "page"}
	}

	s.pages[pageKey] = clean
	s.lastActivity = r.now()

	var events []broadcast.Event
	if !exists {
		s.pageOrder = append(s.pageOrder, pageKey)
		events = append(events, broadcast.Event{Type: broadcast.EventRoomSnapshot, Room: s.name, Payload: s.view()})
	}
	events = append(events, broadcast.Event{
		Type:    broadcast.EventTextUpdated,
		Room:    s.name,
		Payload: broadcast.TextUpdatedPayload{PageKey: pageKey, Text: clean},
	})

	r.sink.Publish(broadcast.Change{
		Room:         s.name,
		Recipients:   s.memberIDs(),
		Events:       events,
		RefreshAdmin: true,
	})
	return nil
}

// SelectPage moves the room's current-page pointer.
func (r *Registry) SelectPage(roomName, pageKey, requester string) error {
	s := r.lock(roomName)
	if s == nil {
		return &room.NotFoundError{Kind: room.RoomNotFound, Key: roomName}
	}
	defer s.mu.Unlock()

	if !s.isMember(requester) {
		return room.ErrNotMember
	}
	if _, ok := s.pages[pageKey]; !ok {
		return &room.NotFoundError{Kind: room.PageNotFound, Key: pageKey}
	}

	s.currentPage = pageKey
	s.lastActivity = r.now()

	r.sink.Publish(broadcast.Change{
		Room:       s.name,
		Recipients: s.memberIDs(),
		Events: []broadcast.Event{{
			Type:    broadcast.EventPageSelected,
			Room:    s.name,
			Payload: broadcast.PageSelectedPayload{PageKey: pageKey},
		}},
		RefreshAdmin: true,
	})
	return nil
}

// PostMessage appends a sanitized chat message, evicting the oldest once
// the log exceeds the configured cap.
func (r *Registry) PostMessage(roomName, sender, body string) (room.Message, error) {
	clean := strings.TrimSpace(Sanitize(body))
	if clean == "" {
		return room.Message{}, &room.ValidationError{Reason: room.EmptyField, Field: "message"}
	}
	if len(clean) > MaxMessageLength {
		return room.Message{}, &room.ValidationError{Reason: room.TooLong, Field: "message"}
	}

	s := r.lock(roomName)
	if s == nil {
		return room.Message{}, &room.NotFoundError{Kind: room.RoomNotFound, Key: roomName}
	}
	defer s.mu.Unlock()

	i := s.memberIndex(sender)
	if i < 0 {
		return room.Message{}, room.ErrNotMember
	}

	now := r.now()
	s.lastMsgID++
	msg := room.Message{
		ID:         s.lastMsgID,
		SenderID:   sender,
		SenderName: s.members[i].Name,
		Text:       clean,
		SentAt:     now,
	}
	s.appendMessage(msg, r.cfg.ChatCap)
	s.lastActivity = now

	r.sink.Publish(broadcast.Change{
		Room:         s.name,
		Recipients:   s.memberIDs(),
		Events:       []broadcast.Event{{Type: broadcast.EventChatNew, Room: s.name, Payload: msg}},
		RefreshAdmin: true,
	})
	return msg, nil
}

// DeleteMessage removes a message when the actor is the owner, the sender
// or an admin. A missing room or message is reported as false, not an error.
func (r *Registry) DeleteMessage(roomName string, messageID uint64, actor Actor) (bool, error) {
	s := r.lock(roomName)
	if s == nil {
		return false, nil
	}
	defer s.mu.Unlock()

	i := s.messageIndex(messageID)
	if i < 0 {
		return false, nil
	}
	if !actor.Admin && actor.ID != s.owner && actor.ID != s.chat[i].SenderID {
		return false, room.ErrNotOwner
	}

	s.chat = append(s.chat[:i], s.chat[i+1:]...)
	s.lastActivity = r.now()

	r.sink.Publish(broadcast.Change{
		Room:       s.name,
		Recipients: s.memberIDs(),
		Events: []broadcast.Event{{
			Type:    broadcast.EventChatDeleted,
			Room:    s.name,
			Payload: broadcast.ChatDeletedPayload{MessageID: messageID},
		}},
		RefreshAdmin: true,
	})
	return true, nil
}

// Kick removes target from the room. Only the owner or an admin may kick,
// and the owner cannot be kicked. It returns the removed participant.
func (r *Registry) Kick(roomName, target string, actor Actor) (room.Participant, bool, error) {
	return r.remove(roomName, target, actor, false)
}

// Ban is Kick plus recording the target's display name in the ban list.
func (r *Registry) Ban(roomName, target string, actor Actor) (room.Participant, bool, error) {
	return r.remove(roomName, target, actor, true)
}

func (r *Registry) remove(roomName, target string, actor Actor, ban bool) (room.Participant, bool, error) {
	s := r.lock(roomName)
	if s == nil {
		return room.Participant{}, false, nil
	}
	defer s.mu.Unlock()

	if !actor.Admin && actor.ID != s.owner {
		return room.Participant{}, false, room.ErrNotOwner
	}
	if target == s.owner {
		return room.Participant{}, false, &room.ValidationError{Reason: room.InvalidTarget, Field: "target"}
	}

	p, ok := s.removeMember(target)
	if !ok {
		return room.Participant{}, false, nil
	}
	reason := "kicked"
	if ban {
		s.banned[p.Name] = struct{}{}
		reason = "banned"
	}
	s.lastActivity = r.now()

	r.sink.Publish(broadcast.Change{
		Room: s.name,
		Direct: []broadcast.Delivery{{
			To:    target,
			Event: broadcast.Event{Type: broadcast.EventForcedRemoval, Room: s.name, Payload: broadcast.ReasonPayload{Reason: reason}},
		}},
		Recipients:   s.memberIDs(),
		Events:       []broadcast.Event{{Type: broadcast.EventRoomSnapshot, Room: s.name, Payload: s.view()}},
		RefreshAdmin: true,
	})
	return p, true, nil
}

// Unban removes a display name from the ban list. Owner only.
func (r *Registry) Unban(roomName, displayName, requester string) (bool, error) {
	s := r.lock(roomName)
	if s == nil {
		return false, nil
	}
	defer s.mu.Unlock()

	if requester != s.owner {
		return false, room.ErrNotOwner
	}
	if _, ok := s.banned[displayName]; !ok {
		return false, nil
	}
	delete(s.banned, displayName)
	s.lastActivity = r.now()

	r.sink.Publish(broadcast.Change{
		Room:         s.name,
		Recipients:   s.memberIDs(),
		Events:       []broadcast.Event{{Type: broadcast.EventRoomSnapshot, Room: s.name, Payload: s.view()}},
		RefreshAdmin: true,
	})
	return true, nil
}

// ChangePassword stores a new encrypted password. Owner only.
func (r *Registry) ChangePassword(roomName, newPassword, requester string) (bool, error) {
	if newPassword == "" {
		return false, &room.ValidationError{Reason: room.EmptyField, Field: "password"}
	}
	if len(newPassword) > MaxPasswordLength {
		return false, &room.ValidationError{Reason: room.TooLong, Field: "password"}
	}

	s := r.lock(roomName)
	if s == nil {
		return false, nil
	}
	defer s.mu.Unlock()

	if requester != s.owner {
		return false, room.ErrNotOwner
	}
	encrypted, err := r.cipher.Encrypt(newPassword)
	if err != nil {
		return false, fmt.Errorf("failed to encrypt room password: %w", err)
	}
	s.password = encrypted
	s.lastActivity = r.now()

	r.sink.Publish(broadcast.Change{Room: s.name, RefreshAdmin: true})
	return true, nil
}

// DeleteRoom removes the room and tells every member. The owner or an admin
// may delete.
func (r *Registry) DeleteRoom(roomName string, actor Actor) (bool, error) {
	s := r.lock(roomName)
	if s == nil {
		return false, nil
	}

	if !actor.Admin && actor.ID != s.owner {
		s.mu.Unlock()
		return false, room.ErrNotOwner
	}

	reason := "deleted by owner"
	if actor.Admin {
		reason = "deleted by admin"
	}
	r.drop(s, reason)
	s.mu.Unlock()

	r.forget(s)
	return true, nil
}

// drop marks s deleted and publishes roomDeleted to its members. Caller
// holds s.mu and removes s from the map afterwards.
func (r *Registry) drop(s *state, reason string) {
	s.deleted = true
	recipients := s.memberIDs()
	s.members = nil

	r.sink.Publish(broadcast.Change{
		Room:       s.name,
		Recipients: recipients,
		Events: []broadcast.Event{{
			Type:    broadcast.EventRoomDeleted,
			Room:    s.name,
			Payload: broadcast.ReasonPayload{Reason: reason},
		}},
		RefreshAdmin: true,
	})
}

// Leave removes connID from the room. The room stays even when it becomes
// empty and ownership is never reassigned.
func (r *Registry) Leave(roomName, connID string) bool {
	s := r.lock(roomName)
	if s == nil {
		return false
	}
	defer s.mu.Unlock()
	return r.leaveLocked(s, connID)
}

func (r *Registry) leaveLocked(s *state, connID string) bool {
	if _, ok := s.removeMember(connID); !ok {
		return false
	}
	s.lastActivity = r.now()

	r.sink.Publish(broadcast.Change{
		Room:         s.name,
		Recipients:   s.memberIDs(),
		Events:       []broadcast.Event{{Type: broadcast.EventRoomSnapshot, Room: s.name, Payload: s.view()}},
		RefreshAdmin: true,
	})
	return true
}

// LeaveAll removes connID from every room it belongs to, one room lock at a
// time, and returns the names of the rooms it left.
func (r *Registry) LeaveAll(connID string) []string {
	var left []string
	for _, s := range r.snapshotList() {
		s.mu.Lock()
		if !s.deleted && r.leaveLocked(s, connID) {
			left = append(left, s.name)
		}
		s.mu.Unlock()
	}
	return left
}

// Sweep deletes rooms that have no members and no activity for longer than
// the inactivity timeout. It returns the names of the deleted rooms.
func (r *Registry) Sweep(now time.Time) []string {
	var deleted []string
	for _, s := range r.snapshotList() {
		s.mu.Lock()
		expired := !s.deleted && len(s.members) == 0 && now.Sub(s.lastActivity) > r.cfg.InactivityTimeout
		if expired {
			r.drop(s, "inactive")
		}
		s.mu.Unlock()

		if expired {
			r.forget(s)
			deleted = append(deleted, s.name)
		}
	}
	return deleted
}

// Snapshot returns the member view of a room. The viewer must be a member.
func (r *Registry) Snapshot(roomName, viewer string) (room.View, error) {
	s := r.lock(roomName)
	if s == nil {
		return room.View{}, &room.NotFoundError{Kind: room.RoomNotFound, Key: roomName}
	}
	defer s.mu.Unlock()

	if !s.isMember(viewer) {
		return room.View{}, room.ErrNotMember
	}
	return s.view(), nil
}

// Chat returns a copy of the room's chat log. The viewer must be a member.
func (r *Registry) Chat(roomName, viewer string) ([]room.Message, error) {
	s := r.lock(roomName)
	if s == nil {
		return nil, &room.NotFoundError{Kind: room.RoomNotFound, Key: roomName}
	}
	defer s.mu.Unlock()

	if !s.isMember(viewer) {
		return nil, room.ErrNotMember
	}
	return s.chatCopy(), nil
}

// Summaries lists every room with its member count.
func (r *Registry) Summaries() []room.Summary {
	list := r.snapshotList()
	out := make([]room.Summary, 0, len(list))
	for _, s := range list {
		s.mu.Lock()
		if !s.deleted {
			out = append(out, room.Summary{Name: s.name, Members: len(s.members), CreatedAt: s.createdAt})
		}
		s.mu.Unlock()
	}
	return out
}

// Count returns the number of live rooms.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Overview builds the admin view of every room, with decrypted passwords,
// plus aggregate statistics. Rooms are visited one lock at a time.
func (r *Registry) Overview() ([]room.AdminView, room.Stats) {
	now := r.now()
	list := r.snapshotList()

	views := make([]room.AdminView, 0, len(list))
	var stats room.Stats
	var sessionTotal time.Duration
	for _, s := range list {
		s.mu.Lock()
		if s.deleted {
			s.mu.Unlock()
			continue
		}
		plain, err := r.cipher.Decrypt(s.password)
		if err != nil {
			plain = ""
		}
		v := s.adminView(plain)
		s.mu.Unlock()

		views = append(views, v)
		stats.ActiveRooms++
		stats.ActiveUsers += len(v.Participants)
		for _, p := range v.Participants {
			sessionTotal += now.Sub(p.JoinedAt)
		}
		if n := len(v.Participants); n > 0 && (stats.MostPopularRoom == nil || n > stats.MostPopularRoom.Count) {
			stats.MostPopularRoom = &room.RoomCount{Name: v.Name, Count: n}
		}
	}
	if stats.ActiveUsers > 0 {
		stats.AverageSessionMillis = (sessionTotal / time.Duration(stats.ActiveUsers)).Milliseconds()
	}
	return views, stats
}
