package rooms

import (
	"sort"
	"sync"
	"time"

	"github.com/example/shared-rooms/domain/room"
)

// state is one room. Every field is guarded by mu.
type state struct {
	mu sync.Mutex

	name     string
	password string // encrypted
	owner    string
	members  []room.Participant
	banned   map[string]struct{}

	pages       map[string]string
	pageOrder   []string
	currentPage string

	chat      []room.Message
	lastMsgID uint64

	createdAt    time.Time
	lastActivity time.Time

	// deleted is set before the room leaves the registry map so that callers
	// which looked the room up concurrently see it as gone.
	deleted bool
}

func newState(name, encryptedPassword string, now time.Time) *state {
	return &state{
		name:         name,
		password:     encryptedPassword,
		banned:       make(map[string]struct{}),
		pages:        map[string]string{room.DefaultPage: ""},
		pageOrder:    []string{room.DefaultPage},
		currentPage:  room.DefaultPage,
		createdAt:    now,
		lastActivity: now,
	}
}

func (s *state) memberIndex(connID string) int {
	for i, p := range s.members {
		if p.ID == connID {
			return i
		}
	}
	return -1
}

func (s *state) isMember(connID string) bool {
	return s.memberIndex(connID) >= 0
}

func (s *state) nameTaken(name string) bool {
	for _, p := range s.members {
		if p.Name == name {
			return true
		}
	}
	return false
}

func (s *state) removeMember(connID string) (room.Participant, bool) {
	i := s.memberIndex(connID)
	if i < 0 {
		return room.Participant{}, false
	}
	p := s.members[i]
	s.members = append(s.members[:i], s.members[i+1:]...)
	return p, true
}

func (s *state) memberIDs() []string {
	ids := make([]string, len(s.members))
	for i, p := range s.members {
		ids[i] = p.ID
	}
	return ids
}

func (s *state) appendMessage(msg room.Message, limit int) {
	s.chat = append(s.chat, msg)
	if over := len(s.chat) - limit; over > 0 {
		// copy into a fresh slice so the evicted prefix can be collected
		s.chat = append([]room.Message(nil), s.chat[over:]...)
	}
}

func (s *state) messageIndex(id uint64) int {
	for i, m := range s.chat {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (s *state) bannedNames() []string {
	names := make([]string, 0, len(s.banned))
	for n := range s.banned {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *state) pageList() []room.Page {
	pages := make([]room.Page, len(s.pageOrder))
	for i, key := range s.pageOrder {
		pages[i] = room.Page{Key: key, Text: s.pages[key]}
	}
	return pages
}

func (s *state) chatCopy() []room.Message {
	return append([]room.Message(nil), s.chat...)
}

func (s *state) view() room.View {
	members := make([]room.Member, len(s.members))
	for i, p := range s.members {
		members[i] = room.Member{ID: p.ID, Name: p.Name, IsOwner: p.ID == s.owner}
	}
	return room.View{
		Name:        s.name,
		Owner:       s.owner,
		Members:     members,
		Pages:       s.pageList(),
		CurrentPage: s.currentPage,
		BannedNames: s.bannedNames(),
	}
}

func (s *state) adminView(plainPassword string) room.AdminView {
	return room.AdminView{
		Name:         s.name,
		Password:     plainPassword,
		Owner:        s.owner,
		Participants: append([]room.Participant(nil), s.members...),
		Pages:        s.pageList(),
		CurrentPage:  s.currentPage,
		Chat:         s.chatCopy(),
		BannedNames:  s.bannedNames(),
		CreatedAt:    s.createdAt,
		LastActivity: s.lastActivity,
	}
}
