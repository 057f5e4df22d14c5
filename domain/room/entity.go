// Package room holds the shared room domain types and error taxonomy.
package room

import "time"

// DefaultPage is the page every room starts with and can never lose.
const DefaultPage = "main"

// Metadata is captured when a participant joins and never updated afterwards.
type Metadata struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Device    string `json:"device,omitempty"`
	Browser   string `json:"browser,omitempty"`
}

// Participant is a member of a room, keyed by connection id.
type Participant struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
	Metadata Metadata  `json:"metadata"`
}

// Member is the roster entry ordinary members see.
type Member struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsOwner bool   `json:"is_owner"`
}

// Message is a chat log entry. SenderName is a snapshot taken at send time.
type Message struct {
	ID         uint64    `json:"id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Text       string    `json:"text"`
	SentAt     time.Time `json:"sent_at"`
}

// Page is one named text buffer.
type Page struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// View is the room snapshot delivered to members.
type View struct {
	Name        string   `json:"name"`
	Owner       string   `json:"owner"`
	Members     []Member `json:"members"`
	Pages       []Page   `json:"pages"`
	CurrentPage string   `json:"current_page"`
	BannedNames []string `json:"banned_names"`
}

// AdminView is the privileged snapshot of a room, including the decrypted
// password and participant metadata.
type AdminView struct {
	Name         string        `json:"room_name"`
	Password     string        `json:"password"`
	Owner        string        `json:"owner"`
	Participants []Participant `json:"users"`
	Pages        []Page        `json:"pages"`
	CurrentPage  string        `json:"current_page"`
	Chat         []Message     `json:"chat_messages"`
	BannedNames  []string      `json:"banned_names"`
	CreatedAt    time.Time     `json:"created_at"`
	LastActivity time.Time     `json:"last_activity"`
}

// Summary is the public listing entry for a room.
type Summary struct {
	Name      string    `json:"name"`
	Members   int       `json:"members"`
	CreatedAt time.Time `json:"created_at"`
}

// RoomCount pairs a room name with its member count.
type RoomCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Stats are the aggregate figures shown on the admin dashboard.
type Stats struct {
	ActiveRooms          int        `json:"active_rooms_count"`
	ActiveUsers          int        `json:"active_users_count"`
	MostPopularRoom      *RoomCount `json:"most_popular_room,omitempty"`
	AverageSessionMillis int64      `json:"average_session_duration"`
}
