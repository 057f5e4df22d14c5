package broadcast

// Outbound event types.
const (
	EventJoinResult         = "joinResult"
	EventRoomSnapshot       = "roomSnapshot"
	EventTextUpdated        = "textUpdated"
	EventPageSelected       = "pageSelected"
	EventChatLoaded         = "chatLoaded"
	EventChatNew            = "chatNew"
	EventChatDeleted        = "chatDeleted"
	EventForcedRemoval      = "forcedRemoval"
	EventRoomDeleted        = "roomDeleted"
	EventAdminAuthenticated = "adminAuthenticated"
	EventAdminAuthFailed    = "adminAuthFailed"
	EventAdminSnapshot      = "adminSnapshot"
	EventCommandRejected    = "commandRejected"
)

// Event is one outbound frame.
type Event struct {
	Type    string `json:"type"`
	Room    string `json:"room,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Delivery addresses an event to a single connection.
type Delivery struct {
	To    string
	Event Event
}

// Change describes what a mutation produced and who must be told. It is
// built while the room lock is held, so Recipients and payloads reflect the
// fully applied state.
type Change struct {
	Room string

	// Direct deliveries go out first, in order.
	Direct []Delivery

	// Events are delivered, in order, to every connection in Recipients.
	Recipients []string
	Events     []Event

	// RefreshAdmin asks for one refreshed admin snapshot after delivery.
	RefreshAdmin bool
}

// Empty reports whether the change has nothing to deliver.
func (c Change) Empty() bool {
	return len(c.Direct) == 0 && (len(c.Events) == 0 || len(c.Recipients) == 0) && !c.RefreshAdmin
}

// To builds a change holding a single direct delivery.
func To(connID string, ev Event) Change {
	return Change{Room: ev.Room, Direct: []Delivery{{To: connID, Event: ev}}}
}
