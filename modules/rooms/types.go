package rooms

import "github.com/example/shared-rooms/domain/room"

// Service names registered by the rooms module.
const (
	ServiceListRooms = "list-rooms"
)

// ListRoomsRequest is the request for the list-rooms service.
type ListRoomsRequest struct{}

// ListRoomsResponse is the response for the list-rooms service.
type ListRoomsResponse struct {
	Rooms []room.Summary `json:"rooms"`
	Total int            `json:"total"`
}
