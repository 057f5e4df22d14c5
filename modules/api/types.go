package api

import "github.com/example/shared-rooms/domain/room"

// RoomListResponse is the API response for listing rooms.
type RoomListResponse struct {
	Rooms []room.Summary `json:"rooms"`
	Total int            `json:"total"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}
