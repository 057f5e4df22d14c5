package rooms

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/shared-rooms/domain/room"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// RoomsPort is the read-side view of the rooms module used by other modules.
type RoomsPort interface {
	ListRooms(ctx context.Context) ([]room.Summary, error)
}

// RoomsAdapter implements RoomsPort using the service container.
type RoomsAdapter struct {
	container mono.ServiceContainer
}

// NewRoomsAdapter creates a new RoomsAdapter.
func NewRoomsAdapter(container mono.ServiceContainer) RoomsPort {
	if container == nil {
		panic("rooms: ServiceContainer is nil")
	}
	return &RoomsAdapter{container: container}
}

// ListRooms returns the public summary of every room.
func (a *RoomsAdapter) ListRooms(ctx context.Context) ([]room.Summary, error) {
	req := ListRoomsRequest{}
	var resp ListRoomsResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceListRooms,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return resp.Rooms, nil
}
