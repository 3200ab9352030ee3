package ports

import (
	"context"

	"github.com/rbroggi/usermgmt/internal/core/user"
)

// EventHandler is the port for handling inbound user domain events.
type EventHandler interface {
	// Handle processes one event. A returned error asks for redelivery.
	Handle(ctx context.Context, event user.Event) error
}
