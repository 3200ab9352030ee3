package ports

import (
	"context"

	"github.com/rbroggi/usermgmt/internal/core/user"
)

// Sender is the port for publishing/informing/sending outbound user domain events.
type Sender interface {
	// Send sends the events, oldest first.
	Send(ctx context.Context, events []user.Event) error
}
