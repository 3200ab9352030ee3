package usecase

import (
	"context"
	"fmt"

	"github.com/rbroggi/usermgmt/internal/core/ports"
	"github.com/rbroggi/usermgmt/internal/core/user"
)

// NewInformer builds a new informer.
func NewInformer(sender ports.Sender) *Informer {
	return &Informer{sender: sender}
}

// Informer forwards the domain events pulled from a user aggregate to the outside world.
// It publicly 'informs' about user changes once they are persisted.
type Informer struct {
	sender ports.Sender
}

// Handle sends events, oldest first. Nothing is sent for an empty slice.
func (i *Informer) Handle(ctx context.Context, events []user.Event) error {
	if len(events) == 0 {
		return nil
	}

	if err := i.sender.Send(ctx, events); err != nil {
		return fmt.Errorf("error sending user event ID [%s]: %w", events[0].ID, err)
	}

	return nil
}
