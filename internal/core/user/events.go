package user

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// EventType tags a recorded domain event.
type EventType string

const (
	EventUserCreated         EventType = "UserCreated"
	EventUserNameChanged     EventType = "UserNameChanged"
	EventUserEmailChanged    EventType = "UserEmailChanged"
	EventUserPasswordChanged EventType = "UserPasswordChanged"
)

// Event is an immutable record of a state change of a user.
type Event struct {
	// ID is the event id.
	ID uuid.UUID

	// Type is the event type tag.
	Type EventType

	// Payload holds the named fields of the event. user_id is nil for users not yet persisted.
	Payload map[string]any

	// OccurredAt is the time at which the change was applied.
	OccurredAt time.Time
}

func newEvent(t EventType, payload map[string]any, at time.Time) Event {
	return Event{ID: uuid.New(), Type: t, Payload: payload, OccurredAt: at}
}

func (e Event) clone() Event {
	e.Payload = maps.Clone(e.Payload)
	return e
}
