package subscriber

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
	"github.com/rbroggi/usermgmt/internal/core/ports"
	"github.com/rbroggi/usermgmt/internal/core/user"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	log "github.com/sirupsen/logrus"
)

// SubscriberArgs contain the mandatory arguments to build a subscriber.
type SubscriberArgs struct {
	// Subscription is a pubsub subscription
	Subscription *pubsub.Subscription

	// EventHandler is a event handler
	EventHandler ports.EventHandler
}

// Subscriber is a pubsub async subscriber
type Subscriber struct {
	subscription *pubsub.Subscription
	eventHandler ports.EventHandler
}

// NewSubscriber creates a subscriber
func NewSubscriber(args SubscriberArgs) *Subscriber {
	return &Subscriber{
		subscription: args.Subscription,
		eventHandler: args.EventHandler,
	}
}

// Consume starts the subscriber. This is a blocking method and should be started in it's own go-routine.
// The way to terminate the method is to cancel the context in input.
func (s *Subscriber) Consume(ctx context.Context) error {
	if err := s.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		event, err := DecodeEvent(msg)
		if err != nil {
			// a message that cannot be decoded never will: drop it.
			log.WithField("msg_id", msg.ID).WithError(err).Error("error decoding message into user-event")
			msg.Ack()
			return
		}

		if err := s.eventHandler.Handle(ctx, event); err != nil {
			log.WithField("event_id", event.ID).WithError(err).Error("error in user event handler")
			msg.Nack()
		} else {
			msg.Ack()
		}
	}); err != nil {
		return fmt.Errorf("error receiving messages from subscription: %w", err)
	}
	return nil
}

// DecodeEvent rebuilds a user event from a message written by the producer.
// Numeric payload values come back as float64 except user_id, which is restored to int64.
func DecodeEvent(msg *pubsub.Message) (user.Event, error) {
	if msg == nil {
		return user.Event{}, errors.New("cannot decode nil pubsub msg")
	}
	envelope := new(structpb.Struct)
	if err := proto.Unmarshal(msg.Data, envelope); err != nil {
		return user.Event{}, fmt.Errorf("proto unmarshal error: %w", err)
	}
	fields := envelope.AsMap()

	rawID, _ := fields["id"].(string)
	id, err := uuid.Parse(rawID)
	if err != nil {
		return user.Event{}, fmt.Errorf("invalid event id %q: %w", rawID, err)
	}

	eventType, _ := fields["type"].(string)
	if eventType == "" {
		return user.Event{}, errors.New("missing event type")
	}

	rawOccurredAt, _ := fields["occurred_at"].(string)
	occurredAt, err := time.Parse(time.RFC3339Nano, rawOccurredAt)
	if err != nil {
		return user.Event{}, fmt.Errorf("invalid occurred_at: %w", err)
	}

	payload, _ := fields["payload"].(map[string]any)
	if payload == nil {
		payload = map[string]any{}
	}
	if v, ok := payload["user_id"].(float64); ok {
		payload["user_id"] = int64(v)
	}

	return user.Event{
		ID:         id,
		Type:       user.EventType(eventType),
		Payload:    payload,
		OccurredAt: occurredAt,
	}, nil
}
