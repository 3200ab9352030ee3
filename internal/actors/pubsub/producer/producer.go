package producer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/rbroggi/usermgmt/internal/core/user"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// AttributeEventType carries the event type, so subscribers can filter without decoding.
	AttributeEventType = "event_type"

	// AttributeEventID carries the event id.
	AttributeEventID = "event_id"
)

// NewProducer creates a new producer.
func NewProducer(topic *pubsub.Topic) (*Producer, error) {
	if topic == nil {
		return nil, errors.New("topic is nil")
	}
	return &Producer{topic: topic}, nil
}

// Producer is the pubsub producer of user events.
type Producer struct {
	topic *pubsub.Topic
}

// Send publishes one message per event and waits for every publication to be acknowledged.
// Each message body is a protobuf-encoded google.protobuf.Struct envelope.
func (p *Producer) Send(ctx context.Context, events []user.Event) error {
	results := make([]*pubsub.PublishResult, 0, len(events))
	for _, event := range events {
		envelope, err := toProtoEvent(event)
		if err != nil {
			return fmt.Errorf("error building user-event [%s] envelope: %w", event.ID, err)
		}
		data, err := proto.Marshal(envelope)
		if err != nil {
			return fmt.Errorf("error marshaling user-event proto message: %w", err)
		}
		results = append(results, p.topic.Publish(ctx, &pubsub.Message{
			Data: data,
			Attributes: map[string]string{
				AttributeEventType: string(event.Type),
				AttributeEventID:   event.ID.String(),
			},
		}))
	}

	// Block until the results are returned and a server-generated
	// ID is returned for each published message.
	for i, result := range results {
		if _, err := result.Get(ctx); err != nil {
			return fmt.Errorf("pubsub: result.Get for event [%s]: %w", events[i].ID, err)
		}
	}
	return nil
}

func toProtoEvent(event user.Event) (*structpb.Struct, error) {
	payload := event.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	return structpb.NewStruct(map[string]any{
		"id":          event.ID.String(),
		"type":        string(event.Type),
		"occurred_at": event.OccurredAt.UTC().Format(time.RFC3339Nano),
		"payload":     payload,
	})
}
