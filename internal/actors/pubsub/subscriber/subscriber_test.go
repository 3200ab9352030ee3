package subscriber

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/google/uuid"
	"github.com/rbroggi/usermgmt/internal/actors/pubsub/producer"
	"github.com/rbroggi/usermgmt/internal/core/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// handlerFunc adapts a function to ports.EventHandler.
type handlerFunc func(ctx context.Context, event user.Event) error

func (f handlerFunc) Handle(ctx context.Context, event user.Event) error { return f(ctx, event) }

func newClient(t *testing.T) *pubsub.Client {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.Dial(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(context.Background(), "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestSubscriber_Consume(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)
	topic, err := client.CreateTopic(ctx, "user-events")
	require.NoError(t, err)
	t.Cleanup(topic.Stop)
	sub, err := client.CreateSubscription(ctx, "user-events.audit", pubsub.SubscriptionConfig{Topic: topic})
	require.NoError(t, err)

	sent := user.Event{
		ID:         uuid.New(),
		Type:       user.EventUserEmailChanged,
		Payload:    map[string]any{"user_id": int64(12), "old_email": "a@example.com", "new_email": "b@example.com"},
		OccurredAt: time.Date(2024, 1, 1, 10, 0, 0, 123456789, time.UTC),
	}
	p, err := producer.NewProducer(topic)
	require.NoError(t, err)
	require.NoError(t, p.Send(ctx, []user.Event{sent}))

	received := make(chan user.Event, 1)
	var attempts atomic.Int32
	consumeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	s := NewSubscriber(SubscriberArgs{
		Subscription: sub,
		EventHandler: handlerFunc(func(_ context.Context, event user.Event) error {
			if attempts.Add(1) == 1 {
				return errors.New("try again")
			}
			received <- event
			cancel()
			return nil
		}),
	})
	require.NoError(t, s.Consume(consumeCtx))

	select {
	case got := <-received:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, sent.Type, got.Type)
		assert.Equal(t, sent.Payload, got.Payload)
		assert.True(t, sent.OccurredAt.Equal(got.OccurredAt))
		assert.Equal(t, int32(2), attempts.Load(), "nacked message is redelivered")
	default:
		t.Fatal("no event received")
	}
}

func TestDecodeEvent(t *testing.T) {
	encode := func(t *testing.T, fields map[string]any) *pubsub.Message {
		s, err := structpb.NewStruct(fields)
		require.NoError(t, err)
		data, err := proto.Marshal(s)
		require.NoError(t, err)
		return &pubsub.Message{Data: data}
	}
	id := uuid.New()
	tests := []struct {
		name          string
		msg           func(t *testing.T) *pubsub.Message
		expectedError bool
	}{
		{name: "nil message", msg: func(*testing.T) *pubsub.Message { return nil }, expectedError: true},
		{name: "not protobuf", msg: func(*testing.T) *pubsub.Message { return &pubsub.Message{Data: []byte{0xff, 0xff}} }, expectedError: true},
		{
			name: "bad id",
			msg: func(t *testing.T) *pubsub.Message {
				return encode(t, map[string]any{"id": "nope", "type": "UserCreated", "occurred_at": "2024-01-01T00:00:00Z"})
			},
			expectedError: true,
		},
		{
			name: "missing type",
			msg: func(t *testing.T) *pubsub.Message {
				return encode(t, map[string]any{"id": id.String(), "occurred_at": "2024-01-01T00:00:00Z"})
			},
			expectedError: true,
		},
		{
			name: "no payload",
			msg: func(t *testing.T) *pubsub.Message {
				return encode(t, map[string]any{"id": id.String(), "type": "UserCreated", "occurred_at": "2024-01-01T00:00:00Z"})
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := DecodeEvent(tt.msg(t))
			if tt.expectedError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, id, event.ID)
			assert.Equal(t, user.EventUserCreated, event.Type)
			assert.Empty(t, event.Payload)
		})
	}
}
