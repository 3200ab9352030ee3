package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/pubsub"
	subscriberactor "github.com/rbroggi/usermgmt/internal/actors/pubsub/subscriber"
	"github.com/rbroggi/usermgmt/internal/config"
	"github.com/rbroggi/usermgmt/internal/core/user"
	log "github.com/sirupsen/logrus"
)

func init() {
	// Log as JSON instead of the default ASCII formatter.
	log.SetFormatter(&log.JSONFormatter{})

	// Output to stdout instead of the default stderr
	log.SetOutput(os.Stdout)

	log.SetLevel(log.DebugLevel)
}

// auditLog writes every user event as a structured log line.
type auditLog struct{}

func (auditLog) Handle(_ context.Context, event user.Event) error {
	log.WithFields(log.Fields{
		"event_id":    event.ID,
		"event_type":  event.Type,
		"occurred_at": event.OccurredAt,
		"user_id":     event.Payload["user_id"],
	}).Info("user event")
	return nil
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}
	cfg.ConfigureLogging()
	if cfg.PubSubProjectID == "" {
		return errors.New("PUBSUB_PROJECT_ID is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer cancel()

	client, err := pubsub.NewClient(ctx, cfg.PubSubProjectID)
	if err != nil {
		return err
	}
	defer client.Close()

	subscriber := subscriberactor.NewSubscriber(subscriberactor.SubscriberArgs{
		EventHandler: auditLog{},
		Subscription: client.Subscription(cfg.PubSubUserEventSubscription),
	})

	log.
		WithField("subscription", cfg.PubSubUserEventSubscription).
		Info("consuming user events. listening to SIGTERM, SIGINT, SIGQUIT for stoping the worker")

	// blocks until a signal cancels the context
	return subscriber.Consume(ctx)
}

func main() {
	if err := run(); err != nil {
		log.WithError(err).Error("worker stopped")
		os.Exit(1)
	}
}
