package main

import (
	"context"
	"os"

	"cloud.google.com/go/pubsub"
	"github.com/rbroggi/usermgmt/internal/config"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ensureTopology creates the user-event topic and its audit subscription. Existing ones are kept.
func ensureTopology(ctx context.Context, client *pubsub.Client, topicID, subscriptionID string) error {
	topic, err := client.CreateTopic(ctx, topicID)
	if status.Code(err) == codes.AlreadyExists {
		topic = client.Topic(topicID)
	} else if err != nil {
		return err
	}
	log.WithField("topic", topicID).Info("topic ready")

	_, err = client.CreateSubscription(ctx, subscriptionID, pubsub.SubscriptionConfig{Topic: topic})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return err
	}
	log.WithField("topic", topicID).WithField("subscription", subscriptionID).Info("subscription ready")
	return nil
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}
	cfg.ConfigureLogging()

	ctx := context.Background()
	client, err := pubsub.NewClient(ctx, cfg.PubSubProjectID)
	if err != nil {
		return err
	}
	defer client.Close()

	return ensureTopology(ctx, client, cfg.PubSubUserEventTopic, cfg.PubSubUserEventSubscription)
}

func main() {
	if err := run(); err != nil {
		log.WithError(err).Error("unable to set up pubsub topology")
		os.Exit(1)
	}
}
