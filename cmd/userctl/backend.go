package main

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/go-pg/pg/v10"
	"github.com/rbroggi/usermgmt/internal/actors/cache"
	"github.com/rbroggi/usermgmt/internal/actors/memory"
	mongoactor "github.com/rbroggi/usermgmt/internal/actors/mongo"
	"github.com/rbroggi/usermgmt/internal/actors/postgres"
	"github.com/rbroggi/usermgmt/internal/actors/pubsub/producer"
	"github.com/rbroggi/usermgmt/internal/config"
	"github.com/rbroggi/usermgmt/internal/core/ports"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// backend is the set of adapters selected by the configuration.
type backend struct {
	repository ports.Repository
	sender     ports.Sender
	closers    []func()
}

func (b *backend) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func newBackend(ctx context.Context, cfg *config.Config) (_ *backend, err error) {
	b := &backend{}
	defer func() {
		if err != nil {
			b.close()
		}
	}()

	switch cfg.Store {
	case config.StorePostgres:
		b.repository, err = newPostgres(ctx, cfg, b)
	case config.StoreMongo:
		b.repository, err = newMongo(ctx, cfg, b)
	default:
		b.repository = memory.NewMemoryDB()
	}
	if err != nil {
		return nil, err
	}
	log.WithField("store", cfg.Store).Debug("user store selected")

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		b.closers = append(b.closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			log.WithField("redis-addr", cfg.RedisAddr).WithError(err).Warn("redis does not appear to be reachable, cache will be bypassed")
		}
		b.repository, err = cache.NewCachedRepository(cache.CachedRepositoryArgs{
			Repository: b.repository,
			Client:     client,
		}, cache.WithTTL(cfg.UserCacheTTL))
		if err != nil {
			return nil, err
		}
	}

	if cfg.PubSubProjectID != "" {
		client, err := pubsub.NewClient(ctx, cfg.PubSubProjectID)
		if err != nil {
			return nil, fmt.Errorf("error creating pubsub client: %w", err)
		}
		topic := client.Topic(cfg.PubSubUserEventTopic)
		b.closers = append(b.closers, func() {
			topic.Stop()
			_ = client.Close()
		})
		p, err := producer.NewProducer(topic)
		if err != nil {
			return nil, err
		}
		b.sender = p
	}
	return b, nil
}

func newPostgres(ctx context.Context, cfg *config.Config, b *backend) (ports.Repository, error) {
	opts, err := pg.ParseURL(cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing POSTGRESQL_URL: %w", err)
	}
	db := pg.Connect(opts)
	b.closers = append(b.closers, func() { _ = db.Close() })
	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("db does not appear to be reachable: %w", err)
	}
	return postgres.NewPostgresDB(postgres.PostgresDBArgs{DB: db})
}

func newMongo(ctx context.Context, cfg *config.Config, b *backend) (ports.Repository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURL))
	if err != nil {
		return nil, fmt.Errorf("error connecting to mongo: %w", err)
	}
	b.closers = append(b.closers, func() { _ = client.Disconnect(context.Background()) })
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("db does not appear to be reachable: %w", err)
	}
	database := client.Database(cfg.MongoDatabase)
	m, err := mongoactor.NewMongoDB(mongoactor.MongoDBArgs{
		UserCollection:    database.Collection("users"),
		CounterCollection: database.Collection("counters"),
	})
	if err != nil {
		return nil, err
	}
	if err := m.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("error creating mongo indexes: %w", err)
	}
	return m, nil
}
