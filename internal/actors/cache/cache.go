// Package cache decorates a ports.Repository with a redis read-through cache of users by id.
//
// Only FindByID is served from redis. Writes refresh the entry and deletes evict it. Redis being
// unavailable never fails a call: the decorator logs and falls through to the wrapped repository.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/rbroggi/usermgmt/internal/core/model"
	"github.com/rbroggi/usermgmt/internal/core/ports"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	defaultTTL = 5 * time.Minute
	keyPrefix  = "usermgmt:user:"
)

// CachedRepositoryArgs are the mandatory arguments for the creation of a CachedRepository
type CachedRepositoryArgs struct {
	// Repository is the source of truth.
	Repository ports.Repository

	// Client is the redis client.
	Client redis.UniversalClient
}

// CachedRepositoryOptArgs are the optional arguments for building a CachedRepository
type CachedRepositoryOptArgs = func(*CachedRepository)

// WithTTL overrides how long an entry lives. A non-positive ttl keeps the default.
func WithTTL(ttl time.Duration) CachedRepositoryOptArgs {
	return func(c *CachedRepository) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// NewCachedRepository wraps args.Repository.
func NewCachedRepository(args CachedRepositoryArgs, optArgs ...CachedRepositoryOptArgs) (*CachedRepository, error) {
	if args.Repository == nil || args.Client == nil {
		return nil, errors.New("repository and redis client are mandatory")
	}
	c := &CachedRepository{repository: args.Repository, client: args.Client, ttl: defaultTTL}
	for _, opt := range optArgs {
		opt(c)
	}
	return c, nil
}

// CachedRepository is a read-through ports.Repository.
type CachedRepository struct {
	repository ports.Repository
	client     redis.UniversalClient
	ttl        time.Duration
}

var _ ports.Repository = (*CachedRepository)(nil)

// FindByID serves from redis when possible and populates it on a miss.
func (c *CachedRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	b, err := c.client.Get(ctx, key(id)).Bytes()
	switch {
	case err == nil:
		u := new(model.User)
		decodeErr := json.Unmarshal(b, u)
		if decodeErr == nil {
			return u, nil
		}
		log.WithField("user_id", id).WithError(decodeErr).Warn("dropping undecodable cache entry")
	case !errors.Is(err, redis.Nil):
		log.WithField("user_id", id).WithError(err).Warn("error reading user cache")
	}

	u, err := c.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, u)
	return u, nil
}

// FindByEmail is not cached.
func (c *CachedRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return c.repository.FindByEmail(ctx, email)
}

// GetAll is not cached.
func (c *CachedRepository) GetAll(ctx context.Context) ([]model.User, error) {
	return c.repository.GetAll(ctx)
}

// Create stores the user and caches it.
func (c *CachedRepository) Create(ctx context.Context, fields ports.CreateUserFields) (*model.User, error) {
	u, err := c.repository.Create(ctx, fields)
	if err != nil {
		return nil, err
	}
	c.set(ctx, u)
	return u, nil
}

// Update stores the change and refreshes the cached entry. A failed update evicts it.
func (c *CachedRepository) Update(ctx context.Context, user *model.User, fields ports.UpdateUserFields) (*model.User, error) {
	if user == nil {
		return nil, errors.New("nil user passed to update method")
	}
	u, err := c.repository.Update(ctx, user, fields)
	if err != nil {
		c.evict(ctx, user.ID)
		return nil, err
	}
	c.set(ctx, u)
	return u, nil
}

// Delete removes the user and evicts it.
func (c *CachedRepository) Delete(ctx context.Context, user *model.User) (bool, error) {
	if user == nil {
		return false, errors.New("nil user passed to delete method")
	}
	deleted, err := c.repository.Delete(ctx, user)
	c.evict(ctx, user.ID)
	return deleted, err
}

func (c *CachedRepository) set(ctx context.Context, u *model.User) {
	b, err := json.Marshal(u)
	if err != nil {
		log.WithField("user_id", u.ID).WithError(err).Warn("error encoding user for cache")
		return
	}
	if err := c.client.Set(ctx, key(u.ID), b, c.ttl).Err(); err != nil {
		log.WithField("user_id", u.ID).WithError(err).Warn("error writing user cache")
	}
}

func (c *CachedRepository) evict(ctx context.Context, id int64) {
	if err := c.client.Del(ctx, key(id)).Err(); err != nil {
		log.WithField("user_id", id).WithError(err).Warn("error evicting user cache")
	}
}

func key(id int64) string {
	return keyPrefix + strconv.FormatInt(id, 10)
}
