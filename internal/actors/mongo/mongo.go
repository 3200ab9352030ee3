package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rbroggi/usermgmt/internal/core/model"
	"github.com/rbroggi/usermgmt/internal/core/ports"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// userSequence is the counters document holding the last assigned user id.
const userSequence = "users"

// MongoDB is a mongo adapter for persistance.
type MongoDB struct {
	userCollection    *mongo.Collection
	counterCollection *mongo.Collection
	nowFunc           func() time.Time
}

// MongoDBArgs are the mandatory arguments for the creation of a MongoDB
type MongoDBArgs struct {
	// UserCollection is a mongo collection
	UserCollection *mongo.Collection

	// CounterCollection holds the id sequences. Users get sequential integer ids from it.
	CounterCollection *mongo.Collection
}

// MongoDBOptArgs are the optional arguments for building a MongoDB
type MongoDBOptArgs = func(*MongoDB)

// WithNowFunc can be used to override the nowFunc. Useful for testing.
func WithNowFunc(nowFunc func() time.Time) MongoDBOptArgs {
	return func(p *MongoDB) {
		p.nowFunc = nowFunc
	}
}

// NewMongoDB creates a new MongoDB.
func NewMongoDB(args MongoDBArgs, optArgs ...MongoDBOptArgs) (*MongoDB, error) {
	if args.UserCollection == nil || args.CounterCollection == nil {
		return nil, errors.New("user and counter collections are mandatory")
	}
	m := &MongoDB{
		userCollection:    args.UserCollection,
		counterCollection: args.CounterCollection,
		nowFunc:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range optArgs {
		opt(m)
	}
	return m, nil
}

var _ ports.Repository = (*MongoDB)(nil)

// EnsureIndexes creates the unique email index. It is idempotent.
func (p *MongoDB) EnsureIndexes(ctx context.Context) error {
	_, err := p.userCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("users_email_unique"),
	})
	return err
}

// FindByID returns the user with the given id, or model.ErrNotFound.
func (p *MongoDB) FindByID(ctx context.Context, id int64) (*model.User, error) {
	return p.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

// FindByEmail returns the user owning email, or model.ErrNotFound.
func (p *MongoDB) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return p.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

// GetAll lists every user ordered by id.
func (p *MongoDB) GetAll(ctx context.Context) ([]model.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := p.userCollection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	users := []userDB{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return translateDBToModels(users), nil
}

// Create will save the user in the database. It returns model.ErrDuplicateEmail if the email is taken.
func (p *MongoDB) Create(ctx context.Context, fields ports.CreateUserFields) (*model.User, error) {
	id, err := p.nextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("error allocating user id: %w", err)
	}
	// mongo stores milliseconds. The returned record must equal a later read.
	now := p.nowFunc().Truncate(time.Millisecond)
	dbUser := userDB{
		ID:           id,
		Name:         fields.Name,
		Email:        fields.Email,
		PasswordHash: fields.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := p.userCollection.InsertOne(ctx, dbUser); err != nil {
		return nil, translateErr(err)
	}
	u := translateDBToModel(dbUser)
	return &u, nil
}

// Update will update the user. It returns model.ErrNotFound if the user does not exist.
func (p *MongoDB) Update(ctx context.Context, user *model.User, fields ports.UpdateUserFields) (*model.User, error) {
	if user == nil {
		return nil, errors.New("nil user passed to update method")
	}

	toUpdate := bson.D{{Key: "updated_at", Value: p.nowFunc().Truncate(time.Millisecond)}}
	if fields.Name != nil {
		toUpdate = append(toUpdate, bson.E{Key: "name", Value: *fields.Name})
	}
	if fields.Email != nil {
		toUpdate = append(toUpdate, bson.E{Key: "email", Value: *fields.Email})
	}
	if fields.PasswordHash != nil {
		toUpdate = append(toUpdate, bson.E{Key: "password_hash", Value: *fields.PasswordHash})
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	updated := new(userDB)
	err := p.userCollection.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: user.ID}}, bson.D{{Key: "$set", Value: toUpdate}}, opts).Decode(updated)
	if err != nil {
		return nil, translateErr(err)
	}
	u := translateDBToModel(*updated)
	return &u, nil
}

// Delete will delete a user from the database. It reports false when no document matched.
func (p *MongoDB) Delete(ctx context.Context, user *model.User) (bool, error) {
	if user == nil {
		return false, errors.New("nil user passed to delete method")
	}
	res, err := p.userCollection.DeleteOne(ctx, bson.D{{Key: "_id", Value: user.ID}})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (p *MongoDB) findOne(ctx context.Context, filter bson.D) (*model.User, error) {
	dbUser := new(userDB)
	if err := p.userCollection.FindOne(ctx, filter).Decode(dbUser); err != nil {
		return nil, translateErr(err)
	}
	u := translateDBToModel(*dbUser)
	return &u, nil
}

// nextID atomically increments the users sequence, creating it on first use.
func (p *MongoDB) nextID(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := p.counterCollection.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: userSequence}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "seq", Value: int64(1)}}}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq, nil
}

func translateErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", model.ErrDuplicateEmail, err)
	}
	return err
}

func translateDBToModels(dbUsers []userDB) []model.User {
	models := make([]model.User, len(dbUsers))
	for i, dbUser := range dbUsers {
		models[i] = translateDBToModel(dbUser)
	}
	return models
}

func translateDBToModel(dbUser userDB) model.User {
	return model.User{
		ID:           dbUser.ID,
		Name:         dbUser.Name,
		Email:        dbUser.Email,
		PasswordHash: dbUser.PasswordHash,
		CreatedAt:    dbUser.CreatedAt.UTC(),
		UpdatedAt:    dbUser.UpdatedAt.UTC(),
	}
}

type userDB struct {
	// ID unique identifier of the user.
	ID int64 `bson:"_id"`

	// Name is the user name.
	Name string `bson:"name"`

	// Email is the user email
	Email string `bson:"email"`

	// PasswordHash contains the password hash.
	PasswordHash string `bson:"password_hash"`

	// CreatedAt is the time at which the user was created in the system.
	CreatedAt time.Time `bson:"created_at"`

	// UpdatedAt is the time at which the user was last updated
	UpdatedAt time.Time `bson:"updated_at"`
}
