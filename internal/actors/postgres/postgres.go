package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/rbroggi/usermgmt/internal/core/model"
	"github.com/rbroggi/usermgmt/internal/core/ports"
)

const uniqueViolation = "23505"

// PostgresDB is a postgress adapter for persistance.
type PostgresDB struct {
	db      *pg.DB
	nowFunc func() time.Time
}

// PostgresDBArgs are the mandatory arguments for the creation of a PostgresDB
type PostgresDBArgs struct {
	// DB is a postgres database handle
	DB *pg.DB
}

// PostgresDBOptArgs are the optional arguments for building a PostgresDB
type PostgresDBOptArgs = func(*PostgresDB)

// WithNowFunc can be used to override the nowFunc. Useful for testing.
func WithNowFunc(nowFunc func() time.Time) PostgresDBOptArgs {
	return func(p *PostgresDB) {
		p.nowFunc = nowFunc
	}
}

// NewPostgresDB creates a new PostgresDB.
func NewPostgresDB(args PostgresDBArgs, optArgs ...PostgresDBOptArgs) (*PostgresDB, error) {
	if args.DB == nil {
		return nil, errors.New("nil postgres handle")
	}
	pg := &PostgresDB{db: args.DB, nowFunc: func() time.Time { return time.Now().UTC() }}
	for _, opt := range optArgs {
		opt(pg)
	}
	return pg, nil
}

var _ ports.Repository = (*PostgresDB)(nil)

// FindByID returns the user with the given id, or model.ErrNotFound.
func (p *PostgresDB) FindByID(ctx context.Context, id int64) (*model.User, error) {
	u := &userDB{ID: id}
	if err := p.db.ModelContext(ctx, u).WherePK().Select(); err != nil {
		return nil, translateErr(err)
	}
	return u.toModel(), nil
}

// FindByEmail returns the user owning email, or model.ErrNotFound.
func (p *PostgresDB) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	u := new(userDB)
	if err := p.db.ModelContext(ctx, u).Where("email = ?", email).Select(); err != nil {
		return nil, translateErr(err)
	}
	return u.toModel(), nil
}

// GetAll lists every user ordered by id.
func (p *PostgresDB) GetAll(ctx context.Context) ([]model.User, error) {
	var users []userDB
	if err := p.db.ModelContext(ctx, &users).Order("id ASC").Select(); err != nil && err != pg.ErrNoRows {
		return nil, err
	}
	return translateDBToModels(users), nil
}

// Create will save the user in the database. It returns model.ErrDuplicateEmail if the email is taken.
func (p *PostgresDB) Create(ctx context.Context, fields ports.CreateUserFields) (*model.User, error) {
	now := p.nowFunc()
	u := &userDB{
		Name:         fields.Name,
		Email:        fields.Email,
		PasswordHash: fields.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := p.db.ModelContext(ctx, u).Returning("*").Insert(); err != nil {
		return nil, translateErr(err)
	}
	return u.toModel(), nil
}

// Update will update the user. It returns model.ErrNotFound if the user does not exist.
func (p *PostgresDB) Update(ctx context.Context, user *model.User, fields ports.UpdateUserFields) (*model.User, error) {
	if user == nil {
		return nil, errors.New("nil user passed to update method")
	}

	tx, err := p.db.BeginContext(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	existing := &userDB{ID: user.ID}
	if err := tx.ModelContext(ctx, existing).WherePK().For("UPDATE").Select(); err != nil {
		return nil, translateErr(err)
	}

	columns := []string{"updated_at"}
	if fields.Name != nil {
		existing.Name = *fields.Name
		columns = append(columns, "name")
	}
	if fields.Email != nil {
		existing.Email = *fields.Email
		columns = append(columns, "email")
	}
	if fields.PasswordHash != nil {
		existing.PasswordHash = *fields.PasswordHash
		columns = append(columns, "password_hash")
	}
	existing.UpdatedAt = p.nowFunc()

	if _, err := tx.ModelContext(ctx, existing).Column(columns...).WherePK().Update(); err != nil {
		return nil, translateErr(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return existing.toModel(), nil
}

// Delete will delete a user from the database. It reports false when no row matched.
func (p *PostgresDB) Delete(ctx context.Context, user *model.User) (bool, error) {
	if user == nil {
		return false, errors.New("nil user passed to delete method")
	}
	res, err := p.db.ModelContext(ctx, &userDB{ID: user.ID}).WherePK().Delete()
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func translateErr(err error) error {
	if errors.Is(err, pg.ErrNoRows) {
		return model.ErrNotFound
	}
	var pgErr pg.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation {
		return fmt.Errorf("%w: %s", model.ErrDuplicateEmail, pgErr.Field('M'))
	}
	return err
}

func translateDBToModels(dbUsers []userDB) []model.User {
	models := make([]model.User, len(dbUsers))
	for i, dbUser := range dbUsers {
		models[i] = *dbUser.toModel()
	}
	return models
}

func (u *userDB) toModel() *model.User {
	return &model.User{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	}
}

type userDB struct {
	tableName struct{} `pg:"users"`

	// ID unique identifier of the user.
	ID int64 `pg:"id,pk"`

	// Name is the user name.
	Name string `pg:"name"`

	// Email is the user email
	Email string `pg:"email"`

	// PasswordHash contains the password hash.
	PasswordHash string `pg:"password_hash"`

	// CreatedAt is the time at which the user was created in the system.
	CreatedAt time.Time `pg:"created_at"`

	// UpdatedAt is the time at which the user was last updated
	UpdatedAt time.Time `pg:"updated_at"`
}
