package ports

import (
	"context"

	"github.com/rbroggi/usermgmt/internal/core/model"
)

// Repository is the interface for the persistence layer.
type Repository interface {
	// FindByID returns the user with the given id, or model.ErrNotFound.
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByEmail returns the user owning email, or model.ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// GetAll lists every user ordered by id.
	GetAll(ctx context.Context) ([]model.User, error)

	// Create durably saves a new user and returns the stored record.
	Create(ctx context.Context, fields CreateUserFields) (*model.User, error)

	// Update applies the non-nil fields to user and returns the refreshed record.
	// It returns model.ErrNotFound if the user does not exist anymore.
	Update(ctx context.Context, user *model.User, fields UpdateUserFields) (*model.User, error)

	// Delete removes the user. It reports false when there was nothing to delete.
	Delete(ctx context.Context, user *model.User) (bool, error)
}

// CreateUserFields gathers the columns of a new user.
type CreateUserFields struct {
	// Name is the user name.
	Name string

	// Email is the user email
	Email string

	// PasswordHash is the already hashed password.
	PasswordHash string
}

// UpdateUserFields gathers the columns to change. Nil fields are left untouched.
type UpdateUserFields struct {
	// Name is the new user name.
	Name *string

	// Email is the new user email
	Email *string

	// PasswordHash is the new, already hashed, password.
	PasswordHash *string
}

// IsEmpty reports whether no field is set.
func (f UpdateUserFields) IsEmpty() bool {
	return f.Name == nil && f.Email == nil && f.PasswordHash == nil
}
