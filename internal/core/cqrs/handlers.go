// Package cqrs is the command/query pipeline for users. Its handlers talk to the repository
// directly; unlike the usecase package they do not go through the user aggregate.
package cqrs

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexedwards/argon2id"
	"github.com/rbroggi/usermgmt/internal/core/bus"
	"github.com/rbroggi/usermgmt/internal/core/model"
	"github.com/rbroggi/usermgmt/internal/core/ports"
)

// HandlersArgs contains the mandatory arguments for the Handlers.
type HandlersArgs struct {
	// Repository is the repository for persistance operations.
	Repository ports.Repository
}

// HandlersOptArgs are the optional arguments of the Handlers.
type HandlersOptArgs func(h *Handlers)

// WithHashParams overrides the argon2id parameters used to hash passwords.
func WithHashParams(p *argon2id.Params) HandlersOptArgs {
	return func(h *Handlers) {
		h.hashParams = p
	}
}

// NewHandlers creates the user command and query handlers.
func NewHandlers(args HandlersArgs, opts ...HandlersOptArgs) *Handlers {
	h := &Handlers{
		repository: args.Repository,
		hashParams: argon2id.DefaultParams,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handlers implements one handler per user command and query.
type Handlers struct {
	repository ports.Repository
	hashParams *argon2id.Params
}

// Register binds every handler to its message on the given buses.
func Register(cb *bus.CommandBus, qb *bus.QueryBus, h *Handlers) {
	bus.HandleCommand(cb, h.CreateUser)
	bus.HandleCommand(cb, h.UpdateUser)
	bus.HandleCommand(cb, h.DeleteUser)
	bus.HandleQuery(qb, h.GetUser)
	bus.HandleQuery(qb, h.ListUsers)
}

// CreateUser hashes the password and stores the user. No length or charset rule is applied here.
func (h *Handlers) CreateUser(ctx context.Context, cmd CreateUserCommand) (*model.User, error) {
	hash, err := argon2id.CreateHash(cmd.Password, h.hashParams)
	if err != nil {
		return nil, fmt.Errorf("error creating password hash: %w", err)
	}
	u, err := h.repository.Create(ctx, ports.CreateUserFields{
		Name:         cmd.Name,
		Email:        cmd.Email,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, fmt.Errorf("error saving user in repository: %w", err)
	}
	return u, nil
}

// UpdateUser applies the set fields. It returns nil if the user does not exist.
func (h *Handlers) UpdateUser(ctx context.Context, cmd UpdateUserCommand) (*model.User, error) {
	existing, err := h.find(ctx, cmd.ID)
	if err != nil || existing == nil {
		return nil, err
	}

	fields := ports.UpdateUserFields{Name: cmd.Name, Email: cmd.Email}
	if cmd.Password != nil {
		hash, err := argon2id.CreateHash(*cmd.Password, h.hashParams)
		if err != nil {
			return nil, fmt.Errorf("error creating password hash: %w", err)
		}
		fields.PasswordHash = &hash
	}
	if fields.IsEmpty() {
		return existing, nil
	}

	u, err := h.repository.Update(ctx, existing, fields)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error updating user: %w", err)
	}
	return u, nil
}

// DeleteUser removes the user. It reports false if there was nothing to delete.
func (h *Handlers) DeleteUser(ctx context.Context, cmd DeleteUserCommand) (bool, error) {
	existing, err := h.find(ctx, cmd.ID)
	if err != nil || existing == nil {
		return false, err
	}
	deleted, err := h.repository.Delete(ctx, existing)
	if err != nil {
		return false, fmt.Errorf("error deleting user from repository: %w", err)
	}
	return deleted, nil
}

// GetUser returns the user, or nil if it does not exist.
func (h *Handlers) GetUser(ctx context.Context, q GetUserQuery) (*model.User, error) {
	return h.find(ctx, q.ID)
}

// ListUsers returns every user.
func (h *Handlers) ListUsers(ctx context.Context, _ ListUsersQuery) ([]model.User, error) {
	users, err := h.repository.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing users on the repository: %w", err)
	}
	return users, nil
}

func (h *Handlers) find(ctx context.Context, id int64) (*model.User, error) {
	u, err := h.repository.FindByID(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error finding user [%d]: %w", id, err)
	}
	return u, nil
}
