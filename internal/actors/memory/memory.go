// Package memory is a process-local persistence adapter. It is the default store of userctl
// and the fake repository of the core tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rbroggi/usermgmt/internal/core/model"
	"github.com/rbroggi/usermgmt/internal/core/ports"
)

// MemoryDB keeps users in a map guarded by a mutex. Ids are assigned from a sequence starting at 1.
type MemoryDB struct {
	mu      sync.RWMutex
	users   map[int64]model.User
	lastID  int64
	nowFunc func() time.Time
}

// MemoryDBOptArgs are the optional arguments for building a MemoryDB
type MemoryDBOptArgs = func(*MemoryDB)

// WithNowFunc can be used to override the nowFunc. Useful for testing.
func WithNowFunc(nowFunc func() time.Time) MemoryDBOptArgs {
	return func(m *MemoryDB) {
		m.nowFunc = nowFunc
	}
}

// NewMemoryDB creates an empty MemoryDB.
func NewMemoryDB(optArgs ...MemoryDBOptArgs) *MemoryDB {
	m := &MemoryDB{
		users:   map[int64]model.User{},
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range optArgs {
		opt(m)
	}
	return m
}

var _ ports.Repository = (*MemoryDB)(nil)

// FindByID returns the user with the given id, or model.ErrNotFound.
func (m *MemoryDB) FindByID(_ context.Context, id int64) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &u, nil
}

// FindByEmail returns the user owning email, or model.ErrNotFound.
func (m *MemoryDB) FindByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, model.ErrNotFound
}

// GetAll lists every user ordered by id.
func (m *MemoryDB) GetAll(_ context.Context) ([]model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// Create saves a new user. It returns model.ErrDuplicateEmail if the email is already owned.
func (m *MemoryDB) Create(_ context.Context, fields ports.CreateUserFields) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emailOwner(fields.Email) != 0 {
		return nil, model.ErrDuplicateEmail
	}
	m.lastID++
	now := m.nowFunc()
	u := model.User{
		ID:           m.lastID,
		Name:         fields.Name,
		Email:        fields.Email,
		PasswordHash: fields.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.users[u.ID] = u
	return &u, nil
}

// Update applies the non-nil fields. It returns model.ErrNotFound if the user does not exist
// and model.ErrDuplicateEmail if the new email belongs to someone else.
func (m *MemoryDB) Update(_ context.Context, user *model.User, fields ports.UpdateUserFields) (*model.User, error) {
	if user == nil {
		return nil, errors.New("nil user passed to update method")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[user.ID]
	if !ok {
		return nil, model.ErrNotFound
	}
	if fields.Name != nil {
		u.Name = *fields.Name
	}
	if fields.Email != nil {
		if owner := m.emailOwner(*fields.Email); owner != 0 && owner != u.ID {
			return nil, model.ErrDuplicateEmail
		}
		u.Email = *fields.Email
	}
	if fields.PasswordHash != nil {
		u.PasswordHash = *fields.PasswordHash
	}
	u.UpdatedAt = m.nowFunc()
	m.users[u.ID] = u
	return &u, nil
}

// Delete removes the user. It reports false when there was nothing to delete.
func (m *MemoryDB) Delete(_ context.Context, user *model.User) (bool, error) {
	if user == nil {
		return false, errors.New("nil user passed to delete method")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return false, nil
	}
	delete(m.users, user.ID)
	return true, nil
}

// emailOwner returns the id owning email, or 0. Callers hold the lock.
func (m *MemoryDB) emailOwner(email string) int64 {
	for id, u := range m.users {
		if u.Email == email {
			return id
		}
	}
	return 0
}
