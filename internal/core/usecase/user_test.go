package usecase

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rbroggi/usermgmt/internal/actors/memory"
	"github.com/rbroggi/usermgmt/internal/core/model"
	"github.com/rbroggi/usermgmt/internal/core/ports"
	"github.com/rbroggi/usermgmt/internal/core/user"
	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dummyTime = time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)

func TestMain(m *testing.M) {
	user.HashParams = &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	os.Exit(m.Run())
}

func ptr(s string) *string { return &s }

// countingRepository counts the writes reaching the store.
type countingRepository struct {
	ports.Repository
	writes int
}

func (c *countingRepository) Create(ctx context.Context, f ports.CreateUserFields) (*model.User, error) {
	c.writes++
	return c.Repository.Create(ctx, f)
}

func (c *countingRepository) Update(ctx context.Context, u *model.User, f ports.UpdateUserFields) (*model.User, error) {
	c.writes++
	return c.Repository.Update(ctx, u, f)
}

func newTestService(t *testing.T, sender *MockSender) (*UserService, *countingRepository) {
	t.Helper()
	repo := &countingRepository{Repository: memory.NewMemoryDB(memory.WithNowFunc(func() time.Time { return dummyTime }))}
	opts := []UserServiceOptArgs{}
	if sender != nil {
		sender.t = t
		opts = append(opts, WithInformer(NewInformer(sender)))
	}
	return NewUserService(UserServiceArgs{Repository: repo}, opts...), repo
}

func TestUserService_CreateUser(t *testing.T) {
	tests := []struct {
		name            string
		args            model.CreateUserArgs
		eventsAssertion func(t *testing.T, events []user.Event)
		callsSendMethod bool
		assertion       func(t *testing.T, dto *model.UserDTO, err error, repo *countingRepository)
	}{
		{
			name: "valid user",
			args: model.CreateUserArgs{Name: "Alice", Email: "alice@example.com", Password: "secret-pass"},
			eventsAssertion: func(t *testing.T, events []user.Event) {
				require.Len(t, events, 1)
				assert.Equal(t, user.EventUserCreated, events[0].Type)
			},
			callsSendMethod: true,
			assertion: func(t *testing.T, dto *model.UserDTO, err error, repo *countingRepository) {
				require.NoError(t, err)
				assert.Equal(t, &model.UserDTO{ID: 1, Name: "Alice", Email: "alice@example.com", CreatedAt: dummyTime, UpdatedAt: dummyTime}, dto)
				stored, err := repo.FindByID(context.Background(), 1)
				require.NoError(t, err)
				assert.NotEqual(t, "secret-pass", stored.PasswordHash)
				ok, err := argon2id.ComparePasswordAndHash("secret-pass", stored.PasswordHash)
				require.NoError(t, err)
				assert.True(t, ok)
			},
		},
		{
			name: "every invalid field is reported",
			args: model.CreateUserArgs{Name: "", Email: "bad", Password: "short"},
			assertion: func(t *testing.T, dto *model.UserDTO, err error, repo *countingRepository) {
				var verr *model.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, []string{"email", "name", "password"}, verr.Errors.Fields())
				assert.Nil(t, dto)
				assert.Zero(t, repo.writes)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &MockSender{EventsAssertion: tt.eventsAssertion}
			s, repo := newTestService(t, sender)
			dto, err := s.CreateUser(context.Background(), tt.args)
			tt.assertion(t, dto, err, repo)
			assert.Equal(t, tt.callsSendMethod, sender.called)
		})
	}
}

func TestUserService_CreateUser_duplicateEmail(t *testing.T) {
	ctx := context.Background()
	s, repo := newTestService(t, nil)
	_, err := s.CreateUser(ctx, model.CreateUserArgs{Name: "Alice", Email: "alice@example.com", Password: "secret-pass"})
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, model.CreateUserArgs{Name: "Other", Email: "alice@example.com", Password: "secret-pass"})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, model.FieldErrors{"email": "Email address is already taken"}, verr.Errors)
	assert.Equal(t, 1, repo.writes)
}

// racingRepository hides existing emails from lookups, as a concurrent writer would.
type racingRepository struct {
	ports.Repository
}

func (racingRepository) FindByEmail(context.Context, string) (*model.User, error) {
	return nil, model.ErrNotFound
}

func TestUserService_storeRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := NewUserService(UserServiceArgs{Repository: racingRepository{Repository: memory.NewMemoryDB()}})
	_, err := s.CreateUser(ctx, model.CreateUserArgs{Name: "Alice", Email: "alice@example.com", Password: "secret-pass"})
	require.NoError(t, err)
	bob, err := s.CreateUser(ctx, model.CreateUserArgs{Name: "Bob", Email: "bob@example.com", Password: "secret-pass"})
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, model.CreateUserArgs{Name: "Other", Email: "alice@example.com", Password: "secret-pass"})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, model.FieldErrors{"email": "Email address is already taken"}, verr.Errors)

	email := "alice@example.com"
	_, err = s.UpdateUser(ctx, model.UpdateUserArgs{ID: bob.ID, Email: &email})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, model.FieldErrors{"email": "Email address is already taken"}, verr.Errors)
}

func TestUserService_UpdateUser(t *testing.T) {
	ctx := context.Background()
	sender := &MockSender{}
	s, repo := newTestService(t, sender)
	alice, err := s.CreateUser(ctx, model.CreateUserArgs{Name: "Alice", Email: "alice@example.com", Password: "secret-pass"})
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, model.CreateUserArgs{Name: "Bob", Email: "bob@example.com", Password: "secret-pass"})
	require.NoError(t, err)

	t.Run("no changes returns current record without writing", func(t *testing.T) {
		writes := repo.writes
		sender.called = false
		dto, err := s.UpdateUser(ctx, model.UpdateUserArgs{ID: alice.ID})
		require.NoError(t, err)
		assert.Equal(t, alice, dto)
		assert.Equal(t, writes, repo.writes)
		assert.False(t, sender.called)
	})

	t.Run("no changes on a missing user", func(t *testing.T) {
		dto, err := s.UpdateUser(ctx, model.UpdateUserArgs{ID: 99})
		require.NoError(t, err)
		assert.Nil(t, dto)
	})

	t.Run("missing user", func(t *testing.T) {
		dto, err := s.UpdateUser(ctx, model.UpdateUserArgs{ID: 99, Name: ptr("Carol")})
		require.NoError(t, err)
		assert.Nil(t, dto)
	})

	t.Run("email owned by someone else", func(t *testing.T) {
		_, err := s.UpdateUser(ctx, model.UpdateUserArgs{ID: alice.ID, Email: ptr("bob@example.com")})
		var verr *model.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, model.FieldErrors{"email": "Email address is already taken"}, verr.Errors)
	})

	t.Run("name and password", func(t *testing.T) {
		sender.called = false
		sender.EventsAssertion = func(t *testing.T, events []user.Event) {
			require.Len(t, events, 2)
			assert.Equal(t, user.EventUserNameChanged, events[0].Type)
			assert.Equal(t, alice.ID, events[0].Payload["user_id"])
			assert.Equal(t, user.EventUserPasswordChanged, events[1].Type)
		}
		dto, err := s.UpdateUser(ctx, model.UpdateUserArgs{ID: alice.ID, Name: ptr("Alicia"), Password: ptr("new-secret-pass")})
		require.NoError(t, err)
		assert.True(t, sender.called)
		assert.Equal(t, "Alicia", dto.Name)
		assert.Equal(t, "alice@example.com", dto.Email)

		stored, err := repo.FindByID(ctx, alice.ID)
		require.NoError(t, err)
		ok, err := argon2id.ComparePasswordAndHash("new-secret-pass", stored.PasswordHash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("sender failure does not fail the update", func(t *testing.T) {
		hook := logtest.NewGlobal()
		defer hook.Reset()
		sender.EventsAssertion = nil
		sender.SendError = errors.New("broker down")
		dto, err := s.UpdateUser(ctx, model.UpdateUserArgs{ID: alice.ID, Email: ptr("alicia@example.com")})
		require.NoError(t, err)
		assert.Equal(t, "alicia@example.com", dto.Email)

		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, log.WarnLevel, entry.Level)
		assert.Equal(t, "error informing user events", entry.Message)
		assert.Equal(t, alice.ID, entry.Data["user_id"])
		assert.ErrorIs(t, entry.Data[log.ErrorKey].(error), sender.SendError)
	})
}

func TestUserService_reads(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t, nil)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	alice, err := s.CreateUser(ctx, model.CreateUserArgs{Name: "Alice", Email: "alice@example.com", Password: "secret-pass"})
	require.NoError(t, err)

	got, err := s.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice, got)

	got, err = s.GetUserByID(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, got)

	users, err = s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.UserDTO{*alice}, users)

	deleted, err := s.DeleteUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

type brokenRepository struct {
	ports.Repository
	err error
}

func (b brokenRepository) FindByID(context.Context, int64) (*model.User, error) { return nil, b.err }

func (b brokenRepository) FindByEmail(context.Context, string) (*model.User, error) {
	return nil, b.err
}

func (b brokenRepository) GetAll(context.Context) ([]model.User, error) { return nil, b.err }

func TestUserService_persistenceErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection refused")
	s := NewUserService(UserServiceArgs{Repository: brokenRepository{err: boom}})

	_, err := s.GetUserByID(ctx, 1)
	require.ErrorIs(t, err, boom)
	_, err = s.ListUsers(ctx)
	require.ErrorIs(t, err, boom)
	_, err = s.DeleteUser(ctx, 1)
	require.ErrorIs(t, err, boom)
	_, err = s.CreateUser(ctx, model.CreateUserArgs{Name: "Alice", Email: "alice@example.com", Password: "secret-pass"})
	require.ErrorIs(t, err, boom)
	_, err = s.UpdateUser(ctx, model.UpdateUserArgs{ID: 1, Email: ptr("alice@example.com")})
	require.ErrorIs(t, err, boom)
}
