package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/rbroggi/usermgmt/internal/actors/memory"
	"github.com/rbroggi/usermgmt/internal/core/model"
	"github.com/rbroggi/usermgmt/internal/core/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	user.HashParams = &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

type harness struct {
	app *app
	out *bytes.Buffer
}

func newHarness(t *testing.T, arch string) *harness {
	t.Helper()
	out := &bytes.Buffer{}
	a, err := newApp(appArgs{Arch: arch, Repository: memory.NewMemoryDB(), Out: out})
	require.NoError(t, err)
	return &harness{app: a, out: out}
}

func (h *harness) run(t *testing.T, args ...string) error {
	t.Helper()
	h.out.Reset()
	return h.app.execute(context.Background(), args)
}

func (h *harness) user(t *testing.T) model.UserDTO {
	t.Helper()
	var dto model.UserDTO
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &dto))
	return dto
}

func TestApp_lifecycle(t *testing.T) {
	for _, arch := range []string{archDDD, archCQRS} {
		t.Run(arch, func(t *testing.T) {
			h := newHarness(t, arch)

			require.NoError(t, h.run(t, "create", "-name", "Alice", "-email", "alice@example.com", "-password", "secret-pass"))
			created := h.user(t)
			assert.Equal(t, int64(1), created.ID)
			assert.Equal(t, "Alice", created.Name)
			assert.NotContains(t, h.out.String(), "password")

			require.NoError(t, h.run(t, "update", "-id", "1", "-name", "Alicia"))
			updated := h.user(t)
			assert.Equal(t, "Alicia", updated.Name)
			assert.Equal(t, "alice@example.com", updated.Email)

			require.NoError(t, h.run(t, "get", "-id", "1"))
			assert.Equal(t, "Alicia", h.user(t).Name)

			require.NoError(t, h.run(t, "list"))
			var users []model.UserDTO
			require.NoError(t, json.Unmarshal(h.out.Bytes(), &users))
			require.Len(t, users, 1)

			require.NoError(t, h.run(t, "delete", "-id", "1"))
			assert.JSONEq(t, `{"id":1,"deleted":true}`, h.out.String())

			require.ErrorIs(t, h.run(t, "get", "-id", "1"), errNotFound)
			require.ErrorIs(t, h.run(t, "delete", "-id", "1"), errNotFound)
			require.ErrorIs(t, h.run(t, "update", "-id", "1", "-name", "Bob"), errNotFound)
		})
	}
}

func TestApp_usageErrors(t *testing.T) {
	h := newHarness(t, archDDD)
	tests := []struct {
		name string
		args []string
	}{
		{name: "no command", args: nil},
		{name: "unknown command", args: []string{"purge"}},
		{name: "unknown flag", args: []string{"get", "-uid", "1"}},
		{name: "missing id", args: []string{"get"}},
		{name: "stray argument", args: []string{"list", "now"}},
		{name: "bad email", args: []string{"create", "-name", "Al", "-email", "nope", "-password", "secret-pass"}},
		{name: "short password", args: []string{"update", "-id", "1", "-password", "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.run(t, tt.args...)
			var uerr *usageError
			require.ErrorAs(t, err, &uerr)
		})
	}

	_, err := newApp(appArgs{Arch: "mvc", Repository: memory.NewMemoryDB()})
	var uerr *usageError
	require.ErrorAs(t, err, &uerr)
}

func TestApp_domainValidation(t *testing.T) {
	h := newHarness(t, archDDD)
	require.NoError(t, h.run(t, "create", "-name", "Alice", "-email", "alice@example.com", "-password", "secret-pass"))

	err := h.run(t, "create", "-name", "R2D2", "-email", "alice@example.com", "-password", "secret-pass")
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, model.FieldErrors{
		"name":  "Name contains invalid characters",
		"email": "Email address is already taken",
	}, verr.Errors)
}

func TestApp_updateWithoutChanges(t *testing.T) {
	h := newHarness(t, archDDD)
	require.NoError(t, h.run(t, "create", "-name", "Alice", "-email", "alice@example.com", "-password", "secret-pass"))
	created := h.user(t)

	require.NoError(t, h.run(t, "update", "-id", "1"))
	assert.Equal(t, created, h.user(t))
}
