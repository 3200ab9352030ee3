package model

import (
	"time"
)

// User is the persisted representation of a user, as returned by the repository.
type User struct {
	// ID unique identifier of the user. Always positive once persisted.
	ID int64 `json:"id"`

	// Name is the user display name.
	Name string `json:"name"`

	// Email is the user email. Unique across users.
	Email string `json:"email"`

	// PasswordHash contains the password hash.
	PasswordHash string `json:"password_hash,omitempty"`

	// CreatedAt is the time at which the user was created in the system.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the time at which the user was last updated
	UpdatedAt time.Time `json:"updated_at"`
}
