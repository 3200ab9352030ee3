package model

import (
	"time"
)

// CreateUserArgs contain the arguments of the CreateUser use-case. All fields are required.
type CreateUserArgs struct {
	// Name is the user name.
	Name string

	// Email is the user email
	Email string

	// Password is the plain-text password. It never leaves the core un-hashed.
	Password string
}

// UpdateUserArgs contain the arguments of the UpdateUser use-case.
// A nil field means "leave unchanged".
type UpdateUserArgs struct {
	// ID is the id of the user to be updated.
	ID int64

	// Name is the new user name.
	Name *string

	// Email is the new user email.
	Email *string

	// Password is the new plain-text password.
	Password *string
}

// HasChanges reports whether at least one field is set.
func (a UpdateUserArgs) HasChanges() bool {
	return a.Name != nil || a.Email != nil || a.Password != nil
}

// UserDTO is the read projection of a user handed out by the application service.
type UserDTO struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserDTO projects a persisted user. The password hash is never part of the projection.
func NewUserDTO(u User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// NewUserDTOs projects a list of persisted users.
func NewUserDTOs(users []User) []UserDTO {
	ret := make([]UserDTO, len(users))
	for i, u := range users {
		ret[i] = NewUserDTO(u)
	}
	return ret
}
