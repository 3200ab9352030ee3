package user

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

const maxEmailLength = 255

var validate = validator.New()

// Email is a syntactically valid email address of at most 255 bytes.
type Email struct {
	value string
}

// NewEmail validates and wraps an email address.
func NewEmail(value string) (Email, error) {
	if err := validate.Var(value, "required,email"); err != nil {
		return Email{}, newInvariantError("email", fmt.Sprintf("Invalid email format: %s", value))
	}
	if len(value) > maxEmailLength {
		return Email{}, newInvariantError("email", "Email is too long. Maximum 255 characters allowed.")
	}
	return Email{value: value}, nil
}

// String returns the address.
func (e Email) String() string { return e.value }

// Equals reports value equality.
func (e Email) Equals(other Email) bool { return e.value == other.value }
