package user

import "errors"

// ErrInvariantViolation is matched (via errors.Is) by every error produced when a value object
// refuses its input.
var ErrInvariantViolation = errors.New("invariant violation")

// InvariantError reports a value object invariant broken for a given field.
type InvariantError struct {
	// Field is the field the invariant belongs to: id, name, email or password.
	Field string

	// Message is a human readable description of the broken rule.
	Message string
}

func newInvariantError(field, msg string) *InvariantError {
	return &InvariantError{Field: field, Message: msg}
}

func (e *InvariantError) Error() string {
	return e.Message
}

// Is makes errors.Is(err, ErrInvariantViolation) hold for any InvariantError.
func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariantViolation
}
