package model

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned by persistence adapters when a record is required to exist and does not.
	ErrNotFound = errors.New("entity was not found")

	// ErrDuplicateEmail is returned by persistence adapters when an email is already owned by another user.
	ErrDuplicateEmail = errors.New("email already exists")
)

// FieldErrors maps a field name (name, email, password) to a human readable message.
type FieldErrors map[string]string

// Fields returns the field names in lexical order.
func (f FieldErrors) Fields() []string {
	fields := make([]string, 0, len(f))
	for k := range f {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

// ValidationError is returned when one or more fields fail domain validation.
// It carries every failing field, not only the first one.
type ValidationError struct {
	Errors FieldErrors
}

// NewValidationError builds a ValidationError. It returns nil for an empty set of errors.
func NewValidationError(errs FieldErrors) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}

func (e *ValidationError) Error() string {
	b, err := json.Marshal(e.Errors)
	if err != nil {
		parts := make([]string, 0, len(e.Errors))
		for _, f := range e.Errors.Fields() {
			parts = append(parts, f+": "+e.Errors[f])
		}
		return "validation failed: " + strings.Join(parts, ", ")
	}
	return "validation failed: " + string(b)
}
