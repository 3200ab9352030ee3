package user

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minNameLength = 2
	maxNameLength = 255
)

// letters, combining marks, whitespace, hyphen, apostrophe and period.
var nameCharset = regexp.MustCompile(`^[\p{L}\p{M}\s\-'.]+$`)

// Name is a user display name. Rules are checked on the trimmed value,
// but the value is kept exactly as given.
type Name struct {
	value string
}

// NewName validates and wraps a user name.
func NewName(value string) (Name, error) {
	trimmed := strings.TrimSpace(value)
	n := utf8.RuneCountInString(trimmed)
	switch {
	case n == 0:
		return Name{}, newInvariantError("name", "Name cannot be empty")
	case n < minNameLength:
		return Name{}, newInvariantError("name", "Name must be at least 2 characters long")
	case n > maxNameLength:
		return Name{}, newInvariantError("name", "Name is too long. Maximum 255 characters allowed.")
	case !nameCharset.MatchString(trimmed):
		return Name{}, newInvariantError("name", "Name contains invalid characters")
	}
	return Name{value: value}, nil
}

// String returns the name as given at construction.
func (n Name) String() string { return n.value }

// Equals reports value equality.
func (n Name) Equals(other Name) bool { return n.value == other.value }
