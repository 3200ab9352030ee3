package user

import "strconv"

// ID identifies a persisted user. It is always positive.
type ID struct {
	value int64
}

// NewID validates and wraps a user id.
func NewID(value int64) (ID, error) {
	if value <= 0 {
		return ID{}, newInvariantError("id", "User ID must be a positive integer")
	}
	return ID{value: value}, nil
}

// Int64 returns the raw id.
func (i ID) Int64() int64 { return i.value }

// String returns the decimal representation of the id.
func (i ID) String() string { return strconv.FormatInt(i.value, 10) }

// Equals reports value equality.
func (i ID) Equals(other ID) bool { return i.value == other.value }
