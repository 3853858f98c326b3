package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write collides with existing state, such
// as a duplicate email or an invitation that already exists.
var ErrConflict = errors.New("conflict")
