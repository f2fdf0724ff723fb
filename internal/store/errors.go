package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when an insert violates the unique
// email index. The index is the authoritative guard against concurrent
// registrations with the same email.
var ErrDuplicateEmail = errors.New("duplicate email")
