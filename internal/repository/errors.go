package repository

import "errors"

// ErrNotFound indicates an entity was not located or is not owned by the caller.
var ErrNotFound = errors.New("repository: not found")

// ErrInvalidArgument indicates the store rejected a value.
var ErrInvalidArgument = errors.New("repository: invalid argument")

// ErrConflict indicates a uniqueness violation.
var ErrConflict = errors.New("repository: conflict")
