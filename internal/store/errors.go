package store

import "errors"

var (
	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate means a record with the same unique fields already exists.
	ErrDuplicate = errors.New("record already exists")
)
