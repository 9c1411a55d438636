package service

import "errors"

var (
	// ErrValidation covers malformed platform/storage/version input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidRange means apply_from_version is not strictly less than
	// the bundle's own version.
	ErrInvalidRange = errors.New("invalid version range")
)
