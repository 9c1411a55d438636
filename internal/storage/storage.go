// Package storage holds the blob backends that keep bundle file contents.
// Callers validate platform/version before calling; backends only move
// bytes.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrBlobNotFound means the backend has no blob at the derived key.
var ErrBlobNotFound = errors.New("bundle blob not found")

// Backend stores and removes one bundle blob per (platform, version) pair.
type Backend interface {
	// Put streams the bundle bytes and returns the public retrieval URL.
	Put(ctx context.Context, platform, version string, r io.Reader) (string, error)
	// Delete removes the blob. A missing blob is reported as
	// ErrBlobNotFound so data-integrity problems surface instead of
	// being swallowed.
	Delete(ctx context.Context, platform, version string) error
}
