package datacache

import (
	"context"
	"errors"
)

// Backend is the storage capability a Cache writes through.
// Paths are slash-separated.
type Backend interface {
	// MkdirAll creates a directory and any missing parents.
	// An already existing directory is not an error.
	MkdirAll(ctx context.Context, path string) error

	// Exists tells whether an entry exists at path.
	Exists(ctx context.Context, path string) (bool, error)

	// ReadFile returns the bytes stored at path.
	// It returns ErrNotFound if there are none.
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// WriteFile stores data at path,
	// creating the entry or replacing its contents.
	WriteFile(ctx context.Context, path string, data []byte) error
}

var (
	// ErrNotFound is the error returned by a Backend
	// when reading a path that holds no entry.
	ErrNotFound = errors.New("not found")

	// ErrStorageUnavailable is reported by Cache.Err
	// when the cache root could not be created.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrWriteFailed is wrapped by the errors Cache.Set returns.
	ErrWriteFailed = errors.New("cache write failed")
)
