package datacache

import (
	"context"
	"fmt"
	"path"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Cache is a best-effort blob cache.
// Each lookup key is hashed to a Token,
// and the blob for the key lives at root/token in the Backend.
//
// A Cache does no locking of its own.
// Concurrent Sets of the same key leave whichever write the Backend finished last.
type Cache struct {
	b    Backend
	root string
	log  logrus.FieldLogger
	err  error // from creating root, if any
}

// Option configures a Cache.
type Option func(*cacheOptions)

type cacheOptions struct {
	ctx context.Context
	log logrus.FieldLogger
}

// WithLogger sets the logger a Cache reports failures to.
// The default is the logrus standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *cacheOptions) {
		o.log = log
	}
}

// WithContext sets the context used to create the cache root in New.
func WithContext(ctx context.Context) Option {
	return func(o *cacheOptions) {
		o.ctx = ctx
	}
}

// New produces a Cache storing blobs beneath root in b.
// It creates root (and its parents) if necessary.
// Failure to create root does not make New fail:
// the failure is logged and reported by Err,
// and later calls simply miss or fail to write.
func New(b Backend, root string, opts ...Option) *Cache {
	o := cacheOptions{
		ctx: context.Background(),
		log: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Cache{b: b, root: root, log: o.log}

	if err := b.MkdirAll(o.ctx, root); err != nil {
		c.err = &StorageError{Root: root, Err: err}
		c.log.WithFields(logrus.Fields{
			"action": "mkdir",
			"root":   root,
		}).WithError(err).Warn("cache root unavailable")
	}

	return c
}

// Err returns the error from creating the cache root, if there was one.
// It satisfies errors.Is(err, ErrStorageUnavailable).
func (c *Cache) Err() error {
	return c.err
}

// Root is the directory beneath which c stores blobs.
func (c *Cache) Root() string {
	return c.root
}

// Path is the backend path where the blob for key lives.
func (c *Cache) Path(key string) string {
	return path.Join(c.root, string(Digest(key)))
}

// Get returns the blob cached for key.
// The boolean is false if there is none
// or if it could not be read.
// Get never creates anything in the backend.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	p := c.Path(key)
	data, err := c.b.ReadFile(ctx, p)
	if errors.Is(err, ErrNotFound) {
		return nil, false
	}
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"action": "get",
			"key":    key,
			"path":   p,
		}).WithError(err).Warn("cache read failed")
		return nil, false
	}
	return data, true
}

// Contains tells whether a blob is cached for key.
func (c *Cache) Contains(ctx context.Context, key string) bool {
	ok, err := c.b.Exists(ctx, c.Path(key))
	return err == nil && ok
}

// Set stores data as the blob for key,
// replacing any blob already there.
//
// A non-nil error satisfies errors.Is(err, ErrWriteFailed).
// It is informational:
// the blob is simply not cached.
func (c *Cache) Set(ctx context.Context, key string, data []byte) error {
	p := c.Path(key)
	if err := c.b.WriteFile(ctx, p, data); err != nil {
		c.log.WithFields(logrus.Fields{
			"action": "set",
			"key":    key,
			"path":   p,
			"size":   len(data),
		}).WithError(err).Warn("cache write failed")
		return &WriteError{Path: p, Err: err}
	}
	return nil
}

// StorageError is the error from failing to create a cache root.
type StorageError struct {
	Root string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("creating cache root %s: %s", e.Root, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorageUnavailable }

// WriteError is the error from failing to store a blob.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing %s: %s", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func (e *WriteError) Is(target error) bool { return target == ErrWriteFailed }
