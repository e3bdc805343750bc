// Package lru implements a datacache backend that keeps the most recently used entries
// of a nested backend in memory.
package lru

import (
	"context"
	"path"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/bobg/datacache"
	"github.com/bobg/datacache/backend"
)

var _ datacache.Backend = &Backend{}

// Backend implements a memory-based least-recently-used cache in front of another Backend.
// Writes pass through to the nested backend.
// Only the memory copy is bounded; the nested backend keeps everything.
//
// Reads are served from memory when possible,
// so an entry removed from the nested backend by something other than this Backend
// still reads as present until it is evicted from memory.
// Use a plain backend where entries may be cleared externally.
type Backend struct {
	c *lru.Cache // path -> []byte
	b datacache.Backend
}

// New produces a new Backend in front of `b` holding up to `size` entries in memory.
func New(b datacache.Backend, size int) (*Backend, error) {
	c, err := lru.New(size)
	return &Backend{b: b, c: c}, errors.Wrap(err, "creating LRU cache")
}

// MkdirAll implements datacache.Backend.
func (b *Backend) MkdirAll(ctx context.Context, p string) error {
	return b.b.MkdirAll(ctx, p)
}

// Exists implements datacache.Backend.
func (b *Backend) Exists(ctx context.Context, p string) (bool, error) {
	if b.c.Contains(path.Clean(p)) {
		return true, nil
	}
	return b.b.Exists(ctx, p)
}

// ReadFile implements datacache.Backend.
func (b *Backend) ReadFile(ctx context.Context, p string) ([]byte, error) {
	key := path.Clean(p)
	if got, ok := b.c.Get(key); ok {
		return append([]byte{}, got.([]byte)...), nil
	}
	data, err := b.b.ReadFile(ctx, p)
	if err != nil {
		return nil, err
	}
	b.c.Add(key, append([]byte{}, data...))
	return data, nil
}

// WriteFile implements datacache.Backend.
func (b *Backend) WriteFile(ctx context.Context, p string, data []byte) error {
	key := path.Clean(p)
	if err := b.b.WriteFile(ctx, p, data); err != nil {
		b.c.Remove(key)
		return err
	}
	b.c.Add(key, append([]byte{}, data...))
	return nil
}

// Len is the number of entries held in memory.
func (b *Backend) Len() int {
	return b.c.Len()
}

// Config is the configuration of an "lru" backend.
type Config struct {
	Size int `mapstructure:"size"`
}

func init() {
	backend.Register("lru", func(ctx context.Context, conf map[string]interface{}) (datacache.Backend, error) {
		var c Config
		if err := backend.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Size <= 0 {
			return nil, errors.New(`missing "size" parameter`)
		}
		nested, err := backend.Nested(ctx, conf)
		if err != nil {
			return nil, err
		}
		return New(nested, c.Size)
	})
}
