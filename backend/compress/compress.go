// Package compress implements a datacache backend that compresses and uncompresses entries
// on their way into and out of a nested backend.
package compress

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bobg/datacache"
	"github.com/bobg/datacache/backend"
)

var _ datacache.Backend = &Backend{}

// Backend is a datacache.Backend wrapping a nested Backend and a Compressor.
type Backend struct {
	b datacache.Backend
	c Compressor
}

// Compressor tells how to compress an entry on its way into a Backend.
// Uncompress should be the inverse of Compress.
type Compressor interface {
	Compress([]byte) ([]byte, error)
	Uncompress([]byte) ([]byte, error)
}

// New produces a new Backend compressing entries with c before storing them in b.
func New(b datacache.Backend, c Compressor) *Backend {
	return &Backend{b: b, c: c}
}

// MkdirAll implements datacache.Backend.
func (b *Backend) MkdirAll(ctx context.Context, p string) error {
	return b.b.MkdirAll(ctx, p)
}

// Exists implements datacache.Backend.
func (b *Backend) Exists(ctx context.Context, p string) (bool, error) {
	return b.b.Exists(ctx, p)
}

// ReadFile implements datacache.Backend.
func (b *Backend) ReadFile(ctx context.Context, p string) ([]byte, error) {
	cdata, err := b.b.ReadFile(ctx, p)
	if err != nil {
		return nil, err
	}
	data, err := b.c.Uncompress(cdata)
	return data, errors.Wrapf(err, "uncompressing %s", p)
}

// WriteFile implements datacache.Backend.
func (b *Backend) WriteFile(ctx context.Context, p string, data []byte) error {
	cdata, err := b.c.Compress(data)
	if err != nil {
		return errors.Wrapf(err, "compressing %s", p)
	}
	return b.b.WriteFile(ctx, p, cdata)
}

// Config is the configuration of a "compress" backend.
type Config struct {
	Compressor string `mapstructure:"compressor"`
}

func init() {
	backend.Register("compress", func(ctx context.Context, conf map[string]interface{}) (datacache.Backend, error) {
		var c Config
		if err := backend.Decode(conf, &c); err != nil {
			return nil, err
		}
		comp, err := ByName(c.Compressor)
		if err != nil {
			return nil, err
		}
		nested, err := backend.Nested(ctx, conf)
		if err != nil {
			return nil, err
		}
		return New(nested, comp), nil
	})
}
