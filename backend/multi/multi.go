// Package multi implements a datacache backend that spreads writes across several nested backends
// and reads from the first one that has an entry.
package multi

import (
	"context"
	"errors"
	"fmt"

	perrors "github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/datacache"
	"github.com/bobg/datacache/backend"
)

var _ datacache.Backend = (*Backend)(nil)

// Backend delegates to a list of nested backends.
// Writes and directory creation go to all of them concurrently,
// and fail if any of them fails.
// Reads try each nested backend in order and return the first hit,
// so faster backends belong at the front of the list.
type Backend struct {
	bs []datacache.Backend
}

// New produces a new Backend over the given nested backends,
// of which there must be at least one.
func New(bs ...datacache.Backend) (*Backend, error) {
	if len(bs) == 0 {
		return nil, errors.New("no nested backends")
	}
	return &Backend{bs: bs}, nil
}

func (b *Backend) each(ctx context.Context, f func(context.Context, datacache.Backend) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, nested := range b.bs {
		nested := nested
		g.Go(func() error {
			return f(ctx, nested)
		})
	}
	return g.Wait()
}

// MkdirAll implements datacache.Backend.
func (b *Backend) MkdirAll(ctx context.Context, p string) error {
	return b.each(ctx, func(ctx context.Context, nested datacache.Backend) error {
		return nested.MkdirAll(ctx, p)
	})
}

// WriteFile implements datacache.Backend.
func (b *Backend) WriteFile(ctx context.Context, p string, data []byte) error {
	return b.each(ctx, func(ctx context.Context, nested datacache.Backend) error {
		return nested.WriteFile(ctx, p, data)
	})
}

// Exists implements datacache.Backend.
// It is true if any nested backend has the entry.
func (b *Backend) Exists(ctx context.Context, p string) (bool, error) {
	var firstErr error
	for i, nested := range b.bs {
		ok, err := nested.Exists(ctx, p)
		if err != nil {
			if firstErr == nil {
				firstErr = perrors.Wrapf(err, "nested backend %d", i)
			}
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, firstErr
}

// ReadFile implements datacache.Backend.
// If no nested backend has the entry,
// the error is the first failure other than a miss,
// or ErrNotFound if every nested backend simply missed.
func (b *Backend) ReadFile(ctx context.Context, p string) ([]byte, error) {
	var firstErr error
	for i, nested := range b.bs {
		data, err := nested.ReadFile(ctx, p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, datacache.ErrNotFound) && firstErr == nil {
			firstErr = perrors.Wrapf(err, "nested backend %d", i)
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, datacache.ErrNotFound
}

func init() {
	backend.Register("multi", func(ctx context.Context, conf map[string]interface{}) (datacache.Backend, error) {
		list, ok := conf["nested"].([]interface{})
		if !ok || len(list) == 0 {
			return nil, errors.New(`missing "nested" list`)
		}
		var bs []datacache.Backend
		for i, item := range list {
			nestedConf, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("nested item %d is a %T, not a map", i, item)
			}
			nested, err := backend.FromConfig(ctx, nestedConf)
			if err != nil {
				return nil, perrors.Wrapf(err, "creating nested backend %d", i)
			}
			bs = append(bs, nested)
		}
		return New(bs...)
	})
}
