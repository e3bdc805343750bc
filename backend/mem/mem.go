// Package mem implements an in-memory datacache backend.
package mem

import (
	"context"
	"path"
	"sort"
	"sync"

	"github.com/bobg/datacache"
	"github.com/bobg/datacache/backend"
)

var _ datacache.Backend = &Backend{}

// Backend is a memory-based implementation of datacache.Backend.
// It is safe for concurrent use.
type Backend struct {
	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]struct{}
}

// New produces a new, empty Backend.
func New() *Backend {
	return &Backend{
		files: make(map[string][]byte),
		dirs:  make(map[string]struct{}),
	}
}

// MkdirAll implements datacache.Backend.
func (b *Backend) MkdirAll(_ context.Context, p string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for p = path.Clean(p); p != "." && p != "/"; p = path.Dir(p) {
		b.dirs[p] = struct{}{}
	}
	return nil
}

// Exists implements datacache.Backend.
func (b *Backend) Exists(_ context.Context, p string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.files[path.Clean(p)]
	return ok, nil
}

// ReadFile implements datacache.Backend.
func (b *Backend) ReadFile(_ context.Context, p string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, ok := b.files[path.Clean(p)]
	if !ok {
		return nil, datacache.ErrNotFound
	}
	return append([]byte{}, data...), nil
}

// WriteFile implements datacache.Backend.
func (b *Backend) WriteFile(_ context.Context, p string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.files[path.Clean(p)] = append([]byte{}, data...)
	return nil
}

// Remove deletes the entry at p, if there is one.
func (b *Backend) Remove(p string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.files, path.Clean(p))
}

// Len is the number of entries in b.
func (b *Backend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.files)
}

// Paths lists the paths of b's entries in lexicographic order.
func (b *Backend) Paths() []string {
	b.mu.Lock()
	paths := make([]string, 0, len(b.files))
	for p := range b.files {
		paths = append(paths, p)
	}
	b.mu.Unlock()

	sort.Strings(paths)
	return paths
}

// Dirs lists the directories created with MkdirAll in lexicographic order.
func (b *Backend) Dirs() []string {
	b.mu.Lock()
	dirs := make([]string, 0, len(b.dirs))
	for d := range b.dirs {
		dirs = append(dirs, d)
	}
	b.mu.Unlock()

	sort.Strings(dirs)
	return dirs
}

func init() {
	backend.Register("mem", func(context.Context, map[string]interface{}) (datacache.Backend, error) {
		return New(), nil
	})
}
