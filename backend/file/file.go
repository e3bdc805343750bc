// Package file implements a datacache backend on the local filesystem.
package file

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/bobg/datacache"
	"github.com/bobg/datacache/backend"
)

var _ datacache.Backend = &Backend{}

// Backend is a filesystem-based implementation of datacache.Backend.
// Relative paths are resolved against a base directory.
type Backend struct {
	base string
}

// New produces a Backend resolving relative paths against base.
// An empty base means the working directory.
func New(base string) *Backend {
	return &Backend{base: base}
}

func (b *Backend) path(p string) string {
	p = filepath.FromSlash(p)
	if b.base == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(b.base, p)
}

// MkdirAll implements datacache.Backend.
// An empty p is the base (or working) directory.
func (b *Backend) MkdirAll(_ context.Context, p string) error {
	dir := b.path(p)
	if dir == "" {
		dir = "."
	}
	err := os.MkdirAll(dir, 0755)
	return errors.Wrapf(err, "ensuring path %s exists", dir)
}

// Exists implements datacache.Backend.
// A directory at p does not count.
func (b *Backend) Exists(_ context.Context, p string) (bool, error) {
	path := b.path(p)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "statting %s", path)
	}
	return !info.IsDir(), nil
}

// ReadFile implements datacache.Backend.
func (b *Backend) ReadFile(_ context.Context, p string) ([]byte, error) {
	path := b.path(p)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, datacache.ErrNotFound
	}
	if err != nil {
		if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
			return nil, datacache.ErrNotFound
		}
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return data, nil
}

// WriteFile implements datacache.Backend.
// The data goes to a temporary file in the same directory,
// which is then renamed into place,
// so readers see either the old contents or the new.
func (b *Backend) WriteFile(_ context.Context, p string, data []byte) error {
	var (
		path = b.path(p)
		dir  = filepath.Dir(path)
	)

	f, err := os.CreateTemp(dir, ".datacache-*")
	if err != nil {
		return errors.Wrapf(err, "creating temp file in %s", dir)
	}
	tmpname := f.Name()

	_, err = f.Write(data)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpname)
		return errors.Wrapf(err, "writing data to %s", tmpname)
	}

	if err = os.Chmod(tmpname, 0644); err != nil {
		os.Remove(tmpname)
		return errors.Wrapf(err, "setting mode of %s", tmpname)
	}

	if err = os.Rename(tmpname, path); err != nil {
		os.Remove(tmpname)
		return errors.Wrapf(err, "renaming %s to %s", tmpname, path)
	}

	return nil
}

// Config is the configuration of a "file" backend.
type Config struct {
	Base string `mapstructure:"base"`
}

func init() {
	backend.Register("file", func(_ context.Context, conf map[string]interface{}) (datacache.Backend, error) {
		var c Config
		if err := backend.Decode(conf, &c); err != nil {
			return nil, err
		}
		return New(c.Base), nil
	})
}
