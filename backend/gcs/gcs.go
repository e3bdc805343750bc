// Package gcs implements a datacache backend on Google Cloud Storage.
package gcs

import (
	"context"
	stderrs "errors"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/bobg/datacache"
	"github.com/bobg/datacache/backend"
)

var _ datacache.Backend = &Backend{}

// Backend is a Google Cloud Storage-based implementation of datacache.Backend.
// Each entry is an object whose name is the entry's path.
type Backend struct {
	bucket *storage.BucketHandle
}

// New produces a new Backend.
func New(bucket *storage.BucketHandle) *Backend {
	return &Backend{bucket: bucket}
}

func objName(p string) string {
	return strings.TrimPrefix(path.Clean(p), "/")
}

// MkdirAll implements datacache.Backend.
// Buckets have no directories, so it does nothing.
func (b *Backend) MkdirAll(context.Context, string) error {
	return nil
}

// Exists implements datacache.Backend.
func (b *Backend) Exists(ctx context.Context, p string) (bool, error) {
	name := objName(p)
	_, err := b.bucket.Object(name).Attrs(ctx)
	if stderrs.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "getting object attrs for %s", name)
	}
	return true, nil
}

// ReadFile implements datacache.Backend.
func (b *Backend) ReadFile(ctx context.Context, p string) ([]byte, error) {
	name := objName(p)
	r, err := b.bucket.Object(name).NewReader(ctx)
	if stderrs.Is(err, storage.ErrObjectNotExist) {
		return nil, datacache.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading info of object %s", name)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	return data, errors.Wrapf(err, "reading contents of object %s", name)
}

// WriteFile implements datacache.Backend.
func (b *Backend) WriteFile(ctx context.Context, p string, data []byte) error {
	var (
		name = objName(p)
		w    = b.bucket.Object(name).NewWriter(ctx)
	)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return errors.Wrapf(err, "writing object %s", name)
	}
	return errors.Wrapf(w.Close(), "closing object %s", name)
}

// Config is the configuration of a "gcs" backend.
type Config struct {
	Creds  string `mapstructure:"creds"`
	Bucket string `mapstructure:"bucket"`
}

func init() {
	backend.Register("gcs", func(ctx context.Context, conf map[string]interface{}) (datacache.Backend, error) {
		var c Config
		if err := backend.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Bucket == "" {
			return nil, errors.New(`missing "bucket" parameter`)
		}
		var options []option.ClientOption
		if c.Creds != "" {
			options = append(options, option.WithCredentialsFile(c.Creds))
		}
		client, err := storage.NewClient(ctx, options...)
		if err != nil {
			return nil, errors.Wrap(err, "creating cloud storage client")
		}
		return New(client.Bucket(c.Bucket)), nil
	})
}
