// Package bt implements a datacache backend on Google Cloud Bigtable.
package bt

import (
	"context"
	"path"

	"cloud.google.com/go/bigtable"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/bobg/datacache"
	"github.com/bobg/datacache/backend"
)

var _ datacache.Backend = (*Backend)(nil)

// Backend is a Google Cloud Bigtable-backed implementation of datacache.Backend.
// Entries are rows keyed "e:<path>" holding the blob in a single cell.
// Directories are rows keyed "d:<path>".
// The table must have a column family named Family.
type Backend struct {
	t *bigtable.Table
}

// Family is the column family holding entries and directory markers.
const Family = "data"

const (
	blobcol = "blob"
	dircol  = "dir"
)

// New produces a new Backend.
func New(t *bigtable.Table) *Backend {
	return &Backend{t: t}
}

func entryKey(p string) string { return "e:" + path.Clean(p) }
func dirKey(p string) string   { return "d:" + p }

// MkdirAll implements datacache.Backend.
// Bigtable has no directories;
// it records a marker row for p and each of its ancestors.
func (b *Backend) MkdirAll(ctx context.Context, p string) error {
	for p = path.Clean(p); p != "." && p != "/"; p = path.Dir(p) {
		mut := bigtable.NewMutation()
		mut.Set(Family, dircol, bigtable.Timestamp(0), []byte{})
		if err := b.t.Apply(ctx, dirKey(p), mut); err != nil {
			return errors.Wrapf(err, "recording dir %s", p)
		}
	}
	return nil
}

// Exists implements datacache.Backend.
func (b *Backend) Exists(ctx context.Context, p string) (bool, error) {
	filter := bigtable.ChainFilters(bigtable.ColumnFilter(blobcol), bigtable.StripValueFilter())
	row, err := b.t.ReadRow(ctx, entryKey(p), bigtable.RowFilter(filter))
	if err != nil {
		return false, errors.Wrapf(err, "reading row for %s", p)
	}
	return len(row[Family]) > 0, nil
}

// ReadFile implements datacache.Backend.
func (b *Backend) ReadFile(ctx context.Context, p string) ([]byte, error) {
	filter := bigtable.ChainFilters(bigtable.ColumnFilter(blobcol), bigtable.LatestNFilter(1))
	row, err := b.t.ReadRow(ctx, entryKey(p), bigtable.RowFilter(filter))
	if err != nil {
		return nil, errors.Wrapf(err, "reading row for %s", p)
	}
	items := row[Family]
	if len(items) == 0 {
		return nil, datacache.ErrNotFound
	}
	return items[0].Value, nil
}

// WriteFile implements datacache.Backend.
// Older versions of the entry are deleted in the same mutation.
func (b *Backend) WriteFile(ctx context.Context, p string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	mut := bigtable.NewMutation()
	mut.DeleteCellsInColumn(Family, blobcol)
	mut.Set(Family, blobcol, bigtable.Now(), data)
	return errors.Wrapf(b.t.Apply(ctx, entryKey(p), mut), "writing row for %s", p)
}

// Config is the configuration of a "bt" backend.
type Config struct {
	Project  string `mapstructure:"project"`
	Instance string `mapstructure:"instance"`
	Table    string `mapstructure:"table"`
	Creds    string `mapstructure:"creds"`
}

func init() {
	backend.Register("bt", func(ctx context.Context, conf map[string]interface{}) (datacache.Backend, error) {
		var c Config
		if err := backend.Decode(conf, &c); err != nil {
			return nil, err
		}
		switch {
		case c.Project == "":
			return nil, errors.New(`missing "project" parameter`)
		case c.Instance == "":
			return nil, errors.New(`missing "instance" parameter`)
		case c.Table == "":
			return nil, errors.New(`missing "table" parameter`)
		}

		var options []option.ClientOption
		if c.Creds != "" {
			options = append(options, option.WithCredentialsFile(c.Creds))
		}
		client, err := bigtable.NewClient(ctx, c.Project, c.Instance, options...)
		if err != nil {
			return nil, errors.Wrap(err, "creating bigtable client")
		}
		return New(client.Open(c.Table)), nil
	})
}
