// Package sqlite3 implements a datacache backend in a Sqlite database.
package sqlite3

import (
	"context"
	"database/sql"
	stderrs "errors"
	"path"

	"github.com/bobg/sqlutil"
	_ "github.com/mattn/go-sqlite3" // register the sqlite3 type for sql.Open
	"github.com/pkg/errors"

	"github.com/bobg/datacache"
	"github.com/bobg/datacache/backend"
)

var _ datacache.Backend = &Backend{}

// Backend is a Sqlite-based implementation of datacache.Backend.
type Backend struct {
	db *sql.DB
}

// Schema is the SQL that New executes.
// It creates the `entries` and `dirs` tables if they do not exist.
// (If they do exist, they must have the columns and constraints described here.)
const Schema = `
CREATE TABLE IF NOT EXISTS entries (
  path TEXT PRIMARY KEY NOT NULL,
  data BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS dirs (
  path TEXT PRIMARY KEY NOT NULL
);
`

// New produces a new Backend using `db` for storage.
// It expects to create tables `entries` and `dirs`,
// or for those tables already to exist with the correct schema.
// (See variable Schema.)
func New(ctx context.Context, db *sql.DB) (*Backend, error) {
	_, err := db.ExecContext(ctx, Schema)
	return &Backend{db: db}, errors.Wrap(err, "creating schema")
}

// MkdirAll implements datacache.Backend.
// Directories are only recorded;
// entries can be written whether or not their directory exists.
func (b *Backend) MkdirAll(ctx context.Context, p string) error {
	const q = `INSERT INTO dirs (path) VALUES ($1) ON CONFLICT DO NOTHING`

	for p = path.Clean(p); p != "." && p != "/"; p = path.Dir(p) {
		if _, err := b.db.ExecContext(ctx, q, p); err != nil {
			return errors.Wrapf(err, "recording dir %s", p)
		}
	}
	return nil
}

// Exists implements datacache.Backend.
func (b *Backend) Exists(ctx context.Context, p string) (bool, error) {
	const q = `SELECT COUNT(*) FROM entries WHERE path = $1`

	var n int
	err := b.db.QueryRowContext(ctx, q, path.Clean(p)).Scan(&n)
	return n > 0, errors.Wrapf(err, "checking %s", p)
}

// ReadFile implements datacache.Backend.
func (b *Backend) ReadFile(ctx context.Context, p string) ([]byte, error) {
	const q = `SELECT data FROM entries WHERE path = $1`

	var data []byte
	err := b.db.QueryRowContext(ctx, q, path.Clean(p)).Scan(&data)
	if stderrs.Is(err, sql.ErrNoRows) {
		return nil, datacache.ErrNotFound
	}
	return data, errors.Wrapf(err, "reading %s", p)
}

// WriteFile implements datacache.Backend.
func (b *Backend) WriteFile(ctx context.Context, p string, data []byte) error {
	const q = `INSERT INTO entries (path, data) VALUES ($1, $2) ON CONFLICT (path) DO UPDATE SET data = excluded.data`

	if data == nil {
		data = []byte{}
	}
	_, err := b.db.ExecContext(ctx, q, path.Clean(p), data)
	return errors.Wrapf(err, "writing %s", p)
}

// Paths calls f for the path of each entry beneath dir, in lexicographic order.
func (b *Backend) Paths(ctx context.Context, dir string, f func(string) error) error {
	const q = `SELECT path FROM entries WHERE path > $1 AND path < $2 ORDER BY path`

	prefix := path.Clean(dir) + "/"
	return sqlutil.ForQueryRows(ctx, b.db, q, prefix, prefix+"\xff", f)
}

// Config is the configuration of a "sqlite3" backend.
type Config struct {
	Conn string `mapstructure:"conn"`
}

func init() {
	backend.Register("sqlite3", func(ctx context.Context, conf map[string]interface{}) (datacache.Backend, error) {
		var c Config
		if err := backend.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Conn == "" {
			return nil, errors.New(`missing "conn" parameter`)
		}
		db, err := sql.Open("sqlite3", c.Conn)
		if err != nil {
			return nil, errors.Wrap(err, "opening db")
		}
		return New(ctx, db)
	})
}
