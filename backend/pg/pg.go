// Package pg implements a datacache backend in a Postgresql database.
package pg

import (
	"context"
	"database/sql"
	stderrs "errors"
	"path"

	_ "github.com/lib/pq" // register the postgres type for sql.Open
	"github.com/pkg/errors"

	"github.com/bobg/datacache"
	"github.com/bobg/datacache/backend"
)

var _ datacache.Backend = &Backend{}

// Backend is a Postgresql-based implementation of datacache.Backend.
type Backend struct {
	db *sql.DB
}

// Schema is the SQL that New executes.
// It creates the `datacache_entries` and `datacache_dirs` tables if they do not exist.
// (If they do exist, they must have the columns and constraints described here.)
const Schema = `
CREATE TABLE IF NOT EXISTS datacache_entries (
  path TEXT PRIMARY KEY NOT NULL,
  data BYTEA NOT NULL
);

CREATE TABLE IF NOT EXISTS datacache_dirs (
  path TEXT PRIMARY KEY NOT NULL
);
`

// New produces a new Backend using `db` for storage.
// (See variable Schema.)
func New(ctx context.Context, db *sql.DB) (*Backend, error) {
	_, err := db.ExecContext(ctx, Schema)
	return &Backend{db: db}, errors.Wrap(err, "creating schema")
}

// MkdirAll implements datacache.Backend.
func (b *Backend) MkdirAll(ctx context.Context, p string) error {
	const q = `INSERT INTO datacache_dirs (path) VALUES ($1) ON CONFLICT DO NOTHING`

	for p = path.Clean(p); p != "." && p != "/"; p = path.Dir(p) {
		if _, err := b.db.ExecContext(ctx, q, p); err != nil {
			return errors.Wrapf(err, "recording dir %s", p)
		}
	}
	return nil
}

// Exists implements datacache.Backend.
func (b *Backend) Exists(ctx context.Context, p string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM datacache_entries WHERE path = $1)`

	var ok bool
	err := b.db.QueryRowContext(ctx, q, path.Clean(p)).Scan(&ok)
	return ok, errors.Wrapf(err, "checking %s", p)
}

// ReadFile implements datacache.Backend.
func (b *Backend) ReadFile(ctx context.Context, p string) ([]byte, error) {
	const q = `SELECT data FROM datacache_entries WHERE path = $1`

	var data []byte
	err := b.db.QueryRowContext(ctx, q, path.Clean(p)).Scan(&data)
	if stderrs.Is(err, sql.ErrNoRows) {
		return nil, datacache.ErrNotFound
	}
	return data, errors.Wrapf(err, "reading %s", p)
}

// WriteFile implements datacache.Backend.
func (b *Backend) WriteFile(ctx context.Context, p string, data []byte) error {
	const q = `INSERT INTO datacache_entries (path, data) VALUES ($1, $2)
		ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data`

	if data == nil {
		data = []byte{}
	}
	_, err := b.db.ExecContext(ctx, q, path.Clean(p), data)
	return errors.Wrapf(err, "writing %s", p)
}

// Config is the configuration of a "pg" backend.
type Config struct {
	Conn string `mapstructure:"conn"`
}

func init() {
	backend.Register("pg", func(ctx context.Context, conf map[string]interface{}) (datacache.Backend, error) {
		var c Config
		if err := backend.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Conn == "" {
			return nil, errors.New(`missing "conn" parameter`)
		}
		db, err := sql.Open("postgres", c.Conn)
		if err != nil {
			return nil, errors.Wrap(err, "opening db")
		}
		return New(ctx, db)
	})
}
