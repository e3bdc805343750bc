package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bobg/datacache"
	"github.com/bobg/datacache/testutil"
)

func TestBackend(t *testing.T) {
	testutil.ReadWrite(context.Background(), t, New(t.TempDir()), "cache", testutil.Data(100000))
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := datacache.New(New(dir), "nested/DataCache")
	if err := c.Err(); err != nil {
		t.Fatal(err)
	}
	testutil.Cache(ctx, t, c)

	entries, err := os.ReadDir(filepath.Join(dir, "nested", "DataCache"))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if _, err := datacache.ParseToken(e.Name()); err != nil {
			t.Errorf("unexpected file %s in cache dir", e.Name())
		}
	}
	if len(entries) != 2 {
		t.Errorf("got %d entries, want 2", len(entries))
	}
}

func TestAbsolutePath(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := New("/does/not/matter")

	p := filepath.ToSlash(filepath.Join(dir, "abs"))
	if err := b.WriteFile(ctx, p, []byte("abs")); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "abs"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "abs" {
		t.Errorf("got %q, want abs", got)
	}
}

func TestDirectoryIsNotAnEntry(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := New(dir)

	if err := b.MkdirAll(ctx, "root/sub"); err != nil {
		t.Fatal(err)
	}
	ok, err := b.Exists(ctx, "root/sub")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("directory reported as existing entry")
	}
	if _, err := b.ReadFile(ctx, "root/sub"); !errors.Is(err, datacache.ErrNotFound) {
		t.Errorf("got %v reading a directory, want ErrNotFound", err)
	}
}

func TestGetCreatesNothing(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := datacache.New(New(dir), "DataCache")

	if _, ok := c.Get(ctx, "https://example.com/missing.jpg"); ok {
		t.Fatal("unexpected hit")
	}
	entries, err := os.ReadDir(filepath.Join(dir, "DataCache"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries after a miss, want 0", len(entries))
	}
}

func TestExternalRemoval(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := datacache.New(New(dir), "DataCache")

	const (
		k1 = "https://example.com/one.jpg"
		k2 = "https://example.com/two.jpg"
	)
	if err := c.Set(ctx, k1, []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, k2, []byte("two")); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(filepath.Join(dir, filepath.FromSlash(c.Path(k1)))); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Get(ctx, k1); ok {
		t.Error("hit for removed entry")
	}
	got, ok := c.Get(ctx, k2)
	if !ok {
		t.Fatal("miss for untouched entry")
	}
	if string(got) != "two" {
		t.Errorf("got %q, want two", got)
	}
}

func TestUnavailableRoot(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	// A regular file where the cache root should be.
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}

	c := datacache.New(New(dir), "blocker/DataCache")
	if !errors.Is(c.Err(), datacache.ErrStorageUnavailable) {
		t.Fatalf("got %v, want ErrStorageUnavailable", c.Err())
	}

	err := c.Set(ctx, "k", []byte("v"))
	if !errors.Is(err, datacache.ErrWriteFailed) {
		t.Errorf("got %v, want ErrWriteFailed", err)
	}
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("unexpected hit")
	}
}

func TestEmptyRoot(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	t.Chdir(dir)

	for _, root := range []string{"", "."} {
		c := datacache.New(New(""), root)
		if err := c.Err(); err != nil {
			t.Fatalf("root %q: %s", root, err)
		}
		if err := c.Set(ctx, "k", []byte("v")); err != nil {
			t.Fatalf("root %q: %s", root, err)
		}
		if got, ok := c.Get(ctx, "k"); !ok || string(got) != "v" {
			t.Errorf("root %q: got %q, %v", root, got, ok)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, string(datacache.Digest("k")))); err != nil {
		t.Errorf("entry not in working directory: %s", err)
	}

	c := datacache.New(New(dir), "")
	if err := c.Err(); err != nil {
		t.Errorf("empty root under base: %s", err)
	}
}
