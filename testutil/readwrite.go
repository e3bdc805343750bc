// Package testutil holds checks shared by the tests of datacache backends.
package testutil

import (
	"bytes"
	"context"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/bobg/datacache"
)

// ReadWrite permits testing a Backend implementation
// by writing data beneath root,
// then reading it back out to make sure it's the same.
// It also checks misses, existence and overwriting.
func ReadWrite(ctx context.Context, t *testing.T, b datacache.Backend, root string, data []byte) {
	t.Helper()

	if err := b.MkdirAll(ctx, root); err != nil {
		t.Fatal(err)
	}
	if err := b.MkdirAll(ctx, root); err != nil {
		t.Fatalf("second MkdirAll: %s", err)
	}

	p := path.Join(root, string(datacache.Digest("readwrite")))

	if _, err := b.ReadFile(ctx, p); !errors.Is(err, datacache.ErrNotFound) {
		t.Fatalf("got %v reading missing entry, want ErrNotFound", err)
	}
	ok, err := b.Exists(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("missing entry exists")
	}

	t1 := time.Now()
	if err = b.WriteFile(ctx, p, data); err != nil {
		t.Fatal(err)
	}
	t.Logf("wrote %d bytes in %s", len(data), time.Since(t1))

	ok, err = b.Exists(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("written entry does not exist")
	}

	t2 := time.Now()
	got, err := b.ReadFile(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("read %d bytes in %s", len(got), time.Since(t2))

	checkSame(t, got, data)

	replacement := []byte("replacement")
	if err = b.WriteFile(ctx, p, replacement); err != nil {
		t.Fatal(err)
	}
	got, err = b.ReadFile(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	checkSame(t, got, replacement)
}

func checkSame(t *testing.T, got, want []byte) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("got length %d, want %d", len(got), len(want))
	}
	if !bytes.Equal(got, want) {
		for i := 0; i < len(got); i++ {
			if got[i] != want[i] {
				t.Fatalf("mismatch at position %d (of %d)", i, len(got))
			}
		}
	}
}

// Data returns n bytes of 0xFF.
func Data(n int) []byte {
	return bytes.Repeat([]byte{0xFF}, n)
}
