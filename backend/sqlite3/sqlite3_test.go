package sqlite3

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bobg/datacache"
	"github.com/bobg/datacache/testutil"
)

func TestBackend(t *testing.T) {
	ctx := context.Background()
	withTestBackend(ctx, t, func(b *Backend) {
		testutil.ReadWrite(ctx, t, b, "cache", testutil.Data(100000))
	})
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	withTestBackend(ctx, t, func(b *Backend) {
		c := datacache.New(b, "DataCache")
		testutil.Cache(ctx, t, c)

		var got []string
		err := b.Paths(ctx, "DataCache", func(p string) error {
			got = append(got, p)
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		want := []string{c.Path("https://example.com/image.jpg"), c.Path("https://example.com/other.jpg")}
		if want[0] > want[1] {
			want[0], want[1] = want[1], want[0]
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestEmptyBlob(t *testing.T) {
	ctx := context.Background()
	withTestBackend(ctx, t, func(b *Backend) {
		c := datacache.New(b, "DataCache")
		if err := c.Set(ctx, "empty", nil); err != nil {
			t.Fatal(err)
		}
		got, ok := c.Get(ctx, "empty")
		if !ok {
			t.Fatal("miss for empty blob")
		}
		if len(got) != 0 {
			t.Errorf("got %d bytes, want 0", len(got))
		}
	})
}

func withTestBackend(ctx context.Context, t *testing.T, fn func(*Backend)) {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "datacache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	b, err := New(ctx, db)
	if err != nil {
		t.Fatal(err)
	}

	fn(b)
}
