package testutil

import (
	"context"
	"testing"

	"github.com/bobg/datacache"
)

// Cache checks the behavior of a Cache over whatever backend it has:
// round trips, overwrites, misses and independent keys.
func Cache(ctx context.Context, t *testing.T, c *datacache.Cache) {
	t.Helper()

	const (
		key   = "https://example.com/image.jpg"
		other = "https://example.com/other.jpg"
	)

	if _, ok := c.Get(ctx, "https://example.com/never-set.jpg"); ok {
		t.Fatal("got a hit for a key never set")
	}

	small := Data(100)
	if err := c.Set(ctx, key, small); err != nil {
		t.Fatal(err)
	}
	got, ok := c.Get(ctx, key)
	if !ok {
		t.Fatalf("miss after setting %s", key)
	}
	checkSame(t, got, small)

	if err := c.Set(ctx, key, small); err != nil {
		t.Fatal(err)
	}
	got, ok = c.Get(ctx, key)
	if !ok {
		t.Fatalf("miss after setting %s twice", key)
	}
	checkSame(t, got, small)

	replacement := []byte("replacement")
	if err := c.Set(ctx, key, replacement); err != nil {
		t.Fatal(err)
	}
	got, ok = c.Get(ctx, key)
	if !ok {
		t.Fatalf("miss after overwriting %s", key)
	}
	checkSame(t, got, replacement)

	large := Data(1000000)
	if err := c.Set(ctx, other, large); err != nil {
		t.Fatal(err)
	}
	got, ok = c.Get(ctx, other)
	if !ok {
		t.Fatalf("miss after setting %s", other)
	}
	checkSame(t, got, large)

	got, ok = c.Get(ctx, key)
	if !ok {
		t.Fatalf("miss for %s after setting %s", key, other)
	}
	checkSame(t, got, replacement)

	if !c.Contains(ctx, key) {
		t.Errorf("cache does not contain %s", key)
	}
}
