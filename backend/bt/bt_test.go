package bt

import (
	"context"
	"testing"

	"cloud.google.com/go/bigtable"
	"cloud.google.com/go/bigtable/bttest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"

	"github.com/bobg/datacache"
	"github.com/bobg/datacache/testutil"
)

const (
	project  = "datacache-test"
	instance = "datacache-test"
	table    = "entries"
)

func withTestBackend(t *testing.T, f func(context.Context, *Backend)) {
	srv, err := bttest.NewServer("localhost:0")
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Close()

	ctx := context.Background()

	conn, err := grpc.Dial(srv.Addr, grpc.WithInsecure())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	admin, err := bigtable.NewAdminClient(ctx, project, instance, option.WithGRPCConn(conn))
	if err != nil {
		t.Fatal(err)
	}
	if err = admin.CreateTable(ctx, table); err != nil {
		t.Fatal(err)
	}
	if err = admin.CreateColumnFamily(ctx, table, Family); err != nil {
		t.Fatal(err)
	}

	client, err := bigtable.NewClient(ctx, project, instance, option.WithGRPCConn(conn))
	if err != nil {
		t.Fatal(err)
	}

	f(ctx, New(client.Open(table)))
}

func TestBackend(t *testing.T) {
	withTestBackend(t, func(ctx context.Context, b *Backend) {
		testutil.ReadWrite(ctx, t, b, "Documents/DataCache", testutil.Data(100000))
	})
}

func TestCache(t *testing.T) {
	withTestBackend(t, func(ctx context.Context, b *Backend) {
		testutil.Cache(ctx, t, datacache.New(b, "Documents/DataCache"))
	})
}

func TestOverwriteKeepsOneVersion(t *testing.T) {
	withTestBackend(t, func(ctx context.Context, b *Backend) {
		for _, s := range []string{"one", "two", "three"} {
			if err := b.WriteFile(ctx, "x", []byte(s)); err != nil {
				t.Fatal(err)
			}
		}
		row, err := b.t.ReadRow(ctx, entryKey("x"))
		if err != nil {
			t.Fatal(err)
		}
		items := row[Family]
		if len(items) != 1 {
			t.Fatalf("got %d cells, want 1", len(items))
		}
		if string(items[0].Value) != "three" {
			t.Errorf("got %q, want three", items[0].Value)
		}
	})
}
