package pg

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/bobg/datacache"
	"github.com/bobg/datacache/testutil"
)

func TestBackend(t *testing.T) {
	withBackend(t, func(ctx context.Context, b *Backend) {
		testutil.ReadWrite(ctx, t, b, uniqueRoot(), testutil.Data(100000))
	})
}

func TestCache(t *testing.T) {
	withBackend(t, func(ctx context.Context, b *Backend) {
		testutil.Cache(ctx, t, datacache.New(b, uniqueRoot()))
	})
}

const connVar = "DATACACHE_PG_TESTING_CONN"

func withBackend(t *testing.T, f func(context.Context, *Backend)) {
	connstr := os.Getenv(connVar)
	if connstr == "" {
		t.Skipf("to run %s, set %s to a valid Postgresql connection string", t.Name(), connVar)
	}

	db, err := sql.Open("postgres", connstr)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	b, err := New(ctx, db)
	if err != nil {
		t.Fatal(err)
	}

	f(ctx, b)
}

// Tables outlive test runs, so each test works beneath a fresh root.
func uniqueRoot() string {
	return fmt.Sprintf("test-%d", time.Now().UnixNano())
}
