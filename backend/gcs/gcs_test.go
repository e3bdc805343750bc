package gcs

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"testing"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/bobg/datacache"
	"github.com/bobg/datacache/testutil"
)

func TestObjName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"DataCache/abc", "DataCache/abc"},
		{"/DataCache/abc", "DataCache/abc"},
		{"DataCache//x/../abc", "DataCache/abc"},
	}
	for _, tc := range cases {
		if got := objName(tc.in); got != tc.want {
			t.Errorf("objName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

const (
	credsVar = "DATACACHE_GCS_TESTING_CREDS"
	projVar  = "DATACACHE_GCS_TESTING_PROJECT"
)

func TestBackend(t *testing.T) {
	var (
		creds     = os.Getenv(credsVar)
		projectID = os.Getenv(projVar)
	)
	if creds == "" || projectID == "" {
		t.Skipf("to run TestBackend, set %s to the name of a credentials file and %s to a project ID", credsVar, projVar)
	}

	var r [30]byte
	if _, err := rand.Read(r[:]); err != nil {
		t.Fatal(err)
	}
	bucketName := hex.EncodeToString(r[:])

	ctx := context.Background()

	client, err := storage.NewClient(ctx, option.WithCredentialsFile(creds))
	if err != nil {
		t.Fatal(err)
	}

	t.Logf("creating bucket %s in project %s", bucketName, projectID)

	bucket := client.Bucket(bucketName)
	if err = bucket.Create(ctx, projectID, nil); err != nil {
		t.Fatal(err)
	}
	defer bucket.Delete(ctx)

	b := New(bucket)
	testutil.ReadWrite(ctx, t, b, "readwrite", testutil.Data(100000))
	testutil.Cache(ctx, t, datacache.New(b, "DataCache"))
}
