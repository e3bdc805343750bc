package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/bobg/datacache"
	"github.com/bobg/datacache/backend/mem"
	"github.com/bobg/datacache/recipe"
)

const recipesJSON = `{"recipes": [
  {"cuisine": "British", "name": "Apple & Blackberry Crumble", "uuid": "599344f4-3c5c-4cca-b914-2210e3b3312f"},
  {"cuisine": "Malaysian", "name": "Apam Balik", "uuid": "0c6ca6e7-e32a-4053-b824-1dbf749910d8"},
  {"cuisine": "American", "name": "Apple Frangipan Tart", "uuid": "74f6d4eb-da50-4901-94d1-deae2d8af1d1"}
]}`

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000")

type testServer struct {
	app      *fiber.App
	upstream *httptest.Server
	requests int32
}

func newTestServer(t *testing.T, b datacache.Backend) *testServer {
	t.Helper()

	ts := &testServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/recipes.json", func(w http.ResponseWriter, req *http.Request) {
		atomic.AddInt32(&ts.requests, 1)
		io.WriteString(w, recipesJSON)
	})
	mux.HandleFunc("/small.png", func(w http.ResponseWriter, req *http.Request) {
		atomic.AddInt32(&ts.requests, 1)
		w.Write(pngHeader)
	})
	ts.upstream = httptest.NewServer(mux)
	t.Cleanup(ts.upstream.Close)

	log, _ := test.NewNullLogger()
	cache := datacache.New(b, "DataCache", datacache.WithLogger(log))
	client := recipe.NewClient(cache,
		recipe.WithHTTPClient(ts.upstream.Client()),
		recipe.WithRecipesURL(ts.upstream.URL+"/recipes.json"),
		recipe.WithLogger(log),
	)

	app, err := New(Options{Logger: log, Cache: cache, Client: client})
	if err != nil {
		t.Fatal(err)
	}
	ts.app = app
	return ts
}

func (ts *testServer) get(t *testing.T, target string) (*http.Response, []byte) {
	t.Helper()
	resp, err := ts.app.Test(httptest.NewRequest("GET", target, nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

func TestNewRequiresOptions(t *testing.T) {
	log, _ := test.NewNullLogger()
	if _, err := New(Options{Logger: log}); err == nil {
		t.Error("no error without cache and client")
	}
	if _, err := New(Options{}); err == nil {
		t.Error("no error without logger")
	}
}

func TestRecipes(t *testing.T) {
	ts := newTestServer(t, mem.New())

	cases := []struct {
		target string
		want   []string
	}{
		{"/recipes", []string{"Apple & Blackberry Crumble", "Apam Balik", "Apple Frangipan Tart"}},
		{"/recipes?search=Apple", []string{"Apple & Blackberry Crumble", "Apple Frangipan Tart"}},
		{"/recipes?search=Pizza", []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.target, func(t *testing.T) {
			resp, body := ts.get(t, tc.target)
			if resp.StatusCode != fiber.StatusOK {
				t.Fatalf("got status %d (body=%s)", resp.StatusCode, body)
			}
			if resp.Header.Get("X-Request-ID") == "" {
				t.Error("no X-Request-ID")
			}
			var recipes []recipe.Recipe
			if err := json.Unmarshal(body, &recipes); err != nil {
				t.Fatal(err)
			}
			got := []string{}
			for _, r := range recipes {
				got = append(got, r.Name)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRecipesUpstreamFailure(t *testing.T) {
	ts := newTestServer(t, mem.New())
	ts.upstream.Close()

	resp, body := ts.get(t, "/recipes")
	if resp.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("got status %d, want 502", resp.StatusCode)
	}
	if !bytes.Contains(body, []byte(`"upstream_unavailable"`)) {
		t.Errorf("got body %s", body)
	}
}

func TestImage(t *testing.T) {
	m := mem.New()
	ts := newTestServer(t, m)
	target := "/image?url=" + url.QueryEscape(ts.upstream.URL+"/small.png")

	for i, wantHit := range []string{"false", "true"} {
		resp, body := ts.get(t, target)
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("request %d: got status %d (body=%s)", i, resp.StatusCode, body)
		}
		if got := resp.Header.Get(HitHeader); got != wantHit {
			t.Errorf("request %d: got %s %s, want %s", i, HitHeader, got, wantHit)
		}
		if got := resp.Header.Get("Content-Type"); got != "image/png" {
			t.Errorf("request %d: got content type %s", i, got)
		}
		if !bytes.Equal(body, pngHeader) {
			t.Errorf("request %d: got body %q", i, body)
		}
	}
	if n := atomic.LoadInt32(&ts.requests); n != 1 {
		t.Errorf("got %d upstream requests, want 1", n)
	}
	if m.Len() != 1 {
		t.Errorf("got %d cache entries, want 1", m.Len())
	}
}

func TestImageErrors(t *testing.T) {
	ts := newTestServer(t, mem.New())

	resp, body := ts.get(t, "/image")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("got status %d without url, want 400 (body=%s)", resp.StatusCode, body)
	}

	resp, body = ts.get(t, "/image?url="+url.QueryEscape(ts.upstream.URL+"/missing.png"))
	if resp.StatusCode != fiber.StatusBadGateway {
		t.Errorf("got status %d for missing image, want 502 (body=%s)", resp.StatusCode, body)
	}
}

func TestToken(t *testing.T) {
	ts := newTestServer(t, mem.New())

	resp, body := ts.get(t, "/-/token?key=abc")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("got status %d", resp.StatusCode)
	}
	var got map[string]string
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"key":   "abc",
		"token": "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		"path":  "DataCache/ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

type noDirs struct {
	*mem.Backend
}

func (noDirs) MkdirAll(context.Context, string) error {
	return errors.New("permission denied")
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, mem.New())
	resp, body := ts.get(t, "/-/healthz")
	if resp.StatusCode != fiber.StatusOK || !bytes.Contains(body, []byte(`"ok"`)) {
		t.Errorf("got status %d, body %s", resp.StatusCode, body)
	}

	ts = newTestServer(t, noDirs{mem.New()})
	resp, body = ts.get(t, "/-/healthz")
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Errorf("got status %d, want 503", resp.StatusCode)
	}
	if !bytes.Contains(body, []byte(`"storage_unavailable"`)) {
		t.Errorf("got body %s", body)
	}
}
