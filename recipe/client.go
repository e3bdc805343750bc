package recipe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	perrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/datacache"
)

// ErrStatus is wrapped by the errors from responses with a non-2xx status.
var ErrStatus = errors.New("unexpected HTTP status")

// StatusError is the error from a response with a non-2xx status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Code)
}

func (e *StatusError) Is(target error) bool { return target == ErrStatus }

// Client fetches the recipe list and recipe photos.
// Photos go through a datacache.Cache keyed by their URL.
type Client struct {
	hc         *http.Client
	cache      *datacache.Cache
	recipesURL string
	log        logrus.FieldLogger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for all requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.hc = hc
	}
}

// WithRecipesURL sets the URL of the recipe list.
// The default is RecipesURL.
func WithRecipesURL(u string) ClientOption {
	return func(c *Client) {
		c.recipesURL = u
	}
}

// WithLogger sets the logger for cache hits, misses and failures.
func WithLogger(log logrus.FieldLogger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient produces a Client caching photos in cache.
func NewClient(cache *datacache.Cache, opts ...ClientOption) *Client {
	c := &Client{
		hc:         &http.Client{Timeout: 30 * time.Second},
		cache:      cache,
		recipesURL: RecipesURL,
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, perrors.Wrapf(err, "creating request for %s", u)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, perrors.Wrapf(err, "GET %s", u)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: u, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	return body, perrors.Wrapf(err, "reading body of %s", u)
}

// FetchRecipes fetches and decodes the recipe list.
// The list may be empty.
// Decoding failures satisfy errors.Is(err, ErrDecoding).
func (c *Client) FetchRecipes(ctx context.Context) ([]Recipe, error) {
	body, err := c.get(ctx, c.recipesURL)
	if err != nil {
		return nil, err
	}
	recipes, err := Decode(bytes.NewReader(body))
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"action": "fetch_recipes",
			"url":    c.recipesURL,
		}).WithError(err).Error("decoding error")
		return nil, err
	}
	return recipes, nil
}

// FetchImage returns the photo at url,
// from the cache if it is there.
// Otherwise it fetches the photo and caches it.
// A failure to cache the photo is logged, not returned.
func (c *Client) FetchImage(ctx context.Context, url string) ([]byte, error) {
	data, _, err := c.fetchImage(ctx, url)
	return data, err
}

// FetchImageHit is like FetchImage
// but also tells whether the photo came from the cache.
func (c *Client) FetchImageHit(ctx context.Context, url string) ([]byte, bool, error) {
	return c.fetchImage(ctx, url)
}

func (c *Client) fetchImage(ctx context.Context, url string) ([]byte, bool, error) {
	fields := logrus.Fields{
		"action": "fetch_image",
		"url":    url,
	}
	if data, ok := c.cache.Get(ctx, url); ok {
		c.log.WithFields(fields).Info("image fetched from cache")
		return data, true, nil
	}

	data, err := c.get(ctx, url)
	if err != nil {
		return nil, false, err
	}
	c.log.WithFields(fields).Info("image fetched from network, caching it")

	// Cache.Set logs its own failures.
	_ = c.cache.Set(ctx, url, data)

	return data, false, nil
}

// Prefetch fetches the photos at urls into the cache,
// at most concurrency at a time (no limit if concurrency <= 0).
// Empty urls are skipped.
// It stops at the first failed fetch and returns its error.
func (c *Client) Prefetch(ctx context.Context, urls []string, concurrency int) error {
	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for _, u := range urls {
		if u == "" {
			continue
		}
		u := u
		g.Go(func() error {
			_, err := c.FetchImage(ctx, u)
			return err
		})
	}
	return g.Wait()
}
