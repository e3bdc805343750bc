package recipe

import (
	"bytes"
	"context"
	"image"
	_ "image/jpeg" // register JPEG for image.Decode
	_ "image/png"  // register PNG for image.Decode
	"strings"
	"sync"
)

// FetchErrorMessage is the List error message after a failed Fetch.
const FetchErrorMessage = "Unable to fetch recipes at this time. Please try again later."

// List holds the state of a recipe list screen.
// It is safe for concurrent use.
type List struct {
	client *Client

	mu           sync.Mutex
	recipes      []Recipe
	loading      bool
	errorMessage string
}

// NewList produces an empty List loading from client.
func NewList(client *Client) *List {
	return &List{client: client}
}

// Fetch loads the recipes.
// On failure the recipes are emptied and ErrorMessage is set.
// The error is returned as well.
func (l *List) Fetch(ctx context.Context) error {
	l.mu.Lock()
	l.loading = true
	l.errorMessage = ""
	l.mu.Unlock()

	recipes, err := l.client.FetchRecipes(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.loading = false
	if err != nil {
		l.recipes = nil
		l.errorMessage = FetchErrorMessage
		return err
	}
	l.recipes = recipes
	return nil
}

// Recipes returns the recipes from the last Fetch.
func (l *List) Recipes() []Recipe {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Recipe(nil), l.recipes...)
}

// Loading tells whether a Fetch is in progress.
func (l *List) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

// ErrorMessage is the message from the last failed Fetch,
// or "" if it succeeded.
func (l *List) ErrorMessage() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errorMessage
}

// Filtered returns the recipes whose names contain search.
// An empty search matches everything.
func (l *List) Filtered(search string) []Recipe {
	return Filter(l.Recipes(), search)
}

// Filter returns the members of recipes whose names contain search.
func Filter(recipes []Recipe, search string) []Recipe {
	if search == "" {
		return recipes
	}
	var result []Recipe
	for _, r := range recipes {
		if strings.Contains(r.Name, search) {
			result = append(result, r)
		}
	}
	return result
}

// LoadImage fetches and decodes the small photo of r.
// It is false if r has no small photo,
// the fetch fails,
// or the bytes are not a JPEG or PNG image.
func (l *List) LoadImage(ctx context.Context, r Recipe) (image.Image, bool) {
	if r.PhotoURLSmall == "" {
		return nil, false
	}
	data, err := l.client.FetchImage(ctx, r.PhotoURLSmall)
	if err != nil {
		l.client.log.WithField("url", r.PhotoURLSmall).WithError(err).Warn("loading image")
		return nil, false
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		l.client.log.WithField("url", r.PhotoURLSmall).WithError(err).Warn("decoding image")
		return nil, false
	}
	return img, true
}
