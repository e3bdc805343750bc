// Package recipe fetches a remote recipe list
// and fetches recipe photos through a datacache.Cache.
package recipe

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Endpoints serving the recipe list.
// MalformedURL and EmptyURL serve broken and empty lists for exercising error handling.
const (
	RecipesURL   = "https://d3jbb8n5wk0qxi.cloudfront.net/recipes.json"
	MalformedURL = "https://d3jbb8n5wk0qxi.cloudfront.net/recipes-malformed.json"
	EmptyURL     = "https://d3jbb8n5wk0qxi.cloudfront.net/recipes-empty.json"
)

// Recipe is one entry in the recipe list.
// The URL fields are empty when the list omits them.
type Recipe struct {
	ID            uuid.UUID `json:"uuid"`
	Cuisine       string    `json:"cuisine"`
	Name          string    `json:"name"`
	PhotoURLLarge string    `json:"photo_url_large,omitempty"`
	PhotoURLSmall string    `json:"photo_url_small,omitempty"`
	SourceURL     string    `json:"source_url,omitempty"`
	YoutubeURL    string    `json:"youtube_url,omitempty"`
}

// ErrDecoding is wrapped by the errors Decode returns.
var ErrDecoding = errors.New("decoding error")

// DecodeError is the error from a recipe list that cannot be decoded.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding recipes: %s", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecoding }

// The wire forms use pointers to tell missing fields from empty ones.
type (
	wireResponse struct {
		Recipes *[]wireRecipe `json:"recipes"`
	}

	wireRecipe struct {
		ID            *uuid.UUID `json:"uuid"`
		Cuisine       *string    `json:"cuisine"`
		Name          *string    `json:"name"`
		PhotoURLLarge *string    `json:"photo_url_large"`
		PhotoURLSmall *string    `json:"photo_url_small"`
		SourceURL     *string    `json:"source_url"`
		YoutubeURL    *string    `json:"youtube_url"`
	}
)

// Decode reads a recipe list: a JSON object with a "recipes" array.
// Each recipe must have a uuid, a cuisine and a name;
// the URL fields are optional.
// An empty array is a valid, empty list.
// Any other shape yields an error satisfying errors.Is(err, ErrDecoding).
func Decode(r io.Reader) ([]Recipe, error) {
	var resp wireResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if resp.Recipes == nil {
		return nil, &DecodeError{Err: errors.New(`missing "recipes"`)}
	}

	result := make([]Recipe, 0, len(*resp.Recipes))
	for i, w := range *resp.Recipes {
		switch {
		case w.ID == nil:
			return nil, &DecodeError{Err: fmt.Errorf(`recipe %d: missing "uuid"`, i)}
		case w.Cuisine == nil:
			return nil, &DecodeError{Err: fmt.Errorf(`recipe %d: missing "cuisine"`, i)}
		case w.Name == nil:
			return nil, &DecodeError{Err: fmt.Errorf(`recipe %d: missing "name"`, i)}
		}
		result = append(result, Recipe{
			ID:            *w.ID,
			Cuisine:       *w.Cuisine,
			Name:          *w.Name,
			PhotoURLLarge: deref(w.PhotoURLLarge),
			PhotoURLSmall: deref(w.PhotoURLSmall),
			SourceURL:     deref(w.SourceURL),
			YoutubeURL:    deref(w.YoutubeURL),
		})
	}
	return result, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
