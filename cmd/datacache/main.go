// Command datacache is a CLI interface to a datacache and the recipe client built on it.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/bobg/subcmd"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bobg/datacache"
	_ "github.com/bobg/datacache/backend/bt"
	_ "github.com/bobg/datacache/backend/compress"
	_ "github.com/bobg/datacache/backend/file"
	_ "github.com/bobg/datacache/backend/gcs"
	_ "github.com/bobg/datacache/backend/logging"
	_ "github.com/bobg/datacache/backend/lru"
	_ "github.com/bobg/datacache/backend/mem"
	_ "github.com/bobg/datacache/backend/multi"
	_ "github.com/bobg/datacache/backend/pg"
	_ "github.com/bobg/datacache/backend/s3"
	_ "github.com/bobg/datacache/backend/sqlite3"
	"github.com/bobg/datacache/recipe"
)

type maincmd struct {
	conf   *Config
	log    *logrus.Logger
	cache  *datacache.Cache
	stdin  io.Reader
	stdout io.Writer
}

func main() {
	config := flag.String("config", "", "path to config file (json, toml or yaml)")
	flag.Parse()

	conf, err := loadConfig(*config)
	if err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(conf)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	cache, err := newCache(ctx, conf, logger)
	if err != nil {
		log.Fatal(err)
	}

	c := maincmd{
		conf:   conf,
		log:    logger,
		cache:  cache,
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
	if err = subcmd.Run(ctx, c, flag.Args()); err != nil {
		log.Fatal(err)
	}
}

func (c maincmd) Subcmds() subcmd.Map {
	return subcmd.Commands(
		"digest", c.digest, nil,
		"get", c.get, subcmd.Params(
			"key", subcmd.String, "", "lookup key",
		),
		"set", c.set, subcmd.Params(
			"key", subcmd.String, "", "lookup key",
		),
		"recipes", c.recipes, subcmd.Params(
			"search", subcmd.String, "", "show only recipes whose names contain this",
			"url", subcmd.String, "", "recipe list URL (default from config)",
		),
		"image", c.image, subcmd.Params(
			"url", subcmd.String, "", "photo URL",
		),
		"serve", c.serve, subcmd.Params(
			"addr", subcmd.String, ":8080", "listen address",
		),
	)
}

func (c maincmd) client(recipesURL string) *recipe.Client {
	if recipesURL == "" {
		recipesURL = c.conf.RecipesURL
	}
	return recipe.NewClient(c.cache,
		recipe.WithHTTPClient(&http.Client{Timeout: c.conf.HTTPTimeout}),
		recipe.WithRecipesURL(recipesURL),
		recipe.WithLogger(c.log),
	)
}

func (c maincmd) digest(_ context.Context, args []string) error {
	for _, key := range args {
		fmt.Fprintf(c.stdout, "%s %s\n", datacache.Digest(key), key)
	}
	return nil
}

func (c maincmd) get(ctx context.Context, key string, _ []string) error {
	if key == "" {
		return errors.New("missing -key")
	}

	data, ok := c.cache.Get(ctx, key)
	if !ok {
		return fmt.Errorf("%s: not in cache", key)
	}
	_, err := c.stdout.Write(data)
	return errors.Wrap(err, "writing blob to stdout")
}

func (c maincmd) set(ctx context.Context, key string, _ []string) error {
	if key == "" {
		return errors.New("missing -key")
	}

	data, err := io.ReadAll(c.stdin)
	if err != nil {
		return errors.Wrap(err, "reading stdin")
	}
	if err = c.cache.Set(ctx, key, data); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "%s\n", c.cache.Path(key))
	return nil
}

func (c maincmd) recipes(ctx context.Context, search, u string, _ []string) error {
	l := recipe.NewList(c.client(u))
	if err := l.Fetch(ctx); err != nil {
		return errors.Wrap(err, l.ErrorMessage())
	}
	for _, r := range l.Filtered(search) {
		fmt.Fprintf(c.stdout, "%s\t%s\t%s\n", r.ID, r.Cuisine, strings.TrimSpace(r.Name))
	}
	return nil
}

func (c maincmd) image(ctx context.Context, u string, _ []string) error {
	if u == "" {
		return errors.New("missing -url")
	}

	data, err := c.client("").FetchImage(ctx, u)
	if err != nil {
		return errors.Wrapf(err, "fetching %s", u)
	}
	_, err = c.stdout.Write(data)
	return errors.Wrap(err, "writing image to stdout")
}
