// Package server is an HTTP front end for a recipe client and its photo cache.
package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bobg/datacache"
	"github.com/bobg/datacache/recipe"
)

// HitHeader tells whether an /image response came from the cache.
const HitHeader = "X-Datacache-Hit"

const contextKeyRequestID = "_datacache_request_id"

// Options configures New.
type Options struct {
	Logger *logrus.Logger
	Cache  *datacache.Cache
	Client *recipe.Client
}

// New builds the Fiber application.
func New(opts Options) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Cache == nil {
		return nil, errors.New("cache is required")
	}
	if opts.Client == nil {
		return nil, errors.New("recipe client is required")
	}

	s := &server{
		log:    opts.Logger,
		cache:  opts.Cache,
		client: opts.Client,
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(s.requestContext)

	app.Get("/recipes", s.handleRecipes)
	app.Get("/image", s.handleImage)
	app.Get("/-/token", s.handleToken)
	app.Get("/-/healthz", s.handleHealthz)

	return app, nil
}

type server struct {
	log    *logrus.Logger
	cache  *datacache.Cache
	client *recipe.Client
}

// requestContext assigns each request an ID and logs it on completion.
func (s *server) requestContext(c fiber.Ctx) error {
	reqID := uuid.NewString()
	c.Locals(contextKeyRequestID, reqID)
	c.Set("X-Request-ID", reqID)

	started := time.Now()
	err := c.Next()

	s.log.WithFields(logrus.Fields{
		"action":     "request",
		"request_id": reqID,
		"method":     c.Method(),
		"path":       c.Path(),
		"status":     c.Response().StatusCode(),
		"elapsed_ms": time.Since(started).Milliseconds(),
	}).Info("request served")

	return err
}

// RequestID returns the identifier assigned to the request.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

func (s *server) handleRecipes(c fiber.Ctx) error {
	recipes, err := s.client.FetchRecipes(c.Context())
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"action":     "fetch_recipes",
			"request_id": RequestID(c),
		}).WithError(err).Warn("upstream unavailable")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "upstream_unavailable"})
	}
	recipes = recipe.Filter(recipes, c.Query("search"))
	if recipes == nil {
		recipes = []recipe.Recipe{}
	}
	return c.JSON(recipes)
}

func (s *server) handleImage(c fiber.Ctx) error {
	u := strings.TrimSpace(c.Query("url"))
	if u == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "url_required"})
	}

	data, hit, err := s.client.FetchImageHit(c.Context(), u)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"action":     "fetch_image",
			"request_id": RequestID(c),
			"url":        u,
		}).WithError(err).Warn("upstream unavailable")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "upstream_unavailable"})
	}

	c.Set(HitHeader, strconv.FormatBool(hit))
	c.Set(fiber.HeaderContentType, http.DetectContentType(data))
	return c.Send(data)
}

func (s *server) handleToken(c fiber.Ctx) error {
	key := c.Query("key")
	return c.JSON(fiber.Map{
		"key":   key,
		"token": datacache.Digest(key).String(),
		"path":  s.cache.Path(key),
	})
}

func (s *server) handleHealthz(c fiber.Ctx) error {
	if err := s.cache.Err(); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "storage_unavailable",
			"root":   s.cache.Root(),
			"error":  err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "ok", "root": s.cache.Root()})
}
