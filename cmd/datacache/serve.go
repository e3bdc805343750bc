package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bobg/datacache/server"
)

func (c maincmd) serve(ctx context.Context, addr string, _ []string) error {
	app, err := server.New(server.Options{
		Logger: c.log,
		Cache:  c.cache,
		Client: c.client(""),
	})
	if err != nil {
		return errors.Wrap(err, "creating server")
	}

	go func() {
		<-ctx.Done()
		_ = app.Shutdown()
	}()

	c.log.WithFields(logrus.Fields{
		"action": "listen",
		"addr":   addr,
		"root":   c.cache.Root(),
	}).Info("serving")

	return app.Listen(addr)
}
