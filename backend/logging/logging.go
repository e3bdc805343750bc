// Package logging implements a datacache backend that delegates everything to a nested backend,
// logging operations as they happen.
package logging

import (
	"context"
	"errors"

	perrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bobg/datacache"
	"github.com/bobg/datacache/backend"
)

var _ datacache.Backend = &Backend{}

// Backend is a datacache.Backend that logs every call on a nested backend.
// Failures are logged at error level
// and everything else at the Backend's level.
type Backend struct {
	b     datacache.Backend
	log   logrus.FieldLogger
	level logrus.Level
}

// New produces a Backend logging calls on b to log at info level.
// A nil log means the logrus standard logger.
func New(b datacache.Backend, log logrus.FieldLogger) *Backend {
	return NewLevel(b, log, logrus.InfoLevel)
}

// NewLevel is like New but logs successful calls at the given level.
func NewLevel(b datacache.Backend, log logrus.FieldLogger, level logrus.Level) *Backend {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Backend{b: b, log: log, level: level}
}

func (b *Backend) entry(action, path string) *logrus.Entry {
	return b.log.WithFields(logrus.Fields{
		"action": action,
		"path":   path,
	})
}

// MkdirAll implements datacache.Backend.
func (b *Backend) MkdirAll(ctx context.Context, p string) error {
	err := b.b.MkdirAll(ctx, p)
	if err != nil {
		b.entry("mkdir", p).WithError(err).Error("MkdirAll")
	} else {
		b.entry("mkdir", p).Log(b.level, "MkdirAll")
	}
	return err
}

// Exists implements datacache.Backend.
func (b *Backend) Exists(ctx context.Context, p string) (bool, error) {
	ok, err := b.b.Exists(ctx, p)
	if err != nil {
		b.entry("exists", p).WithError(err).Error("Exists")
	} else {
		b.entry("exists", p).WithField("exists", ok).Log(b.level, "Exists")
	}
	return ok, err
}

// ReadFile implements datacache.Backend.
func (b *Backend) ReadFile(ctx context.Context, p string) ([]byte, error) {
	data, err := b.b.ReadFile(ctx, p)
	switch {
	case errors.Is(err, datacache.ErrNotFound):
		b.entry("read", p).Log(b.level, "ReadFile: not found")
	case err != nil:
		b.entry("read", p).WithError(err).Error("ReadFile")
	default:
		b.entry("read", p).WithField("size", len(data)).Log(b.level, "ReadFile")
	}
	return data, err
}

// WriteFile implements datacache.Backend.
func (b *Backend) WriteFile(ctx context.Context, p string, data []byte) error {
	err := b.b.WriteFile(ctx, p, data)
	e := b.entry("write", p).WithField("size", len(data))
	if err != nil {
		e.WithError(err).Error("WriteFile")
	} else {
		e.Log(b.level, "WriteFile")
	}
	return err
}

// Config is the configuration of a "logging" backend.
// Level is a logrus level name for successful calls (default "info").
// Entries go to the logrus standard logger.
type Config struct {
	Level string `mapstructure:"level"`
}

func init() {
	backend.Register("logging", func(ctx context.Context, conf map[string]interface{}) (datacache.Backend, error) {
		var c Config
		if err := backend.Decode(conf, &c); err != nil {
			return nil, err
		}
		level := logrus.InfoLevel
		if c.Level != "" {
			var err error
			if level, err = logrus.ParseLevel(c.Level); err != nil {
				return nil, perrors.Wrapf(err, "parsing level %s", c.Level)
			}
		}
		nested, err := backend.Nested(ctx, conf)
		if err != nil {
			return nil, err
		}
		return NewLevel(nested, nil, level), nil
	})
}
