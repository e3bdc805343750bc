package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/bobg/datacache"
	"github.com/bobg/datacache/backend"
	"github.com/bobg/datacache/recipe"
)

// Config is the datacache command's configuration.
type Config struct {
	Root          string                 `mapstructure:"root"`
	Backend       map[string]interface{} `mapstructure:"backend"`
	LogLevel      string                 `mapstructure:"log_level"`
	LogFile       string                 `mapstructure:"log_file"`
	LogMaxSize    int                    `mapstructure:"log_max_size"`
	LogMaxBackups int                    `mapstructure:"log_max_backups"`
	LogCompress   bool                   `mapstructure:"log_compress"`
	RecipesURL    string                 `mapstructure:"recipes_url"`
	HTTPTimeout   time.Duration          `mapstructure:"http_timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("root", "DataCache")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("log_max_size", 100)
	v.SetDefault("log_max_backups", 10)
	v.SetDefault("log_compress", true)
	v.SetDefault("recipes_url", recipe.RecipesURL)
	v.SetDefault("http_timeout", "30s")
}

// loadConfig reads the config file at path, if there is one,
// with DATACACHE_-prefixed environment variables taking precedence.
// With no backend configured,
// the cache lives in the file backend under the user cache directory.
func loadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("datacache")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", path)
		}
	}

	var conf Config
	err := v.Unmarshal(&conf, viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc()))
	if err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}

	if len(conf.Backend) == 0 {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, errors.Wrap(err, "locating user cache dir")
		}
		conf.Backend = map[string]interface{}{
			"type": "file",
			"base": base,
		}
	}
	if conf.HTTPTimeout <= 0 {
		conf.HTTPTimeout = 30 * time.Second
	}

	return &conf, nil
}

// newLogger builds a JSON logger writing to stderr,
// or to a rotated log file if one is configured,
// and configures the logrus standard logger the same way.
func newLogger(conf *Config) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(conf.LogLevel)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing log level %s", conf.LogLevel)
	}

	output, outErr := logOutput(conf)
	if outErr != nil {
		fmt.Fprintf(os.Stderr, "logger_fallback: %v\n", outErr)
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetOutput(output)
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})

	// Backends built from config, such as "logging", use the standard logger.
	logrus.SetFormatter(logger.Formatter)
	logrus.SetOutput(logger.Out)
	logrus.SetLevel(logger.GetLevel())

	if outErr != nil {
		logger.WithFields(logrus.Fields{
			"action": "logger_fallback",
			"path":   conf.LogFile,
		}).Warn(outErr.Error())
	}

	return logger, nil
}

func logOutput(conf *Config) (io.Writer, error) {
	if conf.LogFile == "" {
		return os.Stderr, nil
	}
	dir := filepath.Dir(conf.LogFile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return os.Stderr, errors.Wrapf(err, "creating log dir %s", dir)
	}
	return &lumberjack.Logger{
		Filename:   conf.LogFile,
		MaxSize:    conf.LogMaxSize,
		MaxBackups: conf.LogMaxBackups,
		Compress:   conf.LogCompress,
		LocalTime:  true,
	}, nil
}

func newCache(ctx context.Context, conf *Config, log logrus.FieldLogger) (*datacache.Cache, error) {
	b, err := backend.FromConfig(ctx, conf.Backend)
	if err != nil {
		return nil, errors.Wrap(err, "creating backend")
	}
	return datacache.New(b, conf.Root, datacache.WithLogger(log), datacache.WithContext(ctx)), nil
}
