// Package s3 implements a datacache backend on Amazon S3
// or an S3-compatible object store.
package s3

import (
	"bytes"
	"context"
	stderrs "errors"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"

	"github.com/bobg/datacache"
	"github.com/bobg/datacache/backend"
)

var _ datacache.Backend = &Backend{}

// Backend is an S3-based implementation of datacache.Backend.
// Each entry is an object whose key is the entry's path.
type Backend struct {
	client *s3.Client
	bucket string
}

// New produces a new Backend storing objects in bucket.
func New(client *s3.Client, bucket string) *Backend {
	return &Backend{client: client, bucket: bucket}
}

func objKey(p string) string {
	return strings.TrimPrefix(path.Clean(p), "/")
}

// MkdirAll implements datacache.Backend.
// Buckets have no directories, so it does nothing.
func (b *Backend) MkdirAll(context.Context, string) error {
	return nil
}

// Exists implements datacache.Backend.
func (b *Backend) Exists(ctx context.Context, p string) (bool, error) {
	key := objKey(p)
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "getting head of object %s", key)
	}
	return true, nil
}

// ReadFile implements datacache.Backend.
func (b *Backend) ReadFile(ctx context.Context, p string) ([]byte, error) {
	key := objKey(p)
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		return nil, datacache.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "getting object %s", key)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	return data, errors.Wrapf(err, "reading contents of object %s", key)
}

// WriteFile implements datacache.Backend.
func (b *Backend) WriteFile(ctx context.Context, p string, data []byte) error {
	key := objKey(p)
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	return errors.Wrapf(err, "putting object %s", key)
}

func isNotFound(err error) bool {
	var (
		nsk *types.NoSuchKey
		nf  *types.NotFound
	)
	return stderrs.As(err, &nsk) || stderrs.As(err, &nf)
}

// Config is the configuration of an "s3" backend.
// Empty fields fall back to the usual AWS environment and shared config chain.
type Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Profile   string `mapstructure:"profile"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path_style"`
}

// NewFromConfig loads AWS configuration according to c
// and produces a Backend for c.Bucket.
func NewFromConfig(ctx context.Context, c Config) (*Backend, error) {
	if c.Bucket == "" {
		return nil, errors.New(`missing "bucket" parameter`)
	}

	var loadOpts []func(*config.LoadOptions) error
	if c.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(c.Profile))
	}
	if c.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(c.Region))
	}
	awsConf, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS config")
	}

	client := s3.NewFromConfig(awsConf, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
		o.UsePathStyle = c.PathStyle
	})
	return New(client, c.Bucket), nil
}

func init() {
	backend.Register("s3", func(ctx context.Context, conf map[string]interface{}) (datacache.Backend, error) {
		var c Config
		if err := backend.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewFromConfig(ctx, c)
	})
}
