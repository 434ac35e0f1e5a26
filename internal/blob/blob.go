// Package blob stores uploaded media in an S3-compatible object store and
// hands back publicly retrievable URLs. Uploaded objects are marked
// public-read so anyone holding the link can view the file.
package blob

import (
	"context"
	"fmt"
	"time"
)

// Store is the sink for decoded upload payloads.
type Store interface {
	// Enabled reports whether the sink is configured to accept uploads.
	Enabled() bool
	// Upload persists data under the given object name and content type and
	// returns the public URL of the stored object.
	Upload(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// Config declares the S3-compatible endpoint uploads are written to. Leaving
// Endpoint or Bucket empty disables the sink.
type Config struct {
	Endpoint       string
	Region         string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
	Prefix         string
	PublicEndpoint string
	RequestTimeout time.Duration
}

const defaultRequestTimeout = 30 * time.Second

// ErrDisabled is returned by the noop sink when an upload is attempted
// without object storage configured.
var ErrDisabled = fmt.Errorf("object storage is not configured")

type noopStore struct{}

func (noopStore) Enabled() bool { return false }

func (noopStore) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	return "", ErrDisabled
}

// NewStore builds a Store from cfg, falling back to a disabled noop sink when
// the endpoint or bucket is missing.
func NewStore(cfg Config) Store {
	return newS3Store(cfg)
}
