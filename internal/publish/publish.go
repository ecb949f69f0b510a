package publish

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// ErrInvalidKey is returned for keys that are empty or escape the target.
var ErrInvalidKey = errors.New("publish: invalid key")

// Store is the interface for snapshot storage backends.
type Store interface {
	// Put writes data under key, replacing any previous object.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// String describes the target for logs.
	String() string
}

// Options configures Open.
type Options struct {
	// Region is the S3 region.
	Region string

	// Endpoint overrides the S3 endpoint.
	Endpoint string
}

// Open returns the Store for target.
func Open(target string, opts Options) (Store, error) {
	if !strings.Contains(target, "://") {
		return openDir(target)
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("publish: parse target: %w", err)
	}
	switch u.Scheme {
	case "file":
		return openDir(u.Path)
	case "s3":
		if u.Host == "" {
			return nil, fmt.Errorf("publish: %q has no bucket", target)
		}
		client := NewS3Client(opts.Region, opts.Endpoint)
		return NewS3Store(client, u.Host, strings.TrimPrefix(u.Path, "/")), nil
	}
	return nil, fmt.Errorf("publish: unsupported scheme %q", u.Scheme)
}

func openDir(dir string) (Store, error) {
	s, err := NewDirStore(dir)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// cleanKey validates key and returns it in slash form.
func cleanKey(key string) (string, error) {
	if key == "" || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	clean := path.Clean("/" + key)[1:]
	if clean == "" || clean != strings.TrimPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	return clean, nil
}
