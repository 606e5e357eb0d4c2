package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/park285/ninedt-etl/internal/fetch"
)

// Getter is satisfied by *fetch.Client.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Open returns a reader for a local path or an http(s) URL.
func Open(ctx context.Context, location string, getter Getter) (io.ReadCloser, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("empty source location")
	}
	if fetch.IsRemote(location) {
		if getter == nil {
			return nil, fmt.Errorf("remote source %s needs a fetch client", location)
		}
		body, err := getter.Get(ctx, location)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	f, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	return f, nil
}
